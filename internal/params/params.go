// Package params loads CloudFormation parameter files and applies
// precedence rules: base file < env-specific file < --param overrides.
package params

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	apperrors "github.com/harborops/stackpilot/internal/errors"
	"gopkg.in/yaml.v3"
)

// Set holds parameter key/value pairs from a single source.
type Set map[string]string

// cfnParam matches the CloudFormation CLI parameter file entry format.
type cfnParam struct {
	ParameterKey   string `json:"ParameterKey" yaml:"ParameterKey"`
	ParameterValue string `json:"ParameterValue" yaml:"ParameterValue"`
}

// Load reads a parameter file. Two formats are accepted: the
// CloudFormation CLI list format ([{ParameterKey, ParameterValue}])
// and a plain YAML/JSON map of key to value.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrParamsFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read parameters file %s: %w", path, err)
	}

	// List format first; yaml handles both JSON and YAML bodies.
	var list []cfnParam
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 && list[0].ParameterKey != "" {
		set := make(Set, len(list))
		for _, p := range list {
			set[p.ParameterKey] = p.ParameterValue
		}
		return set, nil
	}

	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse parameters file %s: %w", path, err)
	}
	return Set(m), nil
}

// LoadForEnv loads the base parameter file plus its env-specific sibling
// (params.json -> params.prd.json) when one exists. Env values win.
func LoadForEnv(path, env string) (Set, error) {
	base, err := Load(path)
	if err != nil {
		return nil, err
	}

	envPath := EnvPath(path, env)
	if _, err := os.Stat(envPath); err != nil {
		return base, nil
	}

	override, err := Load(envPath)
	if err != nil {
		return nil, err
	}

	merged := make(Set, len(base)+len(override))
	maps.Copy(merged, base)
	maps.Copy(merged, override)
	return merged, nil
}

// EnvPath returns the env-specific sibling path for a parameter file.
func EnvPath(path, env string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + env + ext
}

// placeholderTokens are values that mean "the operator never filled this in".
var placeholderTokens = []string{"REPLACE_ME", "CHANGEME", "CHANGE_ME", "FIXME"}

// placeholderHint matches angle-bracketed hints like <your-key-pair-name>,
// including ones embedded in a larger value such as <your-ip>/32.
var placeholderHint = regexp.MustCompile(`<[^<>]+>`)

// IsPlaceholder reports whether a value is an unpopulated placeholder,
// either an exact well-known token or a value containing an
// angle-bracketed hint like <your-key-pair-name>.
func IsPlaceholder(v string) bool {
	trimmed := strings.TrimSpace(v)
	if slices.Contains(placeholderTokens, trimmed) {
		return true
	}
	return placeholderHint.MatchString(trimmed)
}

// Validate fails when any value is still a placeholder. It runs before
// any AWS call so a half-edited parameter file never reaches the API.
func (s Set) Validate() error {
	var bad []string
	for k, v := range s {
		if IsPlaceholder(v) {
			bad = append(bad, k)
		}
	}
	if len(bad) > 0 {
		slices.Sort(bad)
		return fmt.Errorf("%w: %s", apperrors.ErrPlaceholderValue, strings.Join(bad, ", "))
	}
	return nil
}

// ParseOverrides parses repeated --param Key=Value flags.
func ParseOverrides(kvs []string) (Set, error) {
	set := make(Set, len(kvs))
	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter override %q, expected Key=Value", kv)
		}
		set[key] = value
	}
	return set, nil
}

// Merge merges parameter sets with later sets having higher precedence
// and returns a sorted CloudFormation parameter list.
func Merge(sets ...Set) []types.Parameter {
	m := map[string]string{}
	for _, s := range sets {
		maps.Copy(m, s)
	}

	var results []types.Parameter
	for _, k := range slices.Sorted(maps.Keys(m)) {
		results = append(results, types.Parameter{
			ParameterKey:   aws.String(k),
			ParameterValue: aws.String(m[k]),
		})
	}
	return results
}

const secretRefPrefix = "secretsmanager:"

// SecretRef points a parameter value at a Secrets Manager secret,
// optionally selecting a key from a JSON secret body.
type SecretRef struct {
	Name    string
	JSONKey string
}

// ParseSecretRef parses values of the form
// secretsmanager:{name} or secretsmanager:{name}:{json-key}.
func ParseSecretRef(v string) (SecretRef, bool) {
	if !strings.HasPrefix(v, secretRefPrefix) {
		return SecretRef{}, false
	}
	rest := strings.TrimPrefix(v, secretRefPrefix)
	if rest == "" {
		return SecretRef{}, false
	}
	name, jsonKey, _ := strings.Cut(rest, ":")
	if name == "" {
		return SecretRef{}, false
	}
	return SecretRef{Name: name, JSONKey: jsonKey}, true
}

// SecretRefs returns the parameters whose values are secret references.
func (s Set) SecretRefs() map[string]SecretRef {
	refs := map[string]SecretRef{}
	for k, v := range s {
		if ref, ok := ParseSecretRef(v); ok {
			refs[k] = ref
		}
	}
	return refs
}

// Digest returns a stable sha256 digest of a resolved parameter list.
// NoEcho values should be excluded by the caller before digesting.
func Digest(pp []types.Parameter) string {
	h := sha256.New()
	for _, p := range pp {
		fmt.Fprintf(h, "%s=%s\n", aws.ToString(p.ParameterKey), aws.ToString(p.ParameterValue))
	}
	return hex.EncodeToString(h.Sum(nil))
}
