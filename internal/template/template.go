// Package template loads CloudFormation template bodies from disk.
package template

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	apperrors "github.com/harborops/stackpilot/internal/errors"
	"gopkg.in/yaml.v3"
)

// MaxBodyBytes is the CloudFormation TemplateBody size limit. Larger
// templates must be uploaded to S3 and deployed via TemplateURL.
const MaxBodyBytes = 51200

// Template is a CloudFormation template body read from a local file.
type Template struct {
	Path string
	Body string

	doc map[string]any
}

// Load reads a template file. A missing file is reported before any AWS
// call is ever made.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrTemplateNotFound, path)
		}
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	return &Template{Path: path, Body: string(data)}, nil
}

// Document parses the template body (YAML or JSON) into a generic map
// for policy evaluation. The parse is cached.
func (t *Template) Document() (map[string]any, error) {
	if t.doc != nil {
		return t.doc, nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(t.Body), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", t.Path, err)
	}
	if _, ok := doc["Resources"]; !ok {
		return nil, fmt.Errorf("template %s has no Resources section", t.Path)
	}
	t.doc = doc
	return doc, nil
}

// Oversized reports whether the body exceeds the TemplateBody limit.
func (t *Template) Oversized() bool {
	return len(t.Body) > MaxBodyBytes
}

// Hash returns the sha256 hex digest of the body, recorded per release
// so promotions can verify they redeploy the exact artifact.
func (t *Template) Hash() string {
	sum := sha256.Sum256([]byte(t.Body))
	return hex.EncodeToString(sum[:])
}
