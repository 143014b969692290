// Package promote moves a stack's latest successful release up the
// environment ladder, redeploying the exact artifact snapshot that
// shipped in the source environment.
package promote

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/harborops/stackpilot/internal/dao/releasedao"
	apperrors "github.com/harborops/stackpilot/internal/errors"
	"github.com/harborops/stackpilot/internal/params"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/harborops/stackpilot/internal/template"
	"github.com/rs/zerolog"
	"github.com/savaki/gox/slicex"
	"gopkg.in/yaml.v3"
)

// NextEnv returns the environment one rung above from on the ladder.
// The top rung has nowhere to go.
func NextEnv(ladder []string, from string) (string, error) {
	i := slices.Index(ladder, from)
	if i < 0 {
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnknownEnvironment, from)
	}
	if i == len(ladder)-1 {
		return "", fmt.Errorf("%s is the top of the ladder %v, nothing to promote to", from, ladder)
	}
	return ladder[i+1], nil
}

// Promoter redeploys release snapshots to the next environment.
type Promoter struct {
	releases  *releasedao.DAO
	artifacts *services.ArtifactStore
	engine    *stack.Engine
	secrets   *services.SecretResolver
	ladder    []string
}

func New(releases *releasedao.DAO, artifacts *services.ArtifactStore, engine *stack.Engine, secrets *services.SecretResolver, ladder []string) *Promoter {
	return &Promoter{
		releases:  releases,
		artifacts: artifacts,
		engine:    engine,
		secrets:   secrets,
		ladder:    ladder,
	}
}

// Input selects what to promote.
type Input struct {
	Stack     string
	FromEnv   string
	Overrides params.Set // --param flags, highest precedence
	ParamsDir string     // local directory with env override files, optional
}

// Result reports what was promoted where.
type Result struct {
	TargetEnv    string              `json:"target_env"`
	SourceID     string              `json:"source_release_id"`
	TemplateHash string              `json:"template_hash"`
	Deploy       *stack.DeployResult `json:"deploy"`
	Parameters   []string            `json:"parameters"`
}

// Promote takes the latest successful release of the source environment
// and deploys its exact template snapshot to the next rung, applying the
// target environment's parameter overrides.
func (p *Promoter) Promote(ctx context.Context, input Input) (result *Result, err error) {
	logger := zerolog.Ctx(ctx)

	defer func(begin time.Time) {
		logger.Info().
			Interface("error", err).
			Str("stack", input.Stack).
			Str("from_env", input.FromEnv).
			Dur("duration", time.Since(begin)).
			Msg("Promote completed")
	}(time.Now())

	targetEnv, err := NextEnv(p.ladder, input.FromEnv)
	if err != nil {
		return nil, err
	}

	pk := releasedao.NewPK(input.Stack, input.FromEnv)
	source, found, err := p.releases.LatestSuccess(ctx, pk)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s/%s", apperrors.ErrNoSuccessfulRelease, input.Stack, input.FromEnv)
	}

	logger.Info().
		Str("release_id", source.GetID().String()).
		Str("template_hash", source.TemplateHash).
		Str("target_env", targetEnv).
		Msg("Promoting release")

	body, err := p.artifacts.Get(ctx, source.ArtifactKey, services.ArtifactTemplateName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template snapshot: %w", err)
	}

	baseParams, err := p.snapshotParams(ctx, source.ArtifactKey)
	if err != nil {
		return nil, err
	}

	envParams, err := p.envOverrides(input.ParamsDir, targetEnv)
	if err != nil {
		return nil, err
	}

	// Snapshots keep secretsmanager: references unresolved so secret
	// values never persist; resolve them against the target account now.
	combined := make(params.Set)
	maps.Copy(combined, baseParams)
	maps.Copy(combined, envParams)
	maps.Copy(combined, input.Overrides)

	resolved, err := p.secrets.ResolveAll(ctx, combined)
	if err != nil {
		return nil, err
	}

	merged := params.Merge(resolved)

	targetStack := fmt.Sprintf("%s-%s", targetEnv, input.Stack)
	deployInput := stack.DeployInput{
		StackName:  targetStack,
		Parameters: merged,
		Tags: map[string]string{
			"PromotedFrom": source.GetID().String(),
		},
	}
	p.snapshotTemplate(&deployInput, body, source.ArtifactKey)
	deploy, err := p.engine.Deploy(ctx, deployInput)
	if err != nil {
		return nil, err
	}

	names := slicex.Map(merged, func(p types.Parameter) string {
		return aws.ToString(p.ParameterKey)
	})

	return &Result{
		TargetEnv:    targetEnv,
		SourceID:     source.GetID().String(),
		TemplateHash: source.TemplateHash,
		Deploy:       deploy,
		Parameters:   names,
	}, nil
}

// snapshotTemplate routes the snapshot into the deploy input. Bodies
// over the TemplateBody API limit deploy through their S3 location.
func (p *Promoter) snapshotTemplate(in *stack.DeployInput, body, artifactKey string) {
	if len(body) > template.MaxBodyBytes {
		in.TemplateURL = p.artifacts.URL(artifactKey, services.ArtifactTemplateName)
	} else {
		in.TemplateBody = body
	}
}

// snapshotParams loads the parameter snapshot stored with the release.
func (p *Promoter) snapshotParams(ctx context.Context, artifactKey string) (params.Set, error) {
	body, err := p.artifacts.Get(ctx, artifactKey, services.ArtifactParamsName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch parameter snapshot: %w", err)
	}

	var m map[string]string
	if err := yaml.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("failed to parse parameter snapshot: %w", err)
	}
	return params.Set(m), nil
}

// envOverrides loads the target environment's local override file when a
// params directory was given.
func (p *Promoter) envOverrides(dir, env string) (params.Set, error) {
	if dir == "" {
		return nil, nil
	}

	path := params.EnvPath(dir+"/"+services.ArtifactParamsName, env)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	set, err := params.Load(path)
	if err != nil {
		return nil, err
	}

	out := make(params.Set, len(set))
	maps.Copy(out, set)
	return out, nil
}
