package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/harborops/stackpilot/internal/dao/lockdao"
	"github.com/harborops/stackpilot/internal/dao/releasedao"
)

// Config holds all tool configuration values from Parameter Store
type Config struct {
	ArtifactBucket string   // S3 bucket for release snapshots
	ReleaseTable   string   // DynamoDB release history table
	LockTable      string   // DynamoDB deployment lock table
	ECRRepository  string   // ECR repository the chat API image ships from
	EnvLadder      []string // promotion order, lowest first
}

// DefaultEnvLadder is the promotion order when none is configured.
var DefaultEnvLadder = []string{"dev", "stg", "prd"}

// ParameterStore defines the interface for accessing configuration parameters
type ParameterStore interface {
	// GetParameter retrieves a single parameter by name
	GetParameter(ctx context.Context, name string) (string, error)

	// GetConfig loads all tool configuration from Parameter Store
	GetConfig(ctx context.Context) (*Config, error)
}

// SSMParameterStore implements ParameterStore using AWS Systems Manager Parameter Store
type SSMParameterStore struct {
	client *ssm.Client
	env    string
	mu     sync.RWMutex
	cache  map[string]string
}

// NewSSMParameterStore creates a new SSM-backed parameter store
func NewSSMParameterStore(client *ssm.Client, env string) *SSMParameterStore {
	return &SSMParameterStore{
		client: client,
		env:    env,
		cache:  make(map[string]string),
	}
}

// GetParameter retrieves a single parameter from SSM Parameter Store
func (s *SSMParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if value, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return value, nil
	}
	s.mu.RUnlock()

	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: boolPtr(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s not found", name)
	}

	value := *result.Parameter.Value

	s.mu.Lock()
	s.cache[name] = value
	s.mu.Unlock()

	return value, nil
}

// ConfigPath returns the SSM path prefix for an environment's configuration.
func ConfigPath(env string) string {
	return fmt.Sprintf("/%s/stackpilot", env)
}

// GetConfig loads all tool configuration from Parameter Store
func (s *SSMParameterStore) GetConfig(ctx context.Context) (*Config, error) {
	path := ConfigPath(s.env)

	result, err := s.client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
		Path:           &path,
		Recursive:      boolPtr(true),
		WithDecryption: boolPtr(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get parameters by path %s: %w", path, err)
	}

	parameters := make(map[string]string)
	for _, param := range result.Parameters {
		if param.Name != nil && param.Value != nil {
			parameters[*param.Name] = *param.Value
		}
	}

	s.mu.Lock()
	for k, v := range parameters {
		s.cache[k] = v
	}
	s.mu.Unlock()

	config := &Config{
		ArtifactBucket: parameters[path+"/artifact-bucket"],
		ReleaseTable:   parameters[path+"/release-table"],
		LockTable:      parameters[path+"/lock-table"],
		ECRRepository:  parameters[path+"/ecr-repository"],
	}
	if ladder := parameters[path+"/env-ladder"]; ladder != "" {
		config.EnvLadder = strings.Split(ladder, ",")
	}

	applyDefaults(config, s.env)
	return config, nil
}

// EnvParameterStore implements ParameterStore using environment variables.
// Used for local development without SSM access.
type EnvParameterStore struct {
	env string
}

// NewEnvParameterStore creates a new environment variable-backed parameter store
func NewEnvParameterStore(env string) *EnvParameterStore {
	return &EnvParameterStore{
		env: env,
	}
}

// GetParameter retrieves a parameter from environment variables
func (e *EnvParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	return os.Getenv(name), nil
}

// GetConfig loads all tool configuration from environment variables
func (e *EnvParameterStore) GetConfig(ctx context.Context) (*Config, error) {
	config := &Config{
		ArtifactBucket: os.Getenv("STACKPILOT_ARTIFACT_BUCKET"),
		ReleaseTable:   os.Getenv("STACKPILOT_RELEASE_TABLE"),
		LockTable:      os.Getenv("STACKPILOT_LOCK_TABLE"),
		ECRRepository:  os.Getenv("STACKPILOT_ECR_REPOSITORY"),
	}
	if ladder := os.Getenv("STACKPILOT_ENV_LADDER"); ladder != "" {
		config.EnvLadder = strings.Split(ladder, ",")
	}

	applyDefaults(config, e.env)
	return config, nil
}

func applyDefaults(config *Config, env string) {
	if len(config.EnvLadder) == 0 {
		config.EnvLadder = DefaultEnvLadder
	}
	if config.ReleaseTable == "" {
		config.ReleaseTable = releasedao.TableName(env)
	}
	if config.LockTable == "" {
		config.LockTable = lockdao.TableName(env)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
