package services

import (
	"context"
	"testing"
)

func TestEnvParameterStore_Defaults(t *testing.T) {
	store := NewEnvParameterStore("dev")

	config, err := store.GetConfig(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if config.ReleaseTable != "stackpilot-dev-releases" {
		t.Errorf("ReleaseTable = %q", config.ReleaseTable)
	}
	if config.LockTable != "stackpilot-dev-locks" {
		t.Errorf("LockTable = %q", config.LockTable)
	}
	if len(config.EnvLadder) != 3 || config.EnvLadder[0] != "dev" {
		t.Errorf("EnvLadder = %v", config.EnvLadder)
	}
}

func TestEnvParameterStore_Overrides(t *testing.T) {
	t.Setenv("STACKPILOT_ARTIFACT_BUCKET", "my-artifacts")
	t.Setenv("STACKPILOT_RELEASE_TABLE", "custom-releases")
	t.Setenv("STACKPILOT_ENV_LADDER", "sandbox,live")

	config, err := NewEnvParameterStore("sandbox").GetConfig(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if config.ArtifactBucket != "my-artifacts" {
		t.Errorf("ArtifactBucket = %q", config.ArtifactBucket)
	}
	if config.ReleaseTable != "custom-releases" {
		t.Errorf("ReleaseTable = %q", config.ReleaseTable)
	}
	if len(config.EnvLadder) != 2 || config.EnvLadder[1] != "live" {
		t.Errorf("EnvLadder = %v", config.EnvLadder)
	}
	// Ladder set explicitly, lock table falls back to the default.
	if config.LockTable != "stackpilot-sandbox-locks" {
		t.Errorf("LockTable = %q", config.LockTable)
	}
}

func TestConfigPath(t *testing.T) {
	if got := ConfigPath("prd"); got != "/prd/stackpilot" {
		t.Errorf("ConfigPath = %q", got)
	}
}
