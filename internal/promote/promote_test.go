package promote

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/harborops/stackpilot/internal/errors"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/harborops/stackpilot/internal/stack"
	"github.com/harborops/stackpilot/internal/template"
)

func TestNextEnv(t *testing.T) {
	ladder := []string{"dev", "stg", "prd"}

	tests := []struct {
		name    string
		from    string
		want    string
		wantErr error
	}{
		{name: "dev promotes to stg", from: "dev", want: "stg"},
		{name: "stg promotes to prd", from: "stg", want: "prd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextEnv(ladder, tt.from)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("NextEnv(%s) = %s, want %s", tt.from, got, tt.want)
			}
		})
	}

	t.Run("unknown env", func(t *testing.T) {
		_, err := NextEnv(ladder, "qa")
		if !errors.Is(err, apperrors.ErrUnknownEnvironment) {
			t.Fatalf("expected ErrUnknownEnvironment, got %v", err)
		}
	})

	t.Run("top of ladder", func(t *testing.T) {
		if _, err := NextEnv(ladder, "prd"); err == nil {
			t.Fatal("expected error at the top of the ladder")
		}
	})
}

func TestSnapshotTemplate(t *testing.T) {
	p := &Promoter{
		artifacts: services.NewArtifactStore(nil, "harborops-dev-artifacts"),
	}

	t.Run("inline body", func(t *testing.T) {
		var in stack.DeployInput
		p.snapshotTemplate(&in, `{"Resources": {}}`, "chat-api/2abc")
		if in.TemplateBody != `{"Resources": {}}` {
			t.Errorf("TemplateBody = %q", in.TemplateBody)
		}
		if in.TemplateURL != "" {
			t.Errorf("TemplateURL = %q, want empty", in.TemplateURL)
		}
	})

	t.Run("oversized body deploys by URL", func(t *testing.T) {
		var in stack.DeployInput
		body := strings.Repeat("x", template.MaxBodyBytes+1)
		p.snapshotTemplate(&in, body, "chat-api/2abc")
		if in.TemplateBody != "" {
			t.Error("expected empty TemplateBody for oversized snapshot")
		}
		want := "https://harborops-dev-artifacts.s3.amazonaws.com/chat-api/2abc/" + services.ArtifactTemplateName
		if in.TemplateURL != want {
			t.Errorf("TemplateURL = %q, want %q", in.TemplateURL, want)
		}
	})
}
