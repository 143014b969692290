package params

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	apperrors "github.com/harborops/stackpilot/internal/errors"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Set
	}{
		{
			name: "cloudformation list format",
			content: `[
				{"ParameterKey": "KeyName", "ParameterValue": "my-key"},
				{"ParameterKey": "InstanceType", "ParameterValue": "t3.small"}
			]`,
			want: Set{"KeyName": "my-key", "InstanceType": "t3.small"},
		},
		{
			name:    "plain map format",
			content: `{"KeyName": "my-key", "ImageTag": "v1.2.3"}`,
			want:    Set{"KeyName": "my-key", "ImageTag": "v1.2.3"},
		},
		{
			name:    "yaml map format",
			content: "KeyName: my-key\nImageTag: v1.2.3\n",
			want:    Set{"KeyName": "my-key", "ImageTag": "v1.2.3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "params.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d params, want %d", len(got), len(tt.want))
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("param %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, apperrors.ErrParamsFileNotFound) {
		t.Fatalf("expected ErrParamsFileNotFound, got %v", err)
	}
}

func TestLoadForEnv(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "params.json")
	if err := os.WriteFile(base, []byte(`{"InstanceType": "t3.small", "KeyName": "dev-key"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "params.prd.json"), []byte(`{"InstanceType": "m5.large"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("env sibling wins", func(t *testing.T) {
		got, err := LoadForEnv(base, "prd")
		if err != nil {
			t.Fatal(err)
		}
		if got["InstanceType"] != "m5.large" {
			t.Errorf("InstanceType = %q, want m5.large", got["InstanceType"])
		}
		if got["KeyName"] != "dev-key" {
			t.Errorf("KeyName = %q, want dev-key", got["KeyName"])
		}
	})

	t.Run("no sibling returns base", func(t *testing.T) {
		got, err := LoadForEnv(base, "stg")
		if err != nil {
			t.Fatal(err)
		}
		if got["InstanceType"] != "t3.small" {
			t.Errorf("InstanceType = %q, want t3.small", got["InstanceType"])
		}
	})
}

func TestEnvPath(t *testing.T) {
	got := EnvPath("deploy/params.json", "prd")
	want := "deploy/params.prd.json"
	if got != want {
		t.Errorf("EnvPath = %q, want %q", got, want)
	}
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"REPLACE_ME", true},
		{"CHANGEME", true},
		{"CHANGE_ME", true},
		{"FIXME", true},
		{"<your-key-pair-name>", true},
		{"<your-ip>/32", true},
		{"<account-id>.dkr.ecr.<region>.amazonaws.com/chat-api", true},
		{"  REPLACE_ME  ", true},
		{"my-key-pair", false},
		{"t3.small", false},
		{"<>", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsPlaceholder(tt.value); got != tt.want {
			t.Errorf("IsPlaceholder(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	set := Set{
		"KeyName":      "<your-key-pair-name>",
		"InstanceType": "t3.small",
		"SSHLocation":  "REPLACE_ME",
	}

	err := set.Validate()
	if !errors.Is(err, apperrors.ErrPlaceholderValue) {
		t.Fatalf("expected ErrPlaceholderValue, got %v", err)
	}
	// Keys are sorted so the message is stable.
	want := "KeyName, SSHLocation"
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("error %q does not name the bad keys %q", got, want)
	}

	if err := (Set{"KeyName": "real-key"}).Validate(); err != nil {
		t.Errorf("valid set failed: %v", err)
	}
}

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides([]string{"ImageTag=v2.0.0", "AppPort=8080"})
	if err != nil {
		t.Fatal(err)
	}
	if got["ImageTag"] != "v2.0.0" || got["AppPort"] != "8080" {
		t.Errorf("unexpected overrides: %v", got)
	}

	if _, err := ParseOverrides([]string{"not-a-pair"}); err == nil {
		t.Error("expected error for missing =")
	}
	if _, err := ParseOverrides([]string{"=value"}); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestMerge(t *testing.T) {
	got := Merge(
		Set{"Env": "dev", "Version": "1.0.0"},
		Set{"Env": "prd"},
	)

	want := []types.Parameter{
		{ParameterKey: aws.String("Env"), ParameterValue: aws.String("prd")},
		{ParameterKey: aws.String("Version"), ParameterValue: aws.String("1.0.0")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d parameters, want %d", len(got), len(want))
	}
	for i := range want {
		if aws.ToString(got[i].ParameterKey) != aws.ToString(want[i].ParameterKey) ||
			aws.ToString(got[i].ParameterValue) != aws.ToString(want[i].ParameterValue) {
			t.Errorf("parameter %d = %s=%s, want %s=%s", i,
				aws.ToString(got[i].ParameterKey), aws.ToString(got[i].ParameterValue),
				aws.ToString(want[i].ParameterKey), aws.ToString(want[i].ParameterValue))
		}
	}
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		value   string
		want    SecretRef
		wantOK  bool
	}{
		{"secretsmanager:chat-api/db-password", SecretRef{Name: "chat-api/db-password"}, true},
		{"secretsmanager:chat-api/creds:password", SecretRef{Name: "chat-api/creds", JSONKey: "password"}, true},
		{"secretsmanager:", SecretRef{}, false},
		{"plain-value", SecretRef{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseSecretRef(tt.value)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseSecretRef(%q) = %+v, %v; want %+v, %v", tt.value, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSecretRefs(t *testing.T) {
	set := Set{
		"DBPassword": "secretsmanager:chat-api/db:password",
		"KeyName":    "my-key",
	}
	refs := set.SecretRefs()
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	if refs["DBPassword"].Name != "chat-api/db" || refs["DBPassword"].JSONKey != "password" {
		t.Errorf("unexpected ref: %+v", refs["DBPassword"])
	}
}

func TestDigest(t *testing.T) {
	a := Merge(Set{"A": "1", "B": "2"})
	b := Merge(Set{"B": "2", "A": "1"})
	if Digest(a) != Digest(b) {
		t.Error("digest is not order independent")
	}

	c := Merge(Set{"A": "1", "B": "3"})
	if Digest(a) == Digest(c) {
		t.Error("digest did not change with values")
	}
}
