package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harborops/stackpilot/internal/template"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func TestValidate_OversizedSkipsAPICheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cloudformation.template")

	// Valid JSON padded past the TemplateBody limit.
	padding := strings.Repeat("x", template.MaxBodyBytes)
	body := fmt.Sprintf(`{"Resources": {"Handle": {"Type": "AWS::CloudFormation::WaitConditionHandle", "Metadata": {"Pad": "%s"}}}}`, padding)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	app := &cli.App{
		Commands: []*cli.Command{ValidateCommand(&logger)},
	}
	err := app.Run([]string{"stackpilot", "validate",
		"--stack-name", "chat-api",
		"--template", path,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), "skipping the API check") {
		t.Error("expected a log line reporting the skipped ValidateTemplate call")
	}
	if !strings.Contains(buf.String(), "Template is valid") {
		t.Error("expected the validation success log line")
	}
}
