package version

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	buf := new(bytes.Buffer)
	VersionCmd.SetOut(buf)
	VersionCmd.SetArgs(args)
	t.Cleanup(func() {
		versionShort = false
		VersionCmd.SetArgs(nil)
	})
	if err := VersionCmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	return buf.String()
}

func TestVersionCommandOutput(t *testing.T) {
	output := execute(t)

	requiredLabels := []string{"Version:", "Git Commit:", "Build Date:", "Go:"}
	for _, label := range requiredLabels {
		if !strings.Contains(output, label) {
			t.Errorf("version output missing label %q", label)
		}
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 4 {
		t.Errorf("version output has %d lines, expected 4", len(lines))
	}
	for i, line := range lines {
		if !strings.Contains(line, ":") {
			t.Errorf("line %d missing colon separator: %q", i+1, line)
		}
	}
}

func TestVersionCommandShort(t *testing.T) {
	output := strings.TrimSpace(execute(t, "--short"))
	if strings.Contains(output, "\n") || strings.Contains(output, "Version:") {
		t.Errorf("short output = %q, want a single bare line", output)
	}
	if output == "" {
		t.Error("short output is empty")
	}
}
