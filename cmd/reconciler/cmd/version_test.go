package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2024-03-31")
	defer SetVersionInfo("dev", "unknown", "unknown")

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)

	got := buf.String()
	if !strings.Contains(got, "reconciler 1.2.3") {
		t.Errorf("version output = %q, want it to contain %q", got, "reconciler 1.2.3")
	}
}
