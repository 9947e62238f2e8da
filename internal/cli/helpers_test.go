package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args against an isolated config file
func executeCommand(t *testing.T, configYAML string, args ...string) (string, string, error) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)

	path := filepath.Join(dir, "ctxexec.yaml")
	if configYAML != "" {
		require.NoError(t, os.WriteFile(path, []byte(configYAML), 0644))
	}

	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", path}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
