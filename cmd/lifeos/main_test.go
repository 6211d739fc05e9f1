package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useTempStore(t *testing.T) {
	t.Helper()
	t.Setenv("LIFEOS_STORE_PATH", filepath.Join(t.TempDir(), "life.db"))
	t.Setenv("LIFEOS_LOG_LEVEL", "error")
	t.Setenv("LIFEOS_AI_API_KEY", "")
}

func TestSetupAndBrief(t *testing.T) {
	useTempStore(t)

	out, err := run(t, "setup")
	require.NoError(t, err)
	assert.Contains(t, out, "headers are in place")

	out, err = run(t, "brief", "night")
	require.NoError(t, err)
	assert.Contains(t, out, "NIGHT BRIEF")
	assert.Contains(t, out, "Nothing scheduled tomorrow.")

	_, err = run(t, "brief", "noon")
	assert.Error(t, err)
}

func TestProcessNeedsModelKey(t *testing.T) {
	useTempStore(t)

	_, err := run(t, "process")
	assert.ErrorContains(t, err, "ai.api_key")
}

func TestStatusUnknownTask(t *testing.T) {
	useTempStore(t)

	_, err := run(t, "status", "missing", "completed")
	assert.Error(t, err)

	_, err = run(t, "status", "missing", "archived")
	assert.ErrorContains(t, err, "invalid status")
}

func TestInvalidConfig(t *testing.T) {
	useTempStore(t)
	t.Setenv("LIFEOS_STORE_BACKEND", "postgres")

	_, err := run(t, "brief")
	assert.ErrorContains(t, err, "config")
}
