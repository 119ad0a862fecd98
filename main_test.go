package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/evolve/archive"
)

const smallConfig = `
habitat:
  width: 12
  height: 12
population:
  initial: 30
epoch:
  steps: 20
telemetry:
  snapshot_every: 1
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallConfig), 0644))
	return path
}

func TestRunWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	out, logs, err := execute(t, "run",
		"--config", writeConfig(t),
		"--epochs", "3",
		"--seed", "11",
		"--output", dir,
		"--archive", db,
		"--log-format", "text",
	)
	require.NoError(t, err)
	assert.Contains(t, logs, "simulation complete")
	assert.Contains(t, out, ":")

	for _, name := range []string{"config.yaml", "epochs.csv", "actions.csv", "perf.csv", "summary.txt"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.FileExists(t, filepath.Join(dir, "snapshots", "epoch_0002.json"))

	summary, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(out), strings.TrimSpace(string(summary)))

	store := archive.New(db)
	require.NoError(t, store.Init(context.Background()))
	defer store.Close()
	var runID string
	for _, line := range strings.Split(logs, "\n") {
		if i := strings.Index(line, "run_id="); i >= 0 {
			runID = strings.Fields(line[i+len("run_id="):])[0]
			break
		}
	}
	require.NotEmpty(t, runID)
	epochs, err := store.Epochs(context.Background(), runID)
	require.NoError(t, err)
	assert.Len(t, epochs, 3)
	info, err := store.LoadRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), info.Seed)
}

func TestRunIsReproducible(t *testing.T) {
	cfg := writeConfig(t)
	a, _, err := execute(t, "run", "--config", cfg, "--epochs", "2", "--seed", "3")
	require.NoError(t, err)
	b, _, err := execute(t, "run", "--config", cfg, "--epochs", "2", "--seed", "3")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunRejectsBadFlags(t *testing.T) {
	_, _, err := execute(t, "run", "--log-format", "xml", "--epochs", "1")
	require.Error(t, err)

	_, _, err = execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestCatalogListsNeurons(t *testing.T) {
	out, _, err := execute(t, "catalog")
	require.NoError(t, err)
	for _, label := range []string{"LABEL", "Age", "MoveF", "N1"} {
		assert.Contains(t, out, label)
	}
}
