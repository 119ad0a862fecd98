package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/evolve/telemetry"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUninitialized(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "runs.db"))
	_, err := s.StartRun(context.Background(), RunInfo{ID: "a"})
	require.ErrorIs(t, err, ErrNotInitialized)

	require.Error(t, New("").Init(context.Background()))
}

func TestRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run, err := s.StartRun(ctx, RunInfo{ID: "run-1", Seed: 42, Config: "run:\n  seed: 42\n", Started: started})
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID())

	info, err := s.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.Seed)
	assert.Equal(t, "run:\n  seed: 42\n", info.Config)
	assert.True(t, started.Equal(info.Started))

	_, err = s.LoadRun(ctx, "missing")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveEpoch(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	run, err := s.StartRun(ctx, RunInfo{ID: "run-1", Seed: 1, Config: "{}"})
	require.NoError(t, err)

	for epoch := 2; epoch >= 0; epoch-- {
		stats := telemetry.EpochStats{
			Epoch:        epoch,
			Population:   100,
			Culled:       10 * epoch,
			Survivors:    100 - 10*epoch,
			Born:         10 * epoch,
			Reseeded:     epoch == 1,
			SurvivalRate: float64(100-10*epoch) / 100,
			TopAction:    "MoveE",
		}
		actions := []telemetry.ActionRow{
			{Epoch: epoch, Label: "MoveE", Count: 50 + epoch},
			{Epoch: epoch, Label: "none", Count: 3},
		}
		require.NoError(t, run.SaveEpoch(ctx, stats, actions))
	}

	epochs, err := s.Epochs(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, epochs, 3)
	for i, e := range epochs {
		assert.Equal(t, i, e.Epoch)
		assert.Equal(t, 100-10*i, e.Survivors)
		assert.Equal(t, i == 1, e.Reseeded)
		assert.Equal(t, "MoveE", e.TopAction)
	}

	counts, err := s.ActionCounts(ctx, "run-1", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"MoveE": 52, "none": 3}, counts)
}

func TestSaveEpochReplaces(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	run, err := s.StartRun(ctx, RunInfo{ID: "run-1", Config: "{}"})
	require.NoError(t, err)

	require.NoError(t, run.SaveEpoch(ctx, telemetry.EpochStats{Epoch: 0, Population: 5},
		[]telemetry.ActionRow{{Label: "MoveX", Count: 9}, {Label: "none", Count: 1}}))
	require.NoError(t, run.SaveEpoch(ctx, telemetry.EpochStats{Epoch: 0, Population: 7},
		[]telemetry.ActionRow{{Label: "MoveY", Count: 4}}))

	epochs, err := s.Epochs(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, epochs, 1)
	assert.Equal(t, 7, epochs[0].Population)

	counts, err := s.ActionCounts(ctx, "run-1", 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"MoveY": 4}, counts)
}

func TestRunsAreSeparate(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	a, err := s.StartRun(ctx, RunInfo{ID: "a", Config: "{}"})
	require.NoError(t, err)
	b, err := s.StartRun(ctx, RunInfo{ID: "b", Config: "{}"})
	require.NoError(t, err)

	require.NoError(t, a.SaveEpoch(ctx, telemetry.EpochStats{Epoch: 0}, nil))
	require.NoError(t, b.SaveEpoch(ctx, telemetry.EpochStats{Epoch: 0}, nil))
	require.NoError(t, b.SaveEpoch(ctx, telemetry.EpochStats{Epoch: 1}, nil))

	ea, err := s.Epochs(ctx, "a")
	require.NoError(t, err)
	eb, err := s.Epochs(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, ea, 1)
	assert.Len(t, eb, 2)
}
