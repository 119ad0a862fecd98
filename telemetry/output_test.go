package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/evolve/config"
	"github.com/pthm-cable/evolve/ecosystem"
)

func TestNilOutputManagerIsNoop(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	if err := om.WriteEpoch(EpochStats{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteSnapshot(&Snapshot{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestWriteEpochHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := om.WriteEpoch(EpochStats{Epoch: i, Population: 10 + i}); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "epochs.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var rows []EpochStats
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("%d rows", len(rows))
	}
	for i, r := range rows {
		if r.Epoch != i || r.Population != 10+i {
			t.Errorf("row %d = %+v", i, r)
		}
	}
}

type memStore struct {
	epochs  []EpochStats
	actions int
}

func (m *memStore) SaveEpoch(_ context.Context, s EpochStats, rows []ActionRow) error {
	m.epochs = append(m.epochs, s)
	m.actions += len(rows)
	return nil
}

func TestCollectorWritesEverything(t *testing.T) {
	cfg := config.Default()
	cfg.Habitat.Width, cfg.Habitat.Height = 10, 10
	cfg.Population.Initial = 20
	cfg.Epoch.Steps = 5
	cfg.ComputeDerived()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pop, err := ecosystem.New(cfg, ecosystem.Options{Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatal(err)
	}
	store := &memStore{}
	c := NewCollector(CollectorOptions{
		Output:        om,
		Store:         store,
		Source:        pop,
		Logger:        logger,
		RunID:         "test-run",
		Seed:          cfg.Run.Seed,
		Width:         10,
		Height:        10,
		LogEvery:      1,
		SnapshotEvery: 2,
	})
	if err := pop.Run(context.Background(), 3, c); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	if len(c.History()) != 3 || len(store.epochs) != 3 || store.actions == 0 {
		t.Errorf("history %d, stored %d, action rows %d", len(c.History()), len(store.epochs), store.actions)
	}
	for _, name := range []string{"config.yaml", "epochs.csv", "actions.csv", "perf.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	// Epochs 0 and 2 are snapshotted.
	snap, err := ReadSnapshot(filepath.Join(dir, "snapshots", "epoch_0002.json"))
	if err != nil {
		t.Fatal(err)
	}
	if snap.RunID != "test-run" || len(snap.Agents) == 0 || snap.Sample == nil {
		t.Errorf("snapshot: run %q, %d agents, sample %v", snap.RunID, len(snap.Agents), snap.Sample != nil)
	}
	if _, err := os.Stat(filepath.Join(dir, "snapshots", "epoch_0001.json")); !os.IsNotExist(err) {
		t.Errorf("epoch 1 snapshot: %v", err)
	}
	if !strings.Contains(snap.Summary, ":") {
		t.Errorf("summary %q", snap.Summary)
	}
}

func TestPerfCollector(t *testing.T) {
	p := NewPerfCollector(2)
	clock := time.Unix(0, 0)
	p.now = func() time.Time { return clock }
	p.StartEpoch()

	clock = clock.Add(100 * time.Millisecond)
	s := p.EndEpoch(0, 1000)
	if s.EpochMS != 100 || s.AvgEpochMS != 100 || s.AgentTicksPerSec != 10000 {
		t.Errorf("first epoch: %+v", s)
	}
	clock = clock.Add(300 * time.Millisecond)
	s = p.EndEpoch(1, 0)
	if s.EpochMS != 300 || s.AvgEpochMS != 200 {
		t.Errorf("second epoch: %+v", s)
	}
	clock = clock.Add(500 * time.Millisecond)
	s = p.EndEpoch(2, 0)
	if s.AvgEpochMS != 400 {
		t.Errorf("window did not roll: %+v", s)
	}
}
