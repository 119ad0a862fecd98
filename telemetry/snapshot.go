package telemetry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pthm-cable/evolve/ecosystem"
	"github.com/pthm-cable/evolve/habitat"
	"github.com/pthm-cable/evolve/neural"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the renderer's view of the population after an epoch.
type Snapshot struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Seed    int64  `json:"seed"`

	Epoch  int `json:"epoch"`
	Width  int `json:"width"`
	Height int `json:"height"`

	Agents []ecosystem.Sprite `json:"agents"`

	// Decision network of the first listed agent, if any.
	Sample *neural.Diagram `json:"sample_diagram,omitempty"`

	Summary string `json:"summary"`
}

// Source is what a snapshot is taken from. *ecosystem.Population satisfies it.
type Source interface {
	Snapshot() []ecosystem.Sprite
	Summary() string
	Diagram(id habitat.AgentID) (neural.Diagram, error)
}

// TakeSnapshot captures src as of epoch.
func TakeSnapshot(src Source, runID string, seed int64, epoch, width, height int) (*Snapshot, error) {
	s := &Snapshot{
		Version: SnapshotVersion,
		RunID:   runID,
		Seed:    seed,
		Epoch:   epoch,
		Width:   width,
		Height:  height,
		Agents:  src.Snapshot(),
		Summary: src.Summary(),
	}
	if len(s.Agents) > 0 {
		d, err := src.Diagram(s.Agents[0].ID)
		if err != nil {
			return nil, fmt.Errorf("sample diagram: %w", err)
		}
		s.Sample = &d
	}
	return s, nil
}

// ReadSnapshot loads a snapshot written by OutputManager.WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	return &s, nil
}
