// Package archive persists run metadata and per-epoch statistics to SQLite so
// runs can be compared after the process exits.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pthm-cable/evolve/telemetry"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotInitialized is returned when the store is used before Init.
	ErrNotInitialized = errors.New("archive is not initialized")
	// ErrRunNotFound is returned for an unknown run ID.
	ErrRunNotFound = errors.New("run not found")
)

// Store is a SQLite-backed run archive.
type Store struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// RunInfo describes a run at start time.
type RunInfo struct {
	ID      string
	Seed    int64
	Config  string // YAML
	Started time.Time
}

// EpochRecord is an archived epoch row.
type EpochRecord struct {
	RunID          string
	Epoch          int
	Population     int
	Culled         int
	Survivors      int
	Born           int
	Reseeded       bool
	SurvivalRate   float64
	DropRate       float64
	TopAction      string
	GenerationMean float64
	GenerationMax  int
}

// New creates a store for the database at path. Call Init before use.
func New(path string) *Store {
	return &Store{path: path}
}

// Init opens the database and creates the tables if needed.
func (s *Store) Init(ctx context.Context) error {
	if s.path == "" {
		return errors.New("archive path is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping archive: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("create tables: %w", err)
	}
	s.db = db
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// StartRun records a run and returns a handle that archives its epochs.
func (s *Store) StartRun(ctx context.Context, info RunInfo) (*Run, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, errors.New("run id is required")
	}
	if info.Started.IsZero() {
		info.Started = time.Now()
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, config, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			seed = excluded.seed,
			config = excluded.config,
			started_at = excluded.started_at
	`, info.ID, info.Seed, info.Config, info.Started.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{store: s, id: info.ID}, nil
}

// LoadRun returns the stored metadata for a run.
func (s *Store) LoadRun(ctx context.Context, id string) (RunInfo, error) {
	db, err := s.getDB()
	if err != nil {
		return RunInfo{}, err
	}
	var (
		info    = RunInfo{ID: id}
		started string
	)
	err = db.QueryRowContext(ctx, `SELECT seed, config, started_at FROM runs WHERE id = ?`, id).
		Scan(&info.Seed, &info.Config, &started)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return RunInfo{}, fmt.Errorf("select run: %w", err)
	}
	info.Started, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return RunInfo{}, fmt.Errorf("parse started_at: %w", err)
	}
	return info, nil
}

// Epochs returns every archived epoch of a run in epoch order.
func (s *Store) Epochs(ctx context.Context, runID string) ([]EpochRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT epoch, population, culled, survivors, born, reseeded,
			survival_rate, drop_rate, top_action, generation_mean, generation_max
		FROM epochs WHERE run_id = ? ORDER BY epoch
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("select epochs: %w", err)
	}
	defer rows.Close()

	var out []EpochRecord
	for rows.Next() {
		r := EpochRecord{RunID: runID}
		if err := rows.Scan(&r.Epoch, &r.Population, &r.Culled, &r.Survivors, &r.Born, &r.Reseeded,
			&r.SurvivalRate, &r.DropRate, &r.TopAction, &r.GenerationMean, &r.GenerationMax); err != nil {
			return nil, fmt.Errorf("scan epoch: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ActionCounts returns the action histogram of one archived epoch keyed by
// action label.
func (s *Store) ActionCounts(ctx context.Context, runID string, epoch int) (map[string]int, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT action, count FROM action_counts WHERE run_id = ? AND epoch = ?
	`, runID, epoch)
	if err != nil {
		return nil, fmt.Errorf("select action counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan action count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// Run archives the epochs of a single run. It implements telemetry.Store.
type Run struct {
	store *Store
	id    string
}

var _ telemetry.Store = (*Run)(nil)

// ID returns the run ID.
func (r *Run) ID() string { return r.id }

// SaveEpoch upserts one epoch and its action histogram in a transaction.
func (r *Run) SaveEpoch(ctx context.Context, stats telemetry.EpochStats, actions []telemetry.ActionRow) error {
	db, err := r.store.getDB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO epochs (run_id, epoch, population, culled, survivors, born, reseeded,
			survival_rate, drop_rate, top_action, generation_mean, generation_max)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, epoch) DO UPDATE SET
			population = excluded.population,
			culled = excluded.culled,
			survivors = excluded.survivors,
			born = excluded.born,
			reseeded = excluded.reseeded,
			survival_rate = excluded.survival_rate,
			drop_rate = excluded.drop_rate,
			top_action = excluded.top_action,
			generation_mean = excluded.generation_mean,
			generation_max = excluded.generation_max
	`, r.id, stats.Epoch, stats.Population, stats.Culled, stats.Survivors, stats.Born, stats.Reseeded,
		stats.SurvivalRate, stats.DropRate, stats.TopAction, stats.GenerationMean, stats.GenerationMax)
	if err != nil {
		return fmt.Errorf("upsert epoch %d: %w", stats.Epoch, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM action_counts WHERE run_id = ? AND epoch = ?`, r.id, stats.Epoch); err != nil {
		return fmt.Errorf("clear action counts: %w", err)
	}
	for _, a := range actions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO action_counts (run_id, epoch, action, count) VALUES (?, ?, ?, ?)
		`, r.id, stats.Epoch, a.Label, a.Count)
		if err != nil {
			return fmt.Errorf("insert action %s: %w", a.Label, err)
		}
	}
	return tx.Commit()
}

func (s *Store) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			config TEXT NOT NULL,
			started_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS epochs (
			run_id TEXT NOT NULL,
			epoch INTEGER NOT NULL,
			population INTEGER NOT NULL,
			culled INTEGER NOT NULL,
			survivors INTEGER NOT NULL,
			born INTEGER NOT NULL,
			reseeded INTEGER NOT NULL,
			survival_rate REAL NOT NULL,
			drop_rate REAL NOT NULL,
			top_action TEXT NOT NULL,
			generation_mean REAL NOT NULL,
			generation_max INTEGER NOT NULL,
			PRIMARY KEY (run_id, epoch)
		);
		CREATE TABLE IF NOT EXISTS action_counts (
			run_id TEXT NOT NULL,
			epoch INTEGER NOT NULL,
			action TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, epoch, action)
		);
	`)
	return err
}
