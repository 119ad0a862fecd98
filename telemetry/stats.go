package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/evolve/ecosystem"
)

// EpochStats holds aggregated statistics for one epoch.
type EpochStats struct {
	Epoch int `csv:"epoch"`
	Steps int `csv:"steps"`

	// Population flow
	Population   int     `csv:"population"`
	Culled       int     `csv:"culled"`
	Survivors    int     `csv:"survivors"`
	Born         int     `csv:"born"`
	Reseeded     bool    `csv:"reseeded"`
	SurvivalRate float64 `csv:"survival_rate"`

	// Actions over the epoch
	Applied   int     `csv:"applied"`
	Dropped   int     `csv:"dropped"`
	Idle      int     `csv:"idle"`
	DropRate  float64 `csv:"drop_rate"` // dropped / picked non-idle actions
	TopAction string  `csv:"top_action"`

	// Lineage distribution (sampled before culling)
	GenerationMean float64 `csv:"generation_mean"`
	GenerationMax  int     `csv:"generation_max"`
	AgeMean        float64 `csv:"age_mean"`
	AgeP50         float64 `csv:"age_p50"`
	AgeP90         float64 `csv:"age_p90"`

	// Spatial spread (sampled before culling)
	XMean      float64 `csv:"x_mean"`
	XStd       float64 `csv:"x_std"`
	BorderMean float64 `csv:"border_mean"`
	BorderP10  float64 `csv:"border_p10"`
	BorderP50  float64 `csv:"border_p50"`
	BorderP90  float64 `csv:"border_p90"`
}

// ActionRow is one line of the per-epoch action histogram.
type ActionRow struct {
	Epoch int     `csv:"epoch"`
	Label string  `csv:"action"`
	Count int     `csv:"count"`
	Share float64 `csv:"share"`
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize computes mean, standard deviation and empirical quantiles.
// An empty sample yields zeros; a single value has zero spread.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var d Distribution
	if len(sorted) == 1 {
		d.Mean = sorted[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(sorted, nil)
	}
	d.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	d.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	d.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return d
}

// Compute aggregates an epoch report.
func Compute(r ecosystem.EpochReport) EpochStats {
	s := EpochStats{
		Epoch:      r.Epoch,
		Steps:      r.Steps,
		Population: r.Population,
		Culled:     r.Culled,
		Survivors:  r.Survivors,
		Born:       r.Born,
		Reseeded:   r.Reseeded,
		Applied:    r.Applied,
		Dropped:    r.Dropped,
		Idle:       r.Idle,
	}
	if r.Population > 0 {
		s.SurvivalRate = float64(r.Survivors) / float64(r.Population)
	}
	if picked := r.Applied + r.Dropped; picked > 0 {
		s.DropRate = float64(r.Dropped) / float64(picked)
	}
	if len(r.Histogram) > 0 {
		s.TopAction = r.Histogram[0].Label
	}

	n := len(r.Samples)
	if n == 0 {
		return s
	}
	gens := make([]float64, n)
	ages := make([]float64, n)
	xs := make([]float64, n)
	borders := make([]float64, n)
	for i, a := range r.Samples {
		gens[i] = float64(a.Generation)
		ages[i] = float64(a.Age)
		xs[i] = float64(a.X)
		borders[i] = a.Border
		s.GenerationMax = max(s.GenerationMax, a.Generation)
	}
	s.GenerationMean = stat.Mean(gens, nil)

	age := Summarize(ages)
	s.AgeMean, s.AgeP50, s.AgeP90 = age.Mean, age.P50, age.P90

	x := Summarize(xs)
	s.XMean, s.XStd = x.Mean, x.Std

	b := Summarize(borders)
	s.BorderMean, s.BorderP10, s.BorderP50, s.BorderP90 = b.Mean, b.P10, b.P50, b.P90
	return s
}

// ActionRows converts an epoch histogram into CSV rows.
func ActionRows(r ecosystem.EpochReport) []ActionRow {
	total := 0
	for _, e := range r.Histogram {
		total += e.Count
	}
	rows := make([]ActionRow, 0, len(r.Histogram))
	for _, e := range r.Histogram {
		row := ActionRow{Epoch: r.Epoch, Label: e.Label, Count: e.Count}
		if total > 0 {
			row.Share = float64(e.Count) / float64(total)
		}
		rows = append(rows, row)
	}
	return rows
}

// LogValue implements slog.LogValuer for structured logging.
func (s EpochStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("epoch", s.Epoch),
		slog.Int("population", s.Population),
		slog.Int("culled", s.Culled),
		slog.Int("survivors", s.Survivors),
		slog.Int("born", s.Born),
		slog.Bool("reseeded", s.Reseeded),
		slog.Float64("survival_rate", round3(s.SurvivalRate)),
		slog.Float64("drop_rate", round3(s.DropRate)),
		slog.String("top_action", s.TopAction),
		slog.Float64("generation_mean", round3(s.GenerationMean)),
		slog.Int("generation_max", s.GenerationMax),
		slog.Float64("border_mean", round3(s.BorderMean)),
	)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
