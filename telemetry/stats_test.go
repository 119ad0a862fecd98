package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/evolve/ecosystem"
	"github.com/pthm-cable/evolve/neural"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Distribution
	}{
		{"empty", nil, Distribution{}},
		{"single", []float64{4}, Distribution{Mean: 4, P10: 4, P50: 4, P90: 4}},
		{"odd", []float64{5, 1, 3, 2, 4}, Distribution{Mean: 3, Std: math.Sqrt(2.5), P10: 1, P50: 3, P90: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.values)
			for _, f := range []struct {
				name      string
				got, want float64
			}{
				{"mean", got.Mean, tt.want.Mean},
				{"std", got.Std, tt.want.Std},
				{"p10", got.P10, tt.want.P10},
				{"p50", got.P50, tt.want.P50},
				{"p90", got.P90, tt.want.P90},
			} {
				if math.Abs(f.got-f.want) > 1e-9 {
					t.Errorf("%s = %v, want %v", f.name, f.got, f.want)
				}
			}
		})
	}
}

func TestSummarizeLeavesInputUnsorted(t *testing.T) {
	values := []float64{3, 1, 2}
	Summarize(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input reordered: %v", values)
	}
}

func sampleReport() ecosystem.EpochReport {
	return ecosystem.EpochReport{
		Epoch:      2,
		Steps:      10,
		Population: 4,
		Culled:     1,
		Survivors:  3,
		Born:       1,
		Applied:    30,
		Dropped:    10,
		Idle:       0,
		Histogram: []ecosystem.HistogramEntry{
			{Kind: neural.KindMoveForward, Label: "MoveF", Count: 30},
			{Kind: neural.KindNull, Label: "null", Count: 10},
		},
		Samples: []ecosystem.AgentSample{
			{X: 0, Border: 1, Generation: 0, Age: 2},
			{X: 2, Border: 0, Generation: 1, Age: 1},
			{X: 4, Border: 0.5, Generation: 2, Age: 0},
			{X: 6, Border: 1, Generation: 3, Age: 0},
		},
	}
}

func TestCompute(t *testing.T) {
	s := Compute(sampleReport())
	if s.SurvivalRate != 0.75 {
		t.Errorf("survival rate = %v", s.SurvivalRate)
	}
	if s.DropRate != 0.25 {
		t.Errorf("drop rate = %v", s.DropRate)
	}
	if s.TopAction != "MoveF" {
		t.Errorf("top action = %q", s.TopAction)
	}
	if s.GenerationMean != 1.5 || s.GenerationMax != 3 {
		t.Errorf("generations: mean %v max %d", s.GenerationMean, s.GenerationMax)
	}
	if s.XMean != 3 {
		t.Errorf("x mean = %v", s.XMean)
	}
	if s.BorderMean != 0.625 {
		t.Errorf("border mean = %v", s.BorderMean)
	}
}

func TestComputeEmptyEpoch(t *testing.T) {
	s := Compute(ecosystem.EpochReport{Epoch: 1})
	if s.SurvivalRate != 0 || s.DropRate != 0 || s.TopAction != "" {
		t.Errorf("empty epoch stats: %+v", s)
	}
}

func TestActionRows(t *testing.T) {
	rows := ActionRows(sampleReport())
	if len(rows) != 2 {
		t.Fatalf("%d rows", len(rows))
	}
	if rows[0].Label != "MoveF" || rows[0].Share != 0.75 || rows[0].Epoch != 2 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Share != 0.25 {
		t.Errorf("row 1 = %+v", rows[1])
	}
}
