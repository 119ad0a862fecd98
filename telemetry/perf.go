package telemetry

import (
	"log/slog"
	"time"
)

// PerfCollector tracks wall-clock epoch durations over a rolling window.
type PerfCollector struct {
	windowSize  int
	samples     []time.Duration
	writeIndex  int
	sampleCount int
	epochStart  time.Time

	now func() time.Time
}

// NewPerfCollector creates a new performance collector averaging over the
// last windowSize epochs.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	p := &PerfCollector{
		windowSize: windowSize,
		samples:    make([]time.Duration, windowSize),
		now:        time.Now,
	}
	p.epochStart = p.now()
	return p
}

// StartEpoch restarts the epoch timer.
func (p *PerfCollector) StartEpoch() {
	p.epochStart = p.now()
}

// EndEpoch records the elapsed epoch and restarts the timer. agentTicks is
// the number of agent decisions made during the epoch.
func (p *PerfCollector) EndEpoch(epoch, agentTicks int) PerfStats {
	now := p.now()
	d := now.Sub(p.epochStart)
	p.epochStart = now

	p.samples[p.writeIndex] = d
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}

	var total time.Duration
	for i := 0; i < p.sampleCount; i++ {
		total += p.samples[i]
	}
	avg := total / time.Duration(p.sampleCount)

	s := PerfStats{
		Epoch:      epoch,
		EpochMS:    float64(d.Microseconds()) / 1000,
		AvgEpochMS: float64(avg.Microseconds()) / 1000,
	}
	if d > 0 {
		s.AgentTicksPerSec = float64(agentTicks) / d.Seconds()
	}
	return s
}

// PerfStats holds timing for one epoch.
type PerfStats struct {
	Epoch            int     `csv:"epoch"`
	EpochMS          float64 `csv:"epoch_ms"`
	AvgEpochMS       float64 `csv:"avg_epoch_ms"`
	AgentTicksPerSec float64 `csv:"agent_ticks_per_sec"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("epoch", s.Epoch),
		slog.Float64("epoch_ms", s.EpochMS),
		slog.Float64("avg_epoch_ms", s.AvgEpochMS),
		slog.Int("agent_ticks_per_sec", int(s.AgentTicksPerSec)),
	)
}
