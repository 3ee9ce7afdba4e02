package telemetry

import (
	"log/slog"
	"time"
)

// Phase names. The solver stages are reported by solver.Solver, the
// render passes by renderer.Renderer.
const (
	PhaseAdvect    = "advect"
	PhaseBuoyancy  = "buoyancy"
	PhaseImpulse   = "impulse"
	PhaseDiffuse   = "diffuse"
	PhaseProject   = "project"
	PhaseIntersect = "intersect"
	PhaseRaycast   = "raycast"
	PhaseTelemetry = "telemetry"
)

// Phases lists every phase in pipeline order.
var Phases = []string{
	PhaseAdvect, PhaseBuoyancy, PhaseImpulse, PhaseDiffuse, PhaseProject,
	PhaseIntersect, PhaseRaycast, PhaseTelemetry,
}

func phaseIndex(phase string) int {
	for i, p := range Phases {
		if p == phase {
			return i
		}
	}
	return -1
}

// DeviceHooks connect the collector to the device executing the passes.
// Either hook may be nil.
type DeviceHooks struct {
	// Sync blocks until submitted passes have executed. When set, it runs
	// at every phase boundary so a phase measures GPU time instead of
	// submission time. Syncing stalls the pipeline.
	Sync func()
	// Passes returns the device's running pass count.
	Passes func() int
}

// phaseSample is one step's time and pass count per phase, indexed like
// Phases.
type phaseSample struct {
	step       time.Duration
	stepPasses int
	elapsed    []time.Duration
	passes     []int
}

// PerfCollector tracks per-phase step time and pass counts over a rolling
// window of steps.
type PerfCollector struct {
	hooks DeviceHooks

	windowSize  int
	samples     []phaseSample
	writeIndex  int
	sampleCount int

	current     phaseSample
	stepStart   time.Time
	stepPasses  int
	phaseStart  time.Time
	passesStart int
	lastPhase   int

	// Frame timing (interactive mode)
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize steps.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	p := &PerfCollector{
		windowSize: windowSize,
		samples:    make([]phaseSample, windowSize),
		lastPhase:  -1,
	}
	for i := range p.samples {
		p.samples[i] = newPhaseSample()
	}
	p.current = newPhaseSample()
	return p
}

func newPhaseSample() phaseSample {
	return phaseSample{
		elapsed: make([]time.Duration, len(Phases)),
		passes:  make([]int, len(Phases)),
	}
}

// SetDeviceHooks attaches device hooks. Call it between steps.
func (p *PerfCollector) SetDeviceHooks(h DeviceHooks) {
	p.hooks = h
}

// Synced reports whether phases measure GPU time.
func (p *PerfCollector) Synced() bool {
	return p.hooks.Sync != nil
}

func (p *PerfCollector) mark() (time.Time, int) {
	if p.hooks.Sync != nil {
		p.hooks.Sync()
	}
	passes := 0
	if p.hooks.Passes != nil {
		passes = p.hooks.Passes()
	}
	return time.Now(), passes
}

// closePhase charges the time and passes since the last mark to the
// running phase.
func (p *PerfCollector) closePhase(now time.Time, passes int) {
	if p.lastPhase >= 0 {
		p.current.elapsed[p.lastPhase] += now.Sub(p.phaseStart)
		p.current.passes[p.lastPhase] += passes - p.passesStart
	}
	p.phaseStart = now
	p.passesStart = passes
}

// StartStep begins timing a new step.
func (p *PerfCollector) StartStep() {
	now, passes := p.mark()
	p.stepStart = now
	p.stepPasses = passes
	p.phaseStart = now
	p.passesStart = passes
	p.lastPhase = -1
	clear(p.current.elapsed)
	clear(p.current.passes)
}

// StartPhase ends the running phase, if any, and begins timing phase.
// Unknown phases stop the running phase without starting a new one.
func (p *PerfCollector) StartPhase(phase string) {
	now, passes := p.mark()
	p.closePhase(now, passes)
	p.lastPhase = phaseIndex(phase)
}

// EndStep finishes timing the current step and records the sample.
func (p *PerfCollector) EndStep() {
	now, passes := p.mark()
	p.closePhase(now, passes)
	p.lastPhase = -1

	s := &p.samples[p.writeIndex]
	s.step = now.Sub(p.stepStart)
	s.stepPasses = passes - p.stepPasses
	copy(s.elapsed, p.current.elapsed)
	copy(s.passes, p.current.passes)
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// RecordFrame records frame timing for interactive mode.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgStepDuration time.Duration
	MinStepDuration time.Duration
	MaxStepDuration time.Duration

	// Average duration, share of the step and passes per phase. Phases
	// that never ran are absent.
	PhaseAvg    map[string]time.Duration
	PhasePct    map[string]float64
	PhasePasses map[string]float64

	// PassesPerStep is the average number of passes drawn per step, zero
	// without a pass counter.
	PassesPerStep float64
	// Synced is set when phase times are GPU times.
	Synced bool

	StepsPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	stats := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		PhasePasses:   make(map[string]float64),
		Synced:        p.Synced(),
		FrameDuration: p.frameDuration,
		FPS:           fps,
	}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	var passes int
	timeSum := make([]time.Duration, len(Phases))
	passSum := make([]int, len(Phases))
	ran := make([]bool, len(Phases))
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.step
		passes += s.stepPasses
		if i == 0 || s.step < stats.MinStepDuration {
			stats.MinStepDuration = s.step
		}
		if s.step > stats.MaxStepDuration {
			stats.MaxStepDuration = s.step
		}
		for j := range Phases {
			timeSum[j] += s.elapsed[j]
			passSum[j] += s.passes[j]
			ran[j] = ran[j] || s.elapsed[j] > 0 || s.passes[j] > 0
		}
	}

	n := time.Duration(p.sampleCount)
	stats.AvgStepDuration = total / n
	for j, phase := range Phases {
		if !ran[j] {
			continue
		}
		stats.PhaseAvg[phase] = timeSum[j] / n
		stats.PhasePasses[phase] = float64(passSum[j]) / float64(p.sampleCount)
		if stats.AvgStepDuration > 0 {
			stats.PhasePct[phase] = float64(stats.PhaseAvg[phase]) / float64(stats.AvgStepDuration) * 100
		}
	}
	stats.PassesPerStep = float64(passes) / float64(p.sampleCount)
	if stats.AvgStepDuration > 0 {
		stats.StepsPerSecond = float64(time.Second) / float64(stats.AvgStepDuration)
	}
	return stats
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats(logger *slog.Logger) {
	attrs := []any{
		"avg_step_us", s.AvgStepDuration.Microseconds(),
		"min_step_us", s.MinStepDuration.Microseconds(),
		"max_step_us", s.MaxStepDuration.Microseconds(),
		"steps_per_sec", int(s.StepsPerSecond),
		"synced", s.Synced,
	}
	if s.PassesPerStep > 0 {
		attrs = append(attrs, "passes_per_step", int(s.PassesPerStep))
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}
	logger.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_step_us", s.AvgStepDuration.Microseconds()),
		slog.Int64("min_step_us", s.MinStepDuration.Microseconds()),
		slog.Int64("max_step_us", s.MaxStepDuration.Microseconds()),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
		slog.Float64("passes_per_step", s.PassesPerStep),
		slog.Bool("synced", s.Synced),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Step          int     `csv:"step"`
	AvgStepUS     int64   `csv:"avg_step_us"`
	MinStepUS     int64   `csv:"min_step_us"`
	MaxStepUS     int64   `csv:"max_step_us"`
	StepsPerSec   float64 `csv:"steps_per_sec"`
	FPS           float64 `csv:"fps"`
	PassesPerStep float64 `csv:"passes_per_step"`
	Synced        bool    `csv:"synced"`
	AdvectPct     float64 `csv:"advect_pct"`
	BuoyancyPct   float64 `csv:"buoyancy_pct"`
	ImpulsePct    float64 `csv:"impulse_pct"`
	DiffusePct    float64 `csv:"diffuse_pct"`
	ProjectPct    float64 `csv:"project_pct"`
	IntersectPct  float64 `csv:"intersect_pct"`
	RaycastPct    float64 `csv:"raycast_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(step int) PerfStatsCSV {
	return PerfStatsCSV{
		Step:          step,
		AvgStepUS:     s.AvgStepDuration.Microseconds(),
		MinStepUS:     s.MinStepDuration.Microseconds(),
		MaxStepUS:     s.MaxStepDuration.Microseconds(),
		StepsPerSec:   s.StepsPerSecond,
		FPS:           s.FPS,
		PassesPerStep: s.PassesPerStep,
		Synced:        s.Synced,
		AdvectPct:     s.PhasePct[PhaseAdvect],
		BuoyancyPct:   s.PhasePct[PhaseBuoyancy],
		ImpulsePct:    s.PhasePct[PhaseImpulse],
		DiffusePct:    s.PhasePct[PhaseDiffuse],
		ProjectPct:    s.PhasePct[PhaseProject],
		IntersectPct:  s.PhasePct[PhaseIntersect],
		RaycastPct:    s.PhasePct[PhaseRaycast],
		TelemetryPct:  s.PhasePct[PhaseTelemetry],
	}
}
