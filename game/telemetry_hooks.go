package game

import (
	"errors"
	"time"

	"github.com/pthm-cable/plume/gpu"
	"github.com/pthm-cable/plume/telemetry"
)

// deviceHooks connects the perf collector to the device's pass counter,
// and to its finish call when sync is set.
func deviceHooks(dev gpu.Device, sync bool) telemetry.DeviceHooks {
	var h telemetry.DeviceHooks
	if c, ok := dev.(interface{ Draws() int }); ok {
		h.Passes = c.Draws
	}
	if f, ok := dev.(interface{ Finish() }); ok && sync {
		h.Sync = f.Finish
	}
	return h
}

// runStep times one frame of work and runs the telemetry that falls due
// after it.
func (g *Game) runStep(work func() error) error {
	g.perf.StartStep()
	err := work()
	if g.sampleDue() {
		g.perf.StartPhase(telemetry.PhaseTelemetry)
		g.sampleFields()
	}
	g.perf.EndStep()

	window := time.Duration(g.cfg.Telemetry.StatsWindow * float64(time.Second))
	if time.Since(g.lastPerfFlush) >= window {
		g.flushPerf()
	}
	return err
}

// sampleDue reports whether the current step should be sampled. Paused
// steps are not sampled twice.
func (g *Game) sampleDue() bool {
	interval := g.cfg.Telemetry.SampleInterval
	step := g.Step()
	if interval <= 0 || step == 0 || g.VolumeOnly() {
		return false
	}
	return step%interval == 0 && (!g.haveStats || g.lastStats.Step != step)
}

// sampleFields reads the fields back, records their statistics and
// handles any bookmarks they trigger.
func (g *Game) sampleFields() {
	f, err := g.renderer.FieldData()
	if err != nil {
		g.logger.Error("failed to read fields", "error", err)
		return
	}
	stats := telemetry.ComputeFieldStats(g.Step(), f)
	g.lastStats = stats
	g.haveStats = true

	if g.logStats {
		stats.LogStats(g.logger)
	}
	if err := g.output.WriteFields(stats); err != nil {
		g.logger.Error("failed to write field stats", "error", err)
	}

	for _, bm := range g.bookmarks.Check(stats) {
		if g.logStats {
			bm.LogBookmark(g.logger)
		}
		if err := g.output.WriteBookmark(bm); err != nil {
			g.logger.Error("failed to write bookmark", "error", err)
		}
		if g.output == nil {
			continue
		}
		snap := newSnapshot(f, stats)
		snap.Bookmark = &bm
		if path, err := g.output.WriteSnapshot(snap); err != nil {
			g.logger.Error("failed to write snapshot", "error", err)
		} else {
			g.logger.Info("snapshot saved", "path", path, "bookmark", bm.Type)
		}
	}
}

// flushPerf reports the perf window.
func (g *Game) flushPerf() {
	stats := g.perf.Stats()
	if g.logStats {
		stats.LogStats(g.logger)
	}
	if err := g.output.WritePerf(stats, g.Step()); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}
	g.lastPerfFlush = time.Now()
}

func newSnapshot(f telemetry.FieldData, stats telemetry.FieldStats) *telemetry.Snapshot {
	return &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		Step:        stats.Step,
		Width:       f.W,
		Height:      f.H,
		Depth:       f.D,
		Density:     f.Density,
		Temperature: f.Temperature,
		Stats:       &stats,
	}
}

// errNoOutput is returned when a snapshot is requested without an
// output directory.
var errNoOutput = errors.New("no output directory")

// SaveSnapshot writes the current fields to the output directory.
func (g *Game) SaveSnapshot() (string, error) {
	if g.output == nil {
		return "", errNoOutput
	}
	f, err := g.renderer.FieldData()
	if err != nil {
		return "", err
	}
	snap := newSnapshot(f, telemetry.ComputeFieldStats(g.Step(), f))
	return g.output.WriteSnapshot(snap)
}
