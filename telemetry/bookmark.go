package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkDivergenceSpike BookmarkType = "divergence_spike"
	BookmarkPlumeAtCeiling  BookmarkType = "plume_at_ceiling"
	BookmarkDissipated      BookmarkType = "dissipated"
)

// Bookmark marks a notable moment in a run.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Step        int          `csv:"step" json:"step"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	logger.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"description", b.Description,
	)
}

// BookmarkDetector watches successive FieldStats for notable moments.
type BookmarkDetector struct {
	gridHeight int

	// Rolling history (circular buffer)
	history     []FieldStats
	historySize int
	historyIdx  int
	historyFull bool

	peakDensity   float64
	reachedTop    bool
	dissipatedHit bool
}

// NewBookmarkDetector creates a detector with the given history size for
// a grid gridHeight cells tall.
func NewBookmarkDetector(historySize, gridHeight int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		gridHeight:  gridHeight,
		history:     make([]FieldStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats FieldStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkDivergenceSpike(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkCeiling(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkDissipated(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	bd.peakDensity = max(bd.peakDensity, stats.TotalDensity)
	return bookmarks
}

// Reset forgets all history, as after a simulation restart.
func (bd *BookmarkDetector) Reset() {
	*bd = *NewBookmarkDetector(bd.historySize, bd.gridHeight)
}

func (bd *BookmarkDetector) addToHistory(stats FieldStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []FieldStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkDivergenceSpike flags a projection that failed to keep up: max
// divergence above 1 and 4x its rolling average.
func (bd *BookmarkDetector) checkDivergenceSpike(stats FieldStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var sum float64
	for _, h := range history {
		sum += h.MaxDivergence
	}
	avg := sum / float64(len(history))
	if avg == 0 || stats.MaxDivergence < 1 {
		return nil
	}
	if stats.MaxDivergence > avg*4 {
		return &Bookmark{
			Type:        BookmarkDivergenceSpike,
			Step:        stats.Step,
			Description: fmt.Sprintf("Max divergence %.3f is %.1fx average (%.3f)", stats.MaxDivergence, stats.MaxDivergence/avg, avg),
		}
	}
	return nil
}

// checkCeiling fires once when the smoke centroid passes three quarters
// of the grid height.
func (bd *BookmarkDetector) checkCeiling(stats FieldStats) *Bookmark {
	if bd.reachedTop || bd.gridHeight <= 0 || stats.TotalDensity == 0 {
		return nil
	}
	limit := 0.75 * float64(bd.gridHeight)
	if stats.CentroidY < limit {
		return nil
	}
	bd.reachedTop = true
	return &Bookmark{
		Type:        BookmarkPlumeAtCeiling,
		Step:        stats.Step,
		Description: fmt.Sprintf("Smoke centroid at %.1f of %d cells", stats.CentroidY, bd.gridHeight),
	}
}

// checkDissipated fires once when total density falls below 1% of its
// peak.
func (bd *BookmarkDetector) checkDissipated(stats FieldStats) *Bookmark {
	if bd.dissipatedHit || bd.peakDensity == 0 {
		return nil
	}
	if stats.TotalDensity >= bd.peakDensity*0.01 {
		return nil
	}
	bd.dissipatedHit = true
	return &Bookmark{
		Type:        BookmarkDissipated,
		Step:        stats.Step,
		Description: fmt.Sprintf("Total density %.3g is below 1%% of peak %.3g", stats.TotalDensity, bd.peakDensity),
	}
}
