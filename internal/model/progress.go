package model

import (
	"time"
)

const (
	// progressEMAAlpha is the smoothing factor of the rate moving average.
	progressEMAAlpha = 0.3
	// progressMinInterval coalesces back-to-back updates, their elapsed time
	// is too small to produce a meaningful rate sample.
	progressMinInterval = 10 * time.Millisecond
	// progressPercentCap is the maximum completion percent reported until the
	// task is explicitly completed.
	progressPercentCap = 99.9
)

// ProgressStats tracks generated unit counts and a smoothed throughput
// estimate for one unit of work. It is owned by exactly one task and must be
// updated only through the task's progress entry point.
type ProgressStats struct {
	// UnitsDone is the total number of units (e.g. tokens) generated so far.
	UnitsDone int
	// EstimatedTotal is the expected total number of units, 0 when unknown.
	EstimatedTotal int
	StartedAt      time.Time
	LastUpdateAt   time.Time
	// RatePerSecond is an exponential moving average of the generation rate.
	RatePerSecond float64
	// CompletionPercent is nil until a total estimate exists. It is capped at
	// 99.9 until Complete is called, which sets it to 100.
	CompletionPercent *float64
}

// NewProgressStats returns zeroed progress stats starting now.
func NewProgressStats() *ProgressStats {
	now := time.Now().UTC()
	return &ProgressStats{
		StartedAt:    now,
		LastUpdateAt: now,
	}
}

// Update registers a new total unit count and recomputes the smoothed rate
// from the wall-clock time elapsed since the previous update. Updates closer
// than 10ms to the previous one are ignored.
func (p *ProgressStats) Update(unitsDone int) {
	now := time.Now().UTC()
	elapsed := now.Sub(p.LastUpdateAt)
	if elapsed < progressMinInterval {
		return
	}

	newUnits := unitsDone - p.UnitsDone
	if newUnits < 0 {
		newUnits = 0
	}
	instantRate := float64(newUnits) / elapsed.Seconds()

	if p.RatePerSecond > 0 {
		p.RatePerSecond = (1-progressEMAAlpha)*p.RatePerSecond + progressEMAAlpha*instantRate
	} else {
		p.RatePerSecond = instantRate
	}

	p.UnitsDone = unitsDone
	p.LastUpdateAt = now

	if p.EstimatedTotal > 0 {
		percent := float64(unitsDone) / float64(p.EstimatedTotal) * 100
		if percent > progressPercentCap {
			percent = progressPercentCap
		}
		p.CompletionPercent = &percent
	}
}

// Complete marks the work as fully done.
func (p *ProgressStats) Complete() {
	percent := 100.0
	p.CompletionPercent = &percent
}

// EstimatedRemaining returns the estimated time left based on the current
// rate, false when there is not enough information.
func (p ProgressStats) EstimatedRemaining() (time.Duration, bool) {
	if p.RatePerSecond <= 0 || p.EstimatedTotal <= 0 {
		return 0, false
	}

	remaining := p.EstimatedTotal - p.UnitsDone
	if remaining < 0 {
		remaining = 0
	}

	return time.Duration(float64(remaining) / p.RatePerSecond * float64(time.Second)), true
}

// Copy returns a deep copy of the progress stats.
func (p ProgressStats) Copy() ProgressStats {
	newProgress := p
	if p.CompletionPercent != nil {
		v := *p.CompletionPercent
		newProgress.CompletionPercent = &v
	}

	return newProgress
}
