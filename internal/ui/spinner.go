package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/slok/aico/internal/model"
	"github.com/slok/aico/internal/task"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner renders an in-place activity indicator for one task while it is
// active, refreshing its progress on every frame. It stops on its own when
// the task reaches a terminal status.
type Spinner struct {
	w        io.Writer
	registry *task.Registry
	taskID   model.TaskID
}

// NewSpinner creates a spinner for the given task.
func NewSpinner(w io.Writer, registry *task.Registry, taskID model.TaskID) *Spinner {
	return &Spinner{
		w:        w,
		registry: registry,
		taskID:   taskID,
	}
}

// Run renders frames until the task finishes, then clears the line. Blocking,
// run it on its own goroutine.
func (s *Spinner) Run() {
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	frame := 0
	for range ticker.C {
		t, err := s.registry.Get(s.taskID)
		if err != nil || t.Status.Terminal() {
			break
		}

		fmt.Fprintf(s.w, "\r\033[K%s %s %s", spinnerFrames[frame], t.Name, spinnerProgress(t.Progress))
		frame = (frame + 1) % len(spinnerFrames)
	}

	// Clear the spinner line.
	fmt.Fprint(s.w, "\r\033[K")
}

func spinnerProgress(p *model.ProgressStats) string {
	if p == nil {
		return ""
	}

	if p.CompletionPercent != nil {
		return fmt.Sprintf("%.1f%%", *p.CompletionPercent)
	}

	if p.RatePerSecond > 0 {
		return fmt.Sprintf("%d tokens (%.1f/s)", p.UnitsDone, p.RatePerSecond)
	}

	return fmt.Sprintf("%d tokens", p.UnitsDone)
}
