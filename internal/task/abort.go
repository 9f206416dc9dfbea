package task

import (
	"sync/atomic"
)

// Controller owns the process wide abort flag and mints per task signals tied
// to it. One controller per process, shared by every worker.
type Controller struct {
	global atomic.Bool
}

// NewController returns a new abort controller.
func NewController() *Controller {
	return &Controller{}
}

// AbortAll raises the process wide abort flag. Every signal minted by this
// controller observes it on its next check.
func (c *Controller) AbortAll() {
	c.global.Store(true)
}

// Reset clears the process wide abort flag. Called before dispatching new
// work so a previous abort doesn't leak into it.
func (c *Controller) Reset() {
	c.global.Store(false)
}

// Aborted returns whether the process wide flag is set.
func (c *Controller) Aborted() bool {
	return c.global.Load()
}

// NewSignal returns a fresh per task signal that shares this controller's
// global flag.
func (c *Controller) NewSignal() *Signal {
	return &Signal{global: &c.global}
}

// Signal is a pair of advisory abort flags for one task: a task scoped flag
// and a reference to the process wide one. The flags don't stop anything by
// themselves, workers poll them and abandon the work when either is set.
//
// The zero value is a valid detached signal with no global flag.
type Signal struct {
	local  atomic.Bool
	global *atomic.Bool
}

// Request raises the task scoped abort flag.
func (s *Signal) Request() {
	s.local.Store(true)
}

// Requested returns whether an abort has been requested through either flag.
// When only the global flag is set it is propagated to the local one, so
// subsequent checks stay cheap and every reader observes a consistent value.
func (s *Signal) Requested() bool {
	if s.local.Load() {
		return true
	}

	if s.global != nil && s.global.Load() {
		s.local.Store(true)
		return true
	}

	return false
}
