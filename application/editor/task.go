package editor

import (
	"sync"
	"time"
)

// TaskTimer runs at most one scheduled callback at a time. Scheduling
// while a callback is pending cancels the previous one first, so the
// owner never has two live timers. Callbacks run on their own goroutine;
// owners that share state with the callback must guard it themselves.
type TaskTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// NewTaskTimer creates an idle task timer.
func NewTaskTimer() *TaskTimer {
	return &TaskTimer{}
}

// Schedule arms the timer to run fn after delay, replacing any pending
// callback.
func (t *TaskTimer) Schedule(delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(delay, fn)
}

// Cancel stops the pending callback if one exists. It reports whether a
// callback was still pending. A callback that has already started
// running is not interrupted.
func (t *TaskTimer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer == nil {
		return false
	}
	stopped := t.timer.Stop()
	t.timer = nil
	return stopped
}
