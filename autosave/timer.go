package autosave

import "time"

// debounceTimer is a cancellable one-shot timer. C returns nil while the
// timer is idle, which blocks forever inside a select, so the owning loop
// needs no armed/idle bookkeeping of its own.
type debounceTimer struct {
	timer *time.Timer
}

func newDebounceTimer() *debounceTimer {
	return &debounceTimer{}
}

// Reset arms the timer for d, cancelling any pending expiry first.
func (t *debounceTimer) Reset(d time.Duration) {
	if t.timer == nil {
		t.timer = time.NewTimer(d)
		return
	}
	if !t.timer.Stop() {
		select {
		case <-t.timer.C:
		default:
		}
	}
	t.timer.Reset(d)
}

func (t *debounceTimer) Cancel() {
	if t.timer == nil {
		return
	}
	if !t.timer.Stop() {
		select {
		case <-t.timer.C:
		default:
		}
	}
	t.timer = nil
}

func (t *debounceTimer) C() <-chan time.Time {
	if t.timer == nil {
		return nil
	}
	return t.timer.C
}
