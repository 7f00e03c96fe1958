// Package watcher implements file system watching for dependency map
// invalidation.
package watcher

import (
	"sync"
	"time"
	"unique"
)

// Debouncer coalesces a burst of file system events into one batched
// notification: every Add resets the window, and the callback fires with the
// deduplicated path set once the window passes without a new event.
type Debouncer struct {
	mu       sync.Mutex
	pending  map[unique.Handle[string]]struct{}
	timer    *time.Timer
	window   time.Duration
	callback func(paths []string)
}

// NewDebouncer creates a debouncer firing callback after window of quiet.
func NewDebouncer(window time.Duration, callback func(paths []string)) *Debouncer {
	return &Debouncer{
		pending:  make(map[unique.Handle[string]]struct{}),
		window:   window,
		callback: callback,
	}
}

// Add records a changed path and restarts the quiet window. Paths are
// interned, so repeated events for the same file collapse to one entry.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[unique.Make(path)] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// fire runs when the window expires, handing the batch to the callback on its
// own goroutine.
func (d *Debouncer) fire() {
	paths := d.take(false)
	if len(paths) > 0 && d.callback != nil {
		go d.callback(paths)
	}
}

// Flush delivers any pending batch synchronously and returns once the
// callback has run, so a stopping watcher does not lose its final events.
func (d *Debouncer) Flush() {
	paths := d.take(true)
	if len(paths) > 0 && d.callback != nil {
		d.callback(paths)
	}
}

// take drains the pending set and clears the timer. During a flush, a timer
// that already fired wins; the batch is left for it to deliver.
func (d *Debouncer) take(flushing bool) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if flushing && d.timer != nil && !d.timer.Stop() {
		return nil
	}
	d.timer = nil

	paths := make([]string, 0, len(d.pending))
	for handle := range d.pending {
		paths = append(paths, handle.Value())
	}
	d.pending = make(map[unique.Handle[string]]struct{})
	return paths
}
