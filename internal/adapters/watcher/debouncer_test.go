package watcher_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bindle/internal/adapters/watcher"
)

type capture struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *capture) add(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, paths)
}

func (c *capture) all() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.batches...)
}

func TestDebouncerCoalesces(t *testing.T) {
	c := &capture{}
	d := watcher.NewDebouncer(20*time.Millisecond, c.add)

	d.Add("a.js")
	d.Add("b.js")
	d.Add("a.js")

	require.Eventually(t, func() bool {
		return len(c.all()) == 1
	}, time.Second, 5*time.Millisecond)

	batches := c.all()
	assert.Len(t, batches[0], 2)
	assert.ElementsMatch(t, []string{"a.js", "b.js"}, batches[0])
}

func TestDebouncerWindowResets(t *testing.T) {
	c := &capture{}
	d := watcher.NewDebouncer(50*time.Millisecond, c.add)

	d.Add("a.js")
	time.Sleep(20 * time.Millisecond)
	d.Add("b.js")
	time.Sleep(20 * time.Millisecond)

	// The window restarted on the second event, so nothing fired yet.
	assert.Empty(t, c.all())

	require.Eventually(t, func() bool {
		return len(c.all()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncerFlush(t *testing.T) {
	c := &capture{}
	d := watcher.NewDebouncer(time.Hour, c.add)

	d.Add("a.js")
	d.Flush()

	batches := c.all()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a.js"}, batches[0])

	// Flushing with nothing pending is a no-op.
	d.Flush()
	assert.Len(t, c.all(), 1)
}
