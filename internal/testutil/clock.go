package testutil

import (
	"fmt"
	"sync"
	"time"

	"startctl/internal/startup"
)

// LogonTime is where test clocks start: a Monday morning logon.
var LogonTime = time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC)

// Clock is a startup.Clock that only moves when advanced.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

var _ startup.Clock = (*Clock)(nil)

// LogonClock returns a Clock set to LogonTime.
func LogonClock() *Clock {
	return &Clock{now: LogonTime}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward, e.g. to get a second backup name.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// BatchIDs hands out apply batch ids in order: batch-001, batch-002, ...
type BatchIDs struct {
	mu sync.Mutex
	n  int
}

var _ startup.IDGenerator = (*BatchIDs)(nil)

func NewBatchIDs() *BatchIDs { return &BatchIDs{} }

func (g *BatchIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("batch-%03d", g.n)
}
