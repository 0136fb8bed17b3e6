// Package collector aggregates reporter events into a run summary.
package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"georeporter/internal/core"
)

const bufferSize = 1000

// Collector implements core.Recorder. Events are buffered on a channel and
// appended by a single goroutine; when the buffer is full they are dropped.
type Collector struct {
	events    []core.Event
	ch        chan core.Event
	done      chan struct{}
	sendMu    sync.RWMutex
	closed    bool
	dropped   atomic.Int64
	mu        sync.Mutex
	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a Collector and starts its collection goroutine.
func NewCollector() *Collector {
	c := &Collector{
		events:    make([]core.Event, 0),
		ch:        make(chan core.Event, bufferSize),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for event := range c.ch {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	}
	close(c.done)
}

// Record queues an event without blocking the caller.
func (c *Collector) Record(event core.Event) {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.ch <- event:
	default:
		c.dropped.Add(1)
	}
}

// Close stops accepting events and waits for queued ones to be stored.
// It is safe to call more than once.
func (c *Collector) Close() {
	c.sendMu.Lock()
	if !c.closed {
		c.closed = true
		c.mu.Lock()
		c.endTime = time.Now()
		c.mu.Unlock()
		close(c.ch)
	}
	c.sendMu.Unlock()
	<-c.done
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]core.Event, len(c.events))
	copy(result, c.events)
	return result
}

// DroppedEvents returns how many events were discarded.
func (c *Collector) DroppedEvents() int64 {
	return c.dropped.Load()
}

// Duration returns the time from creation to Close, or to now while the
// collector is still open.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.endTime.IsZero() {
		return c.endTime.Sub(c.startTime)
	}
	return time.Since(c.startTime)
}

// Summarize computes the summary of everything collected so far.
func (c *Collector) Summarize() *Summary {
	s := Summarize(c.Events(), c.Duration())
	s.Dropped = c.DroppedEvents()
	return s
}
