// Package delivery implements the unbounded single-consumer queue that
// carries validated barcode scans from the transport to the injector.
package delivery

import "sync"

// BarcodeEvent is one accepted scan, ready for the injector.
type BarcodeEvent struct {
	Barcode    string
	Timestamp  int64
	DeviceID   string
	DeviceName string
}

// Channel is an unbounded, single-consumer FIFO queue. Producers never
// block: Push appends to an internal slice and signals a waiting
// consumer; the queue itself has no capacity limit, so a slow consumer
// causes unbounded memory growth rather than backpressure on the
// transport (the transport must never block on a scan).
type Channel struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []BarcodeEvent
	closed bool
}

// NewChannel creates an empty delivery channel.
func NewChannel() *Channel {
	c := &Channel{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Push enqueues an event. A no-op once the channel has been closed.
func (c *Channel) Push(evt BarcodeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.queue = append(c.queue, evt)
	c.cond.Signal()
}

// Next blocks until an event is available or the channel is closed.
// Returns ok=false once the channel is closed and drained.
func (c *Channel) Next() (BarcodeEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.queue) == 0 && !c.closed {
		c.cond.Wait()
	}
	if len(c.queue) == 0 {
		return BarcodeEvent{}, false
	}
	evt := c.queue[0]
	c.queue = c.queue[1:]
	return evt, true
}

// Close stops the channel. Any consumer blocked in Next wakes and
// observes ok=false once the backlog is drained.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cond.Broadcast()
}

// Len reports the current backlog size, for diagnostics.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
