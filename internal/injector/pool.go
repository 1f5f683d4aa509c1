package injector

import (
	"log/slog"
	"sync"

	"github.com/scanlink/scanlinkd/internal/delivery"
)

const defaultWorkers = 2

// Pool drains the delivery channel on a small fixed set of goroutines
// suited to blocking work — injection is synchronous IPC to system
// daemons (ydotool/xdotool) or direct device writes, and sleeps between
// steps. A failure drops the event; the user rescans.
type Pool struct {
	channel *delivery.Channel
	workers int
	wg      sync.WaitGroup
}

// NewPool creates a worker pool over channel. workers<=0 uses the
// default of 2.
func NewPool(channel *delivery.Channel, workers int) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Pool{channel: channel, workers: workers}
}

// Run starts the workers and blocks until the delivery channel is
// closed and drained.
func (p *Pool) Run() {
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			p.loop()
		}()
	}
	p.wg.Wait()
}

func (p *Pool) loop() {
	for {
		evt, ok := p.channel.Next()
		if !ok {
			return
		}
		backend := Select()
		if err := backend.TypeBarcode(evt.Barcode); err != nil {
			slog.Error("injector failed", "backend", backend.Name(), "deviceId", evt.DeviceID, "error", err)
			continue
		}
		slog.Info("barcode injected", "backend", backend.Name(), "deviceId", evt.DeviceID)
	}
}
