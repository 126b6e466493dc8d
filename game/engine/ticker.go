package engine

import (
	"log/slog"
	"sync"
	"time"
)

// TickInterval is the settlement cadence: one economic pass per second.
const TickInterval = time.Second

// Settler is the surface the ticker drives: one Tick followed by one
// SettleHeartbeat per interval. The engine implements it directly; callers
// that need side effects around settlement (broadcasting, logging) wrap it.
type Settler interface {
	Tick()
	SettleHeartbeat()
}

// Ticker drives the settlement loop. It has two states: idle (no timer
// armed) and running. Start is idempotent; a Stop is offered so tests and
// shutdown paths can tear the loop down, though in normal operation the
// ticker lives as long as the process.
type Ticker struct {
	target   Settler
	interval time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// NewTicker creates an idle ticker for the target at the standard interval.
func NewTicker(s Settler) *Ticker {
	return &Ticker{target: s, interval: TickInterval}
}

// NewTickerWithInterval creates an idle ticker with a custom interval.
// Intended for tests; the game economy assumes one tick per second.
func NewTickerWithInterval(s Settler, interval time.Duration) *Ticker {
	return &Ticker{target: s, interval: interval}
}

// Start arms the timer. Calling Start on a running ticker is a no-op.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	go t.loop(t.stop)
	slog.Info("settlement ticker started", "interval", t.interval)
}

// Stop disarms the timer. Calling Stop on an idle ticker is a no-op.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
	slog.Info("settlement ticker stopped")
}

// Running reports whether the timer is armed.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Ticker) loop(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.target.Tick()
			t.target.SettleHeartbeat()
		}
	}
}
