package timer

import (
	"sync"
	"time"

	"study_timer/internal/clock"
)

// Ticker is the redraw clock. It holds at most one periodic goroutine, and
// only while the session is running. Ticks record a fresh time observation
// and notify OnTick; they never carry session data.
type Ticker struct {
	mu       sync.RWMutex
	clock    clock.Clock
	interval time.Duration
	running  bool
	stopChan chan struct{}
	observed time.Time
	onTick   func(time.Time)
}

func New(clk clock.Clock, interval time.Duration, onTick func(time.Time)) *Ticker {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{
		clock:    clk,
		interval: interval,
		observed: clk.Now(),
		onTick:   onTick,
	}
}

// Sync acquires the clock when running is true and none is held, and
// releases it otherwise. Releasing takes one last observation so the
// display freezes at the pause instant rather than the previous tick.
func (t *Ticker) Sync(running bool) {
	if running {
		t.start()
		return
	}
	t.Stop()
}

func (t *Ticker) start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.observed = t.clock.Now()
	if t.running {
		return
	}

	t.running = true
	stop := make(chan struct{})
	t.stopChan = stop

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.mu.Lock()
				select {
				case <-stop:
					t.mu.Unlock()
					return
				default:
				}
				now := t.clock.Now()
				t.observed = now
				onTick := t.onTick
				t.mu.Unlock()

				if onTick != nil {
					onTick(now)
				}
			}
		}
	}()
}

// Stop releases the clock if one is held. It is safe to call repeatedly.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.observed = t.clock.Now()
	if !t.running {
		return
	}

	t.running = false
	close(t.stopChan)
	t.stopChan = nil
}

// SetOnTick replaces the tick callback. It is needed when the receiver of
// ticks only exists after the Ticker, as with a tea.Program.
func (t *Ticker) SetOnTick(fn func(time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTick = fn
}

// Observe refreshes the observation outside the tick cadence.
func (t *Ticker) Observe() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observed = t.clock.Now()
	return t.observed
}

func (t *Ticker) Observed() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.observed
}

func (t *Ticker) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}
