package quiz

import (
	"sync"
	"time"
)

// Ticker is the subset of time.Ticker the Timer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock abstracts time so tests can drive the countdown.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// RealClock uses the wall clock.
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// NewTicker implements Clock.
func (RealClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Timer calls onTick on every tick until stopped. onTick returning false
// stops the timer from inside the callback.
type Timer struct {
	ticker Ticker
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// NewTimer starts a countdown driver.
func NewTimer(clock Clock, interval time.Duration, onTick func() bool) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	t := &Timer{
		ticker: clock.NewTicker(interval),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go t.run(onTick)
	return t
}

func (t *Timer) run(onTick func() bool) {
	defer close(t.exited)
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C():
			// a tick racing with Stop is dropped
			select {
			case <-t.done:
				return
			default:
			}
			if !onTick() {
				t.Stop()
				return
			}
		}
	}
}

// Stop halts the timer; no tick is delivered after it returns other than one
// already executing. Stop never blocks and is safe to call repeatedly.
func (t *Timer) Stop() {
	t.once.Do(func() {
		close(t.done)
		t.ticker.Stop()
	})
}

// Done is closed once the driver goroutine has exited.
func (t *Timer) Done() <-chan struct{} { return t.exited }
