package quiz

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped int32
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { atomic.StoreInt32(&f.stopped, 1) }

type fakeClock struct{ ticker *fakeTicker }

func newFakeClock() *fakeClock { return &fakeClock{ticker: &fakeTicker{ch: make(chan time.Time)}} }

func (f *fakeClock) Now() time.Time                 { return now }
func (f *fakeClock) NewTicker(time.Duration) Ticker { return f.ticker }
func (f *fakeClock) tick()                          { f.ticker.ch <- now }

func TestTimerDeliversTicksUntilCallbackStops(t *testing.T) {
	clock := newFakeClock()
	var calls int32
	timer := NewTimer(clock, time.Second, func() bool {
		return atomic.AddInt32(&calls, 1) < 3
	})

	clock.tick()
	clock.tick()
	clock.tick()

	select {
	case <-timer.Done():
	case <-time.After(time.Second):
		t.Fatal("timer did not stop")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&clock.ticker.stopped))
}

func TestTimerNeverFiresAfterStop(t *testing.T) {
	clock := newFakeClock()
	var calls int32
	timer := NewTimer(clock, time.Second, func() bool {
		atomic.AddInt32(&calls, 1)
		return true
	})

	clock.tick()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	timer.Stop()
	timer.Stop()
	<-timer.Done()

	select {
	case clock.ticker.ch <- now:
		t.Fatal("tick accepted after stop")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
