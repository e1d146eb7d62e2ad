package av

import (
	"sync"
	"time"
)

// Clock 는 재생 시간을 관리한다. 시작된 상태에서는 (현재시각 - 시작시각) 만큼 시간이 흐르고,
// 정지된 상태에서는 마지막으로 기록된 시간에 머문다.
type Clock struct {
	lock     sync.Mutex
	now      func() time.Time
	started  bool
	startAt  time.Time // wall time matching elapsed == 0
	pausedAt float64   // elapsed ms while stopped
}

func NewClock() *Clock {
	return NewClockWithSource(time.Now)
}

// NewClockWithSource builds a clock reading wall time from now.
func NewClockWithSource(now func() time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Start() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.started {
		return
	}
	c.startAt = c.now().Add(-msToDuration(c.pausedAt))
	c.started = true
}

func (c *Clock) Stop() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.started {
		return
	}
	c.pausedAt = c.elapsed()
	c.started = false
}

// Reset stops the clock and moves it back to 0.
func (c *Clock) Reset() {
	c.lock.Lock()
	c.started = false
	c.pausedAt = 0
	c.lock.Unlock()
}

// SetCurrentTime moves the clock to ms, keeping it running if it was.
func (c *Clock) SetCurrentTime(ms float64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if ms < 0 {
		ms = 0
	}
	if c.started {
		c.startAt = c.now().Add(-msToDuration(ms))
	} else {
		c.pausedAt = ms
	}
}

func (c *Clock) ElapsedMs() float64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.elapsed()
}

func (c *Clock) IsStarted() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.started
}

func (c *Clock) elapsed() float64 {
	if !c.started {
		return c.pausedAt
	}
	return float64(c.now().Sub(c.startAt)) / float64(time.Millisecond)
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
