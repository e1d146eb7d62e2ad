package av

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeWall struct {
	t time.Time
}

func (w *fakeWall) now() time.Time { return w.t }

func (w *fakeWall) advance(ms int) { w.t = w.t.Add(time.Duration(ms) * time.Millisecond) }

func TestClockRunsOnlyWhenStarted(t *testing.T) {
	w := &fakeWall{t: time.Unix(1000, 0)}
	c := NewClockWithSource(w.now)

	w.advance(50)
	assert.Equal(t, 0.0, c.ElapsedMs())
	assert.False(t, c.IsStarted())

	c.Start()
	w.advance(40)
	assert.InDelta(t, 40, c.ElapsedMs(), 1e-9)

	c.Stop()
	w.advance(100)
	assert.InDelta(t, 40, c.ElapsedMs(), 1e-9)

	c.Start()
	w.advance(10)
	assert.InDelta(t, 50, c.ElapsedMs(), 1e-9)
}

func TestClockSetCurrentTime(t *testing.T) {
	w := &fakeWall{t: time.Unix(1000, 0)}
	c := NewClockWithSource(w.now)

	c.SetCurrentTime(250)
	assert.InDelta(t, 250, c.ElapsedMs(), 1e-9)

	c.Start()
	w.advance(5)
	c.SetCurrentTime(10)
	w.advance(5)
	assert.InDelta(t, 15, c.ElapsedMs(), 1e-9)

	c.SetCurrentTime(-3)
	assert.Equal(t, 0.0, c.ElapsedMs())

	c.Reset()
	assert.False(t, c.IsStarted())
	assert.Equal(t, 0.0, c.ElapsedMs())
}
