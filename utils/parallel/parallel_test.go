package parallel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestForEachVisitsEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		workers int
	}{
		{name: "empty", n: 0, workers: 4},
		{name: "sequential", n: 5, workers: 1},
		{name: "more_workers_than_jobs", n: 3, workers: 16},
		{name: "default_workers", n: 64, workers: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			ForEach(tt.n, tt.workers, func(i int) {
				atomic.AddInt32(&hits[i], 1)
			})
			for i, h := range hits {
				assert.Equal(t, int32(1), h, "index %d", i)
			}
		})
	}
}

func TestForEachBoundsConcurrency(t *testing.T) {
	var running, peak int32
	ForEach(20, 3, func(i int) {
		cur := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
	})
	assert.LessOrEqual(t, peak, int32(3))
	assert.Equal(t, int32(0), atomic.LoadInt32(&running))
}
