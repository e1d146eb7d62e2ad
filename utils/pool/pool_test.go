package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolGetDoesNotOverlap(t *testing.T) {
	p := NewPool()

	a := p.Get(16)
	b := p.Get(16)
	require.Len(t, a, 16)
	require.Len(t, b, 16)

	for i := range a {
		a[i] = 0xAA
	}
	for _, v := range b {
		assert.Equal(t, byte(0), v)
	}

	// appending to a must not write into b
	a = append(a, 1)
	assert.Equal(t, byte(0), b[0])
}

func TestPoolLargeRequest(t *testing.T) {
	p := NewPool()
	b := p.Get(maxpoolsize)
	assert.Len(t, b, maxpoolsize)
	assert.Equal(t, 0, p.pos)
}

func TestPoolSlabRollover(t *testing.T) {
	p := NewPool()
	first := p.Get(maxpoolsize / 4)
	first[0] = 1
	for i := 0; i < 4; i++ {
		p.Get(maxpoolsize / 4)
	}
	// the first slice survives the rollover untouched
	assert.Equal(t, byte(1), first[0])
}
