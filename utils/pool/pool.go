package pool

// Pool hands out slices carved from a large preallocated slab. A slice is
// never handed out twice: when the slab is exhausted a fresh one is
// allocated and the old one stays alive as long as its slices do. The
// demuxer uses it so that thousands of small payloads share a few
// allocations.
type Pool struct {
	pos int
	buf []byte
}

// default slab size, 4 MiB
const maxpoolsize = 4 * 1024 * 1024

// Get returns a zeroed slice of length size with capacity size, so appends
// never spill into a neighbour. Requests larger than a slab get their own
// allocation.
func (pool *Pool) Get(size int) []byte {
	if size > maxpoolsize/4 {
		return make([]byte, size)
	}
	if maxpoolsize-pool.pos < size {
		pool.pos = 0
		pool.buf = make([]byte, maxpoolsize)
	}
	b := pool.buf[pool.pos : pool.pos+size : pool.pos+size]
	pool.pos += size
	return b
}

func NewPool() *Pool {
	return &Pool{
		buf: make([]byte, maxpoolsize),
	}
}
