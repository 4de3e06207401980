package sync

// noCopy trips the go vet copylocks check on structs embedding it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// SlicePool is a set of temporary slices that may be individually saved and retrieved.
// It is intended to mirror [sync.Pool], except it holds the chunk buffers of file transfers.
//
// Any slice stored in the SlicePool will be held onto indefinitely,
// and slices are returned for reuse in a round-robin order.
//
// A SlicePool is safe for use by multiple goroutines simultaneously.
//
// Unlike the standard library Pool, it is suitable to act as a free list of short-lived slices,
// since the free list is maintained as a channel, and thus has fairly low overhead.
type SlicePool[S []T, T any] struct {
	_ noCopy

	metrics

	ch     chan S
	length int
}

// NewSlicePool returns a [SlicePool] set to hold onto depth number of items,
// and discard any slice with a capacity greater than the cull length.
//
// It will panic if given a negative depth, the same as making a negative-buffer channel.
// It will also panic if given a zero or negative cull length.
func NewSlicePool[S []T, T any](depth, cullLength int) *SlicePool[S, T] {
	if cullLength <= 0 {
		panic("r66: slice pool: cull length must be greater than zero")
	}

	return &SlicePool[S, T]{
		ch:     make(chan S, depth),
		length: cullLength,
	}
}

// Get retrieves a slice of length n from the pool.
// If the pool is empty, or the pooled slice is too short, a new slice is allocated.
//
// A nil SlicePool is treated as an empty pool.
func (p *SlicePool[S, T]) Get(n int) S {
	if p == nil {
		return make(S, n)
	}

	select {
	case b := <-p.ch:
		if cap(b) >= n {
			p.hit()
			return b[:n]
		}
	default:
	}

	p.miss()
	return make(S, n)
}

// Put adds the slice to the pool, if there is capacity in the pool,
// and if the capacity of the slice is not greater than the culling length.
//
// A nil SlicePool is treated as a pool with no capacity.
func (p *SlicePool[S, T]) Put(b S) {
	if p == nil {
		return
	}

	if cap(b) > p.length {
		// DO NOT reuse buffers with excessive capacity.
		return
	}

	select {
	case p.ch <- b:
	default:
	}
}
