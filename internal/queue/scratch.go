package queue

import "sync"

// Scratch pools the auxiliary uint32 arrays the block engine uses to
// catch DRW read results (§4.5 "Read path allocation"). The engine
// over-allocates to `count` words even when packed transfers will
// collapse the actual DRW access count, because the true count isn't
// known until after the transfer loop runs; pooling absorbs the
// resulting churn for repeated same-sized transfers instead of
// leaving it to the allocator.
//
// Buckets are power-of-two word counts. A request larger than the
// largest bucket falls through to a plain allocation and is not
// pooled on return.
const (
	bucket256  = 256
	bucket1k   = 1024
	bucket4k   = 4096
	bucket16k  = 16384
)

var scratchPool = struct {
	p256  sync.Pool
	p1k   sync.Pool
	p4k   sync.Pool
	p16k  sync.Pool
}{
	p256: sync.Pool{New: func() any { b := make([]uint32, bucket256); return &b }},
	p1k:  sync.Pool{New: func() any { b := make([]uint32, bucket1k); return &b }},
	p4k:  sync.Pool{New: func() any { b := make([]uint32, bucket4k); return &b }},
	p16k: sync.Pool{New: func() any { b := make([]uint32, bucket16k); return &b }},
}

// GetScratch returns a []uint32 of at least n elements. The caller
// must call PutScratch when done; on every exit path, success and
// failure alike, per §5's memory-release guarantee.
func GetScratch(n int) []uint32 {
	switch {
	case n <= bucket256:
		return (*scratchPool.p256.Get().(*[]uint32))[:n]
	case n <= bucket1k:
		return (*scratchPool.p1k.Get().(*[]uint32))[:n]
	case n <= bucket4k:
		return (*scratchPool.p4k.Get().(*[]uint32))[:n]
	case n <= bucket16k:
		return (*scratchPool.p16k.Get().(*[]uint32))[:n]
	default:
		return make([]uint32, n)
	}
}

// PutScratch returns a buffer obtained from GetScratch to its pool.
// Buffers whose capacity doesn't match a bucket exactly (the
// plain-allocation fallback) are simply dropped.
func PutScratch(buf []uint32) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case bucket256:
		scratchPool.p256.Put(&buf)
	case bucket1k:
		scratchPool.p1k.Put(&buf)
	case bucket4k:
		scratchPool.p4k.Put(&buf)
	case bucket16k:
		scratchPool.p16k.Put(&buf)
	}
}
