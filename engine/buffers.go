package engine

import "sync"

// scanBuffers holds one row's worth of scan destinations.
type scanBuffers struct {
	vals []any
	ptrs []any
}

// prepare sizes the buffers for n columns and points every destination at
// its value slot.
func (sb *scanBuffers) prepare(n int) {
	if cap(sb.vals) < n {
		sb.vals = make([]any, n)
		sb.ptrs = make([]any, n)
	}
	sb.vals = sb.vals[:n]
	sb.ptrs = sb.ptrs[:n]
	for i := range sb.vals {
		sb.vals[i] = nil
		sb.ptrs[i] = &sb.vals[i]
	}
}

// release drops the scanned values so the pool does not pin them.
func (sb *scanBuffers) release() {
	clear(sb.vals)
	scanPool.Put(sb)
}

var scanPool = sync.Pool{
	New: func() any {
		return &scanBuffers{
			vals: make([]any, 0, 20),
			ptrs: make([]any, 0, 20),
		}
	},
}

func getScanBuffers(n int) *scanBuffers {
	sb := scanPool.Get().(*scanBuffers)
	sb.prepare(n)
	return sb
}
