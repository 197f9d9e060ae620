package ndarray

import "sync/atomic"

// storage is the reference-counted owner of one engine buffer
// identity. It is never copied, only referenced: handles created by
// Clone or Slice share the same storage and bump the count. The engine
// buffer is released exactly once, when the count reaches zero.
type storage struct {
	eng  Engine
	id   BufferID
	refs atomic.Int32
}

// newStorage wraps an engine buffer identity with refcount 1.
func newStorage(eng Engine, id BufferID) *storage {
	s := &storage{eng: eng, id: id}
	s.refs.Store(1)
	return s
}

// retain increments the reference count (Clone and Slice).
func (s *storage) retain() {
	s.refs.Add(1)
}

// release decrements the reference count and frees the engine buffer
// when it reaches zero. Dropping below zero means a handle was released
// twice, which the ownership discipline is meant to make unreachable.
func (s *storage) release() {
	n := s.refs.Add(-1)
	if n == 0 {
		s.eng.Release(s.id)
		return
	}
	if n < 0 {
		panic("ndarray: storage released after last reference dropped")
	}
}
