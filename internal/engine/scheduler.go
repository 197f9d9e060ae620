// Package engine provides the dependency scheduler shared by engine
// implementations. It serializes operations registered against the same
// buffer identity in registration order (write-after-write,
// write-after-read and read-after-write all respected) while letting
// reads of one buffer, and operations on distinct buffers, run
// concurrently.
package engine

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/axon-ml/axon/internal/ndarray"
)

// op is one registered unit of work. done closes after the op's
// function returns and its failure, if any, has been recorded.
type op struct {
	done chan struct{}
}

// bufState tracks the dependency frontier of one buffer: the last
// pending write and every read registered since it. The first failure
// of any op touching the buffer sticks until the buffer is forgotten.
type bufState struct {
	lastWrite *op
	readers   []*op
	err       error
}

// Scheduler tracks per-buffer dependencies and dispatches each
// operation on its own goroutine once its dependencies resolve. Kernel
// execution concurrency is bounded by a weighted semaphore so a flood
// of independent operations cannot oversubscribe the host.
type Scheduler struct {
	mu   sync.Mutex
	bufs map[ndarray.BufferID]*bufState
	wg   sync.WaitGroup
	sem  *semaphore.Weighted
	err  error // first failure overall, reported by WaitAll
}

// NewScheduler creates a scheduler running at most workers kernels at
// once. workers <= 0 selects GOMAXPROCS.
func NewScheduler(workers int) *Scheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Scheduler{
		bufs: make(map[ndarray.BufferID]*bufState),
		sem:  semaphore.NewWeighted(int64(workers)),
	}
}

func (s *Scheduler) state(id ndarray.BufferID) *bufState {
	st, ok := s.bufs[id]
	if !ok {
		st = &bufState{}
		s.bufs[id] = st
	}
	return st
}

// Register queues fn as one operation reading the reads buffers and
// writing the writes buffers, then returns immediately. fn runs after
// every conflicting earlier operation completes. A buffer listed in
// both sets is treated as a write.
func (s *Scheduler) Register(reads, writes []ndarray.BufferID, fn func() error) {
	o := &op{done: make(chan struct{})}
	var deps []*op

	s.mu.Lock()
	seen := make(map[ndarray.BufferID]bool, len(writes))
	for _, id := range writes {
		seen[id] = true
	}
	for _, id := range reads {
		if seen[id] {
			continue // in-place operand: the write edge below covers it
		}
		st := s.state(id)
		if st.lastWrite != nil {
			deps = append(deps, st.lastWrite)
		}
		st.readers = append(st.readers, o)
	}
	for id := range seen {
		st := s.state(id)
		if st.lastWrite != nil {
			deps = append(deps, st.lastWrite)
		}
		deps = append(deps, st.readers...)
		st.lastWrite = o
		st.readers = nil
	}
	ids := make([]ndarray.BufferID, 0, len(reads)+len(writes))
	ids = append(ids, reads...)
	ids = append(ids, writes...)
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(o.done)
		for _, d := range deps {
			<-d.done
		}
		_ = s.sem.Acquire(context.Background(), 1)
		err := fn()
		s.sem.Release(1)
		if err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			for _, id := range ids {
				st := s.state(id)
				if st.err == nil {
					st.err = err
				}
			}
			s.mu.Unlock()
		}
	}()
}

// WaitRead blocks until all pending writes on the buffer complete, then
// reports the buffer's sticky failure, if any. Pending reads are not
// waited on.
func (s *Scheduler) WaitRead(id ndarray.BufferID) error {
	s.mu.Lock()
	st, ok := s.bufs[id]
	var w *op
	if ok {
		w = st.lastWrite
	}
	s.mu.Unlock()

	if w != nil {
		<-w.done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.bufs[id]; ok {
		return st.err
	}
	return nil
}

// WaitWrite blocks until all pending reads and writes on the buffer
// complete, then reports the buffer's sticky failure, if any.
func (s *Scheduler) WaitWrite(id ndarray.BufferID) error {
	s.mu.Lock()
	st, ok := s.bufs[id]
	var pending []*op
	if ok {
		if st.lastWrite != nil {
			pending = append(pending, st.lastWrite)
		}
		pending = append(pending, st.readers...)
	}
	s.mu.Unlock()

	for _, o := range pending {
		<-o.done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.bufs[id]; ok {
		return st.err
	}
	return nil
}

// WaitAll blocks until every registered operation completes and reports
// the first failure across all of them. Must not race with Register.
func (s *Scheduler) WaitAll() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Forget drops the dependency state of a released buffer. The caller
// guarantees no further operations will be registered against it;
// in-flight operations already hold their dependency edges.
func (s *Scheduler) Forget(id ndarray.BufferID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bufs, id)
}
