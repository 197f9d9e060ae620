package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/axon-ml/axon/internal/ndarray"
)

func TestWritesSerializeInRegistrationOrder(t *testing.T) {
	s := NewScheduler(4)
	buf := ndarray.BufferID(1)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		s.Register(nil, []ndarray.BufferID{buf}, func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}
	if err := s.WaitAll(); err != nil {
		t.Fatalf("WaitAll failed: %v", err)
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("write %d ran at position %d", got, i)
		}
	}
}

func TestReadsRunConcurrently(t *testing.T) {
	s := NewScheduler(8)
	buf := ndarray.BufferID(1)

	// Two reads that can only both finish if they overlap.
	var entered atomic.Int32
	barrier := make(chan struct{})
	read := func() error {
		if entered.Add(1) == 2 {
			close(barrier)
		}
		select {
		case <-barrier:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("reads did not overlap")
		}
	}
	s.Register([]ndarray.BufferID{buf}, nil, read)
	s.Register([]ndarray.BufferID{buf}, nil, read)

	if err := s.WaitAll(); err != nil {
		t.Fatal(err)
	}
}

func TestWriteWaitsForReaders(t *testing.T) {
	s := NewScheduler(4)
	buf := ndarray.BufferID(1)

	var reads atomic.Int32
	release := make(chan struct{})
	s.Register([]ndarray.BufferID{buf}, nil, func() error {
		<-release
		reads.Add(1)
		return nil
	})
	s.Register([]ndarray.BufferID{buf}, nil, func() error {
		<-release
		reads.Add(1)
		return nil
	})

	wrote := make(chan struct{})
	s.Register(nil, []ndarray.BufferID{buf}, func() error {
		if n := reads.Load(); n != 2 {
			t.Errorf("write ran with %d of 2 reads complete", n)
		}
		close(wrote)
		return nil
	})

	select {
	case <-wrote:
		t.Fatal("write ran before readers finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	if err := s.WaitAll(); err != nil {
		t.Fatal(err)
	}
}

func TestReadWaitsForLastWrite(t *testing.T) {
	s := NewScheduler(4)
	buf := ndarray.BufferID(1)

	var wrote atomic.Bool
	release := make(chan struct{})
	s.Register(nil, []ndarray.BufferID{buf}, func() error {
		<-release
		wrote.Store(true)
		return nil
	})
	s.Register([]ndarray.BufferID{buf}, nil, func() error {
		if !wrote.Load() {
			t.Error("read ran before the pending write")
		}
		return nil
	})

	close(release)
	if err := s.WaitAll(); err != nil {
		t.Fatal(err)
	}
}

func TestInPlaceOperandDoesNotSelfDeadlock(t *testing.T) {
	s := NewScheduler(2)
	buf := ndarray.BufferID(1)

	done := make(chan error, 1)
	go func() {
		// Buffer appears as both read and write, as in-place kernels
		// register it.
		s.Register([]ndarray.BufferID{buf}, []ndarray.BufferID{buf}, func() error {
			return nil
		})
		done <- s.WaitAll()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("in-place registration deadlocked")
	}
}

func TestIndependentBuffersDoNotBlock(t *testing.T) {
	s := NewScheduler(4)

	release := make(chan struct{})
	s.Register(nil, []ndarray.BufferID{1}, func() error {
		<-release
		return nil
	})

	// A write on another buffer must complete while buffer 1 is stalled.
	s.Register(nil, []ndarray.BufferID{2}, func() error { return nil })
	errCh := make(chan error, 1)
	go func() { errCh <- s.WaitWrite(2) }()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("buffer 2 blocked behind unrelated buffer 1")
	}
	close(release)
	if err := s.WaitAll(); err != nil {
		t.Fatal(err)
	}
}

func TestFailureSticksUntilForgotten(t *testing.T) {
	s := NewScheduler(2)
	buf := ndarray.BufferID(1)
	boom := errors.New("kernel failed")

	s.Register(nil, []ndarray.BufferID{buf}, func() error { return boom })

	if err := s.WaitRead(buf); !errors.Is(err, boom) {
		t.Errorf("WaitRead = %v, want %v", err, boom)
	}
	// The failure is sticky across barriers.
	if err := s.WaitWrite(buf); !errors.Is(err, boom) {
		t.Errorf("WaitWrite = %v, want %v", err, boom)
	}
	if err := s.WaitAll(); !errors.Is(err, boom) {
		t.Errorf("WaitAll = %v, want %v", err, boom)
	}

	s.Forget(buf)
	if err := s.WaitRead(buf); err != nil {
		t.Errorf("WaitRead after Forget = %v, want nil", err)
	}
}

func TestFailurePropagatesToAllInvolvedBuffers(t *testing.T) {
	s := NewScheduler(2)
	boom := errors.New("kernel failed")

	s.Register([]ndarray.BufferID{1}, []ndarray.BufferID{2}, func() error { return boom })
	if err := s.WaitAll(); !errors.Is(err, boom) {
		t.Fatalf("WaitAll = %v, want %v", err, boom)
	}

	if err := s.WaitRead(1); !errors.Is(err, boom) {
		t.Errorf("source buffer barrier = %v, want %v", err, boom)
	}
	if err := s.WaitRead(2); !errors.Is(err, boom) {
		t.Errorf("destination buffer barrier = %v, want %v", err, boom)
	}
}

func TestBarrierOnUntouchedBuffer(t *testing.T) {
	s := NewScheduler(2)
	if err := s.WaitRead(99); err != nil {
		t.Errorf("WaitRead on untouched buffer = %v, want nil", err)
	}
	if err := s.WaitWrite(99); err != nil {
		t.Errorf("WaitWrite on untouched buffer = %v, want nil", err)
	}
}
