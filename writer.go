package rcudefer

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// Writer is a registered writer's handle: its own queue and registry
// entry, made an explicit value since Go goroutines have no portable
// thread-local storage to hold it implicitly. A *Writer must be used by a
// single goroutine at a time — the Go-idiomatic restatement of "callable
// only by the queue's owning thread."
type Writer struct {
	sys          *system
	queue        *writerQueue
	entry        *registryEntry
	unregistered atomix.Bool
}

// Register allocates a queue for the calling goroutine and adds it to the
// writer registry, starting the reclamation worker if this is the first
// registered writer. The returned *Writer must later be passed to
// Unregister.
func Register() (*Writer, error) {
	return sys.register()
}

func (s *system) register() (*Writer, error) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.drainMu.Lock()
	if s.maxWriters > 0 && s.reg.len() >= s.maxWriters {
		s.drainMu.Unlock()
		return nil, ErrTooManyWriters
	}
	q := newWriterQueue(defaultQueueSize)
	entry := s.reg.add(q)
	first := s.reg.len() == 1
	s.drainMu.Unlock()

	if first {
		s.startWorkerLocked()
	}

	return &Writer{sys: s, queue: q, entry: entry}, nil
}

// Unregister drains the writer's queue under one grace period, then
// removes it from the registry, stopping the reclamation worker if this
// was the last registered writer. Every callback the writer had enqueued
// has run by the time Unregister returns.
//
// It is a program error to unregister a *Writer more than once, or to use
// it afterward.
func (w *Writer) Unregister() error {
	mustTrue(!w.unregistered.LoadAcquire(), "rcudefer: double Unregister")

	s := w.sys
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.drainMu.Lock()
	barrierThreadLocked(w.queue)
	s.reg.remove(w.entry)
	last := s.reg.len() == 0
	s.drainMu.Unlock()

	w.unregistered.StoreRelease(true)

	if last {
		s.stopWorkerLocked()
	}
	return nil
}

// Defer enqueues fct to be invoked with arg at an unspecified later time,
// on the reclamation worker goroutine — or, under backpressure, on the
// calling goroutine itself, acting as its own drainer. fct must be
// non-nil. For one writer, callbacks run in submission order; no ordering
// is promised across writers.
func (w *Writer) Defer(fct Func, arg unsafe.Pointer) error {
	mustTrue(fct != nil, "rcudefer: Defer requires a non-nil callback")
	mustTrue(!w.unregistered.LoadAcquire(), "rcudefer: Defer on an unregistered writer")

	if w.queue.full() {
		if err := w.BarrierThread(); err != nil {
			return err
		}
		mustTrue(w.queue.pending() == 0, "rcudefer: self-drain left items behind on a single-producer queue")
	}

	w.queue.enqueue(fct, arg)
	w.sys.wakeWorker()
	return nil
}
