package rcudefer

import (
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/shutdown"
)

// system is the process-wide singleton: a lazily initialized bundle owning
// both locks and the growth-only writer registry; the reclamation worker
// is started and stopped by Register and Unregister as the registry
// transitions to/from empty.
//
// Nesting rule: lifecycleMu is always acquired outside drainMu, never the
// reverse.
type system struct {
	lifecycleMu sync.Mutex // serializes worker start/stop and registry mutations
	drainMu     sync.Mutex // serializes all drains and all registry reads

	reg        registry
	worker     atomic.Pointer[worker] // nil iff no writer is registered
	maxWriters int                    // 0 means unlimited
}

var sys = newSystem()

func newSystem() *system {
	s := &system{}
	s.reg.entries = make([]*registryEntry, 0, initialRegistryCapacity)
	shutdown.Register(s.teardown)
	return s
}

// initialRegistryCapacity mirrors the original's INIT_NUM_THREADS: the
// registry's starting capacity before it grows. Go's append grows the
// backing array geometrically on its own once this is exceeded, which is
// the idiomatic equivalent of the original's explicit doubling.
const initialRegistryCapacity = 4

// SetMaxWriters bounds the number of writers that may be registered at
// once. Register returns ErrTooManyWriters once the bound is reached. A
// value of 0 (the default) means unlimited, matching the original, which
// only fails registration when the backing allocation itself fails.
func SetMaxWriters(n int) {
	sys.lifecycleMu.Lock()
	defer sys.lifecycleMu.Unlock()
	sys.maxWriters = n
}

// totalPending sums head-tail across every registered writer, under the
// drain lock. Used by the worker's wait loop to decide whether to sleep.
func (s *system) totalPending() uint64 {
	var total uint64
	for _, e := range s.reg.entries {
		total += e.queue.pending()
	}
	return total
}

// teardown is registered with github.com/grailbio/base/shutdown at
// singleton-initialization time, implementing the process-exit hook that
// frees the registry. It is run when the embedding application calls
// shutdown.Run, not automatically — Go has no portable equivalent of a
// library destructor that runs unconditionally at process exit.
func (s *system) teardown() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if wk := s.worker.Load(); wk != nil {
		wk.stop()
		s.worker.Store(nil)
	}

	s.drainMu.Lock()
	s.reg.entries = nil
	s.drainMu.Unlock()
}

// wakeWorker notifies the reclamation worker that new work may be
// available. It is a no-op if no writer is currently registered.
func (s *system) wakeWorker() {
	if wk := s.worker.Load(); wk != nil {
		wk.wake()
	}
}

func (s *system) startWorkerLocked() {
	wk := newWorker(s)
	s.worker.Store(wk)
	wk.start()
	log.Debug.Print("rcudefer: reclamation worker started")
}

func (s *system) stopWorkerLocked() {
	wk := s.worker.Load()
	mustTrue(wk != nil, "rcudefer: stopWorkerLocked called with no running worker")
	wk.stop()
	s.worker.Store(nil)
	log.Debug.Print("rcudefer: reclamation worker stopped")
}
