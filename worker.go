package rcudefer

import (
	"time"

	"code.hybscloud.com/atomix"
	"github.com/grailbio/base/log"
)

// batchWindow is how long the worker waits after waking before draining,
// to let a burst of near-simultaneous enqueues accumulate into one grace
// period instead of paying for one per callback. A throughput/latency
// trade-off, not a correctness requirement; kept at the original's 100ms.
const batchWindow = 100 * time.Millisecond

// worker is the single background reclamation goroutine. state is the
// "futex word": 0 means awake (or about to become so), -1
// means sleeping. Enqueue (Writer.Defer via system.wakeWorker) is the only
// other writer of state, and only ever moves it from -1 to 0.
type worker struct {
	sys    *system
	state  atomix.Int64
	wakeCh chan struct{}
	cancel chan struct{}
	done   chan struct{}
}

func newWorker(sys *system) *worker {
	return &worker{
		sys:    sys,
		wakeCh: make(chan struct{}, 1),
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (w *worker) start() {
	go w.run()
}

// stop requests cancellation and waits for the worker goroutine to exit.
// Called with system.lifecycleMu held, on the 1->0 registry transition.
func (w *worker) stop() {
	close(w.cancel)
	<-w.done
}

// wake implements the wake protocol: any enqueue that observes the futex
// word at -1 transitions it to 0 and issues a single wake; redundant wakes
// are harmless. The plain load-then-store (rather than a CAS) matches the
// original's atomic_read/atomic_set pair; a second concurrent enqueue
// observing the same stale -1 just sends a second, harmless wake.
func (w *worker) wake() {
	if w.state.LoadAcquire() == -1 {
		w.state.StoreRelease(0)
		select {
		case w.wakeCh <- struct{}{}:
		default:
		}
	}
}

func (w *worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.cancel:
			return
		default:
		}

		if !w.waitForWork() {
			return
		}

		time.Sleep(batchWindow)

		if err := barrierAll(w.sys); err != nil {
			log.Error.Print("rcudefer: barrier cycle failed: ", err)
		}
	}
}

// waitForWork decrements the futex word, rechecks for already-pending
// work, and blocks for a wake otherwise. It returns false if cancellation
// was observed while waiting.
func (w *worker) waitForWork() bool {
	w.state.AddAcqRel(-1)

	w.sys.drainMu.Lock()
	pending := w.sys.totalPending()
	w.sys.drainMu.Unlock()

	if pending != 0 {
		// Callbacks are already queued: don't sleep. Closes the race
		// where a writer incremented work between our last drain and
		// this decrement.
		w.state.StoreRelease(0)
		return true
	}

	if w.state.LoadAcquire() == -1 {
		select {
		case <-w.wakeCh:
		case <-w.cancel:
			return false
		}
	}
	return true
}
