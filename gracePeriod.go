package rcudefer

import (
	"runtime"
	"sync"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// synchronizeRCU is the grace period primitive: it blocks until every
// reader that could have observed pre-call state has reached a quiescent
// point. This package does not implement RCU's reader side (read-side
// critical sections, quiescent-state tracking) at all — that is a whole
// separate subsystem — so the default here is a placeholder, not a
// correctness claim about concurrent readers.
//
// The default rendezvous technique: start 2*GOMAXPROCS short goroutines and
// wait for all of them to finish, rendezvousRounds times. The aim is for
// every logical processor to host a rendezvous goroutine, so that any
// goroutine executing before this call has been scheduled out (passed
// through the Go scheduler, a safe point for anything that treats "not
// currently running" as quiescent); it does not check which P ran each
// goroutine, so this is not guaranteed. Replace it with a real reader-epoch
// implementation via SetGracePeriod once one exists.
var synchronizeRCU = defaultSynchronizeRCU

var gracePeriodMu sync.Mutex

// SetGracePeriod installs fn as the grace-period primitive used by Barrier
// and BarrierThread. fn must not return until every reader that could have
// observed state prior to the call has reached a quiescent state; it must
// not itself call into this package (BarrierThread, Defer, ...).
func SetGracePeriod(fn func()) {
	gracePeriodMu.Lock()
	defer gracePeriodMu.Unlock()
	synchronizeRCU = fn
}

func gracePeriod() func() {
	gracePeriodMu.Lock()
	defer gracePeriodMu.Unlock()
	return synchronizeRCU
}

// rendezvousRounds over-subscribes P's by a small factor and repeats the
// rendezvous a few times: a single pass can miss a P the scheduler hadn't
// yet assigned work to, which this is best-effort insurance against, not a
// guarantee.
const rendezvousRounds = 3

func defaultSynchronizeRCU() {
	n := runtime.GOMAXPROCS(0) * 2
	backoff := iox.Backoff{}
	for round := 0; round < rendezvousRounds; round++ {
		var wg sync.WaitGroup
		wg.Add(n)
		for range n {
			go func() {
				defer wg.Done()
				sw := spin.Wait{}
				sw.Once()
			}()
		}
		wg.Wait()
		backoff.Wait()
	}
}
