// Package rcudefer implements the deferred reclamation subsystem of a
// userspace RCU library: writer goroutines enqueue callbacks that must not
// run until a subsequent grace period has elapsed, and a single background
// worker batches and executes them.
//
// # Quick Start
//
//	w, err := rcudefer.Register()
//	if err != nil {
//	    // handle resource exhaustion
//	}
//	defer w.Unregister()
//
//	obj := acquire()
//	release(obj) // make obj unreachable to new readers
//	w.Defer(freeObj, unsafe.Pointer(obj))
//
// Registered writers share one process-wide background worker that wakes
// on enqueue, waits one grace period, then drains every registered writer's
// queue. [Barrier] forces a synchronous drain from any goroutine, registered
// or not; [Writer.BarrierThread] drains only the calling writer's own queue.
//
// # Queue encoding
//
// Each writer owns a bounded ring buffer of pointer-sized slots. Runs of
// calls to the same callback are packed as one tagged function slot
// followed by one argument slot per call, halving memory traffic in the
// common case where a writer defers many releases of the same kind in a
// burst. See func.go for the tagging scheme.
//
// # Thread safety
//
// A *Writer returned by [Register] must be used from a single goroutine at
// a time — it is the explicit replacement for the thread-local queue the
// C original keeps implicitly. [Barrier] is safe to call from any
// goroutine.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomics with explicit
// memory ordering, and [code.hybscloud.com/spin] and
// [code.hybscloud.com/iox] for the waits and backoff in the default grace
// period, the same stack
// used by the bounded queue library this package's ring buffer is modeled
// on. Worker lifecycle, assertions, and process-exit cleanup use
// [github.com/grailbio/base/log], [github.com/grailbio/base/must], and
// [github.com/grailbio/base/shutdown].
package rcudefer
