package rcudefer

import "errors"

// Double-registration in the C original (the same thread calling
// rcu_defer_register_thread twice) has no Go analogue: Register always
// allocates a fresh *Writer, so there is no implicit per-goroutine state to
// collide with. The remaining API-misuse cases — enqueueing on a *Writer
// after it has been unregistered, or unregistering it twice — are asserted
// rather than returned as errors; see must.go.

// ErrTooManyWriters is returned by Register when MaxWriters is configured
// and the registry is already at capacity. This is the port's stand-in for
// the original's resource-exhaustion failure mode (malloc returning NULL
// when growing the registry or allocating a queue buffer). The calling
// goroutine is not registered and may retry later.
var ErrTooManyWriters = errors.New("rcudefer: writer registry at capacity")
