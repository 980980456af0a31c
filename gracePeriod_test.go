package rcudefer_test

import (
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/rcudefer/rcudefer"
)

// TestGracePeriodSkippedWhenEmpty checks that Barrier does not invoke the
// grace period at all when no writer has anything pending.
func TestGracePeriodSkippedWhenEmpty(t *testing.T) {
	var calls atomic.Int64
	rcudefer.SetGracePeriod(func() { calls.Add(1) })
	defer rcudefer.SetGracePeriod(func() {})

	w, err := rcudefer.Register()
	must(t, err)
	defer func() { must(t, w.Unregister()) }()

	must(t, rcudefer.Barrier())
	if n := calls.Load(); n != 0 {
		t.Fatalf("grace period invoked %d times for an empty Barrier, want 0", n)
	}

	must(t, w.Defer(func(unsafe.Pointer) {}, nil))
	must(t, rcudefer.Barrier())
	if n := calls.Load(); n != 1 {
		t.Fatalf("grace period invoked %d times for a non-empty Barrier, want 1", n)
	}
}
