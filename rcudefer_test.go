package rcudefer_test

import (
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/rcudefer/rcudefer"
)

// TestMain installs a no-op grace period for the whole suite. None of these
// tests have real RCU readers running concurrently, so there is nothing for
// synchronize_rcu to wait for; the default rendezvous implementation would
// only add latency without exercising anything these tests check.
func TestMain(m *testing.M) {
	rcudefer.SetGracePeriod(func() {})
	m.Run()
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// TestRegisterDeferUnregisterDrains checks that every callback enqueued by
// a writer has run by the time Unregister returns.
//
// markRan is declared once, outside the loop: Func must not be a closure
// whose behavior varies per instance (func.go), so the per-call index is
// carried through arg instead of being captured.
func TestRegisterDeferUnregisterDrains(t *testing.T) {
	w, err := rcudefer.Register()
	must(t, err)

	var ran [10]bool
	markRan := func(arg unsafe.Pointer) {
		ran[*(*int)(arg)] = true
	}
	idx := make([]int, len(ran))
	for i := range idx {
		idx[i] = i
		must(t, w.Defer(markRan, unsafe.Pointer(&idx[i])))
	}

	must(t, w.Unregister())

	for i, got := range ran {
		if !got {
			t.Fatalf("callback %d did not run before Unregister returned", i)
		}
	}
}

// TestDeferOrderPerWriter checks that one writer's callbacks run in
// submission order.
func TestDeferOrderPerWriter(t *testing.T) {
	w, err := rcudefer.Register()
	must(t, err)
	defer func() { must(t, w.Unregister()) }()

	const n = 500
	var mu sync.Mutex
	var order []int
	record := func(arg unsafe.Pointer) {
		mu.Lock()
		order = append(order, *(*int)(arg))
		mu.Unlock()
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
		must(t, w.Defer(record, unsafe.Pointer(&idx[i])))
	}

	must(t, w.BarrierThread())

	if len(order) != n {
		t.Fatalf("got %d callbacks, want %d", len(order), n)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("out of order at position %d: got %d", i, v)
		}
	}
}

// TestAlternatingFunctionPointers exercises the function-pointer elision
// path in queue.go: two distinct callbacks interleaved force a fresh
// tagged slot on every enqueue, while a run of the same callback should
// elide the repeats.
func TestAlternatingFunctionPointers(t *testing.T) {
	w, err := rcudefer.Register()
	must(t, err)
	defer func() { must(t, w.Unregister()) }()

	var aCount, bCount int
	fnA := func(unsafe.Pointer) { aCount++ }
	fnB := func(unsafe.Pointer) { bCount++ }

	for i := range 1000 {
		if i%2 == 0 {
			must(t, w.Defer(fnA, nil))
		} else {
			must(t, w.Defer(fnB, nil))
		}
	}
	// A run of the same callback, to exercise elision.
	for range 1000 {
		must(t, w.Defer(fnA, nil))
	}

	must(t, w.BarrierThread())

	if aCount != 1500 || bCount != 500 {
		t.Fatalf("got aCount=%d bCount=%d, want 1500/500", aCount, bCount)
	}
}

// TestTwoWritersAlternatingBarrier registers two writers, interleaves
// Defer calls between them, and checks that a single Barrier drains both.
func TestTwoWritersAlternatingBarrier(t *testing.T) {
	w1, err := rcudefer.Register()
	must(t, err)
	defer func() { must(t, w1.Unregister()) }()

	w2, err := rcudefer.Register()
	must(t, err)
	defer func() { must(t, w2.Unregister()) }()

	var count1, count2 int
	incr1 := func(unsafe.Pointer) { count1++ }
	incr2 := func(unsafe.Pointer) { count2++ }

	for range 200 {
		must(t, w1.Defer(incr1, nil))
		must(t, w2.Defer(incr2, nil))
	}

	must(t, rcudefer.Barrier())

	if count1 != 200 || count2 != 200 {
		t.Fatalf("got count1=%d count2=%d, want 200/200", count1, count2)
	}
}

// TestBackpressureSelfDrains pushes past the queue's backpressure threshold
// from a single writer with no other goroutine draining it. Defer must
// drain the queue itself rather than block forever or overflow.
func TestBackpressureSelfDrains(t *testing.T) {
	w, err := rcudefer.Register()
	must(t, err)
	defer func() { must(t, w.Unregister()) }()

	const n = 70000 // comfortably past defaultQueueSize's backpressure threshold
	var count int
	incr := func(unsafe.Pointer) { count++ }
	for range n {
		must(t, w.Defer(incr, nil))
	}
	must(t, w.BarrierThread())

	if count != n {
		t.Fatalf("got %d callbacks, want %d", count, n)
	}
}

// TestBarrierNoWritersIsNoop checks that Barrier with nothing registered
// returns promptly and without error.
func TestBarrierNoWritersIsNoop(t *testing.T) {
	done := make(chan error, 1)
	go func() { done <- rcudefer.Barrier() }()

	select {
	case err := <-done:
		must(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Barrier with no registered writers did not return promptly")
	}
}

// TestSetMaxWriters checks that Register respects a configured writer cap.
func TestSetMaxWriters(t *testing.T) {
	rcudefer.SetMaxWriters(1)
	t.Cleanup(func() { rcudefer.SetMaxWriters(0) })

	w1, err := rcudefer.Register()
	must(t, err)
	defer func() { must(t, w1.Unregister()) }()

	if _, err := rcudefer.Register(); err != rcudefer.ErrTooManyWriters {
		t.Fatalf("got err=%v, want ErrTooManyWriters", err)
	}
}

// TestMillionItemBurst is a single-writer high-volume scenario: enqueue
// far more items than fit in one queue in one pass and confirm every one
// of them runs exactly once.
func TestMillionItemBurst(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large burst in -short mode")
	}

	w, err := rcudefer.Register()
	must(t, err)
	defer func() { must(t, w.Unregister()) }()

	const n = 1_000_000
	var count int
	incr := func(unsafe.Pointer) { count++ }
	for range n {
		must(t, w.Defer(incr, nil))
	}
	must(t, w.BarrierThread())

	if count != n {
		t.Fatalf("got %d callbacks, want %d", count, n)
	}
}
