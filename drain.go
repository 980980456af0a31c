package rcudefer

// drainQueue executes every callback enqueued in [q.tail, snapshotHead),
// then publishes the new tail. snapshotHead must have been captured by the
// caller before the grace period was awaited — never the live head, which
// a concurrent enqueue could have advanced past callbacks the grace period
// never covered. The caller must already have observed that a grace
// period has elapsed since snapshotHead was captured, and must hold the
// global drain lock (system.drainMu), since tail is only ever
// mutated under that lock.
//
// Grounded on urcu-defer.c's rcu_defer_barrier_queue: the decoder reads one
// slot, and if that slot turns out to be a function declaration (tagged or
// sentinel-escaped), unconditionally consumes the very next slot as that
// call's argument — no escape check is needed on such an argument, because
// it is never re-examined against the tag bits. An argument slot reached
// without a preceding function declaration in the same step, by contrast,
// is examined fresh and may itself be a sentinel-led redeclaration.
func drainQueue(q *writerQueue, snapshotHead uint64) {
	tail := q.tail.LoadAcquire()

	i := tail
	for i != snapshotHead {
		slot := q.buffer[i&q.mask]
		i++

		var arg uintptr
		switch {
		case isFctTagged(slot):
			q.lastFctOut = slot &^ fctBit
			arg = q.buffer[i&q.mask]
			i++
		case slot == sentinel:
			fctPtr := q.buffer[i&q.mask]
			i++
			q.lastFctOut = fctPtr
			arg = q.buffer[i&q.mask]
			i++
		default:
			arg = slot
		}

		fct := funcFromCodePointer(q.lastFctOut)
		fct(unsafeFromUintptr(arg))
	}

	q.tail.StoreRelease(i)
}
