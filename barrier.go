package rcudefer

// Barrier drains every registered writer's queue up to the head each held
// at the start of this call, after one grace period. It may be called from
// any goroutine, registered or not.
//
// Every callback enqueued strictly before this call's snapshot pass, on
// any writer, has been executed by the time Barrier returns, provided the
// enqueuing goroutine synchronized with the caller externally. Callbacks
// enqueued concurrently with or after the snapshot pass may be left for a
// later batch.
func Barrier() error {
	return barrierAll(sys)
}

func barrierAll(s *system) error {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	var total uint64
	for _, e := range s.reg.entries {
		e.lastHead = e.queue.head.LoadAcquire()
		total += e.lastHead - e.queue.tail.LoadAcquire()
	}
	if total == 0 {
		// Skip the grace period entirely when there is no queued work:
		// no callbacks means no reclamation work requires one.
		return nil
	}

	gracePeriod()()

	for _, e := range s.reg.entries {
		drainQueue(e.queue, e.lastHead)
	}
	return nil
}

// BarrierThread drains only the calling writer's own queue, after one
// grace period if (and only if) it is non-empty.
func (w *Writer) BarrierThread() error {
	mustTrue(!w.unregistered.LoadAcquire(), "rcudefer: BarrierThread on an unregistered writer")
	w.sys.drainMu.Lock()
	defer w.sys.drainMu.Unlock()
	barrierThreadLocked(w.queue)
	return nil
}

// barrierThreadLocked requires the drain lock already held. Shared by the
// public BarrierThread, the backpressure path in Defer, and Unregister's
// final self-drain.
func barrierThreadLocked(q *writerQueue) {
	head := q.head.LoadRelaxed()
	tail := q.tail.LoadAcquire()
	if head == tail {
		return
	}
	gracePeriod()()
	drainQueue(q, head)
}
