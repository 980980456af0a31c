package rcudefer

// registryEntry is one record in the writer registry: a queue and the
// head snapshot taken for it mid-drain. The writer handle that owns this
// entry is the *Writer already holding a pointer to it, so it is not
// duplicated here.
type registryEntry struct {
	queue    *writerQueue
	lastHead uint64 // scratch: snapshot taken before synchronize_rcu, used only mid-drain
}

// registry is the process-wide writer registry: a lock-protected,
// growth-only array. Go's append already grows a backing array
// geometrically, which is the idiomatic equivalent of the original's
// explicit capacity-doubling malloc/memcpy dance; this type supplies the
// part append doesn't: swap-with-last removal, and O(n) lookup by queue
// identity (a hash table keyed by writer would make removal O(1), but is
// not required for correctness and the original doesn't do it either).
//
// Every method requires the caller to already hold the drain lock
// (system.drainMu) — see system.go. Methods here do no locking of their
// own, mirroring how drainQueue itself assumes the lock is already held.
type registry struct {
	entries []*registryEntry
}

// add appends a new entry. Called once, from Register, while both the
// lifecycle lock and the drain lock are held.
func (r *registry) add(q *writerQueue) *registryEntry {
	e := &registryEntry{queue: q}
	r.entries = append(r.entries, e)
	return e
}

// remove deletes e from the registry by swapping it with the last entry.
// Called once, from Unregister, while both locks are held. It is a
// program error for e not to be present.
func (r *registry) remove(e *registryEntry) {
	for i, entry := range r.entries {
		if entry == e {
			last := len(r.entries) - 1
			r.entries[i] = r.entries[last]
			r.entries[last] = nil
			r.entries = r.entries[:last]
			return
		}
	}
	mustNever("rcudefer: unregistering a writer not present in the registry")
}

// len reports the number of registered writers.
func (r *registry) len() int {
	return len(r.entries)
}
