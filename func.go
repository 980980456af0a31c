package rcudefer

import (
	"reflect"
	"sync"
	"unsafe"
)

// unsafeFromUintptr recovers the unsafe.Pointer previously narrowed to a
// uintptr by Writer.Defer for storage in a queue slot.
//
// Go's garbage collector does not track a value while it is only held as a
// uintptr: this mirrors the C original, where deferred arguments are bare
// void* with no GC involvement at all. A value passed through Defer must
// remain reachable by some other path (it was unlinked from the
// reader-visible structure, which is exactly the RCU contract, but the
// deferred callback — not this queue — is what is expected to own it until
// it runs) for the duration it sits on the ring buffer.
func unsafeFromUintptr(p uintptr) unsafe.Pointer {
	return unsafe.Pointer(p) //nolint:govet // see doc comment: matches the C original's untracked void*
}

// Func is a deferred callback. It receives the single pointer-sized
// argument passed to Writer.Defer.
//
// fct must not be a closure whose behavior depends on captured state: Go
// compiles every instance of one closure literal to the same code address
// regardless of what it captured, so two closures sharing a literal would
// be indistinguishable once encoded onto the queue (they'd collide under
// the function-pointer elision below and the wrong captured state could
// run). Pass a plain top-level function, a method value bound
// to a fixed receiver, or a closure with no captured state; carry all
// per-call data through arg, exactly as the C original's "void (*fct)(void
// *p)" does.
type Func func(arg unsafe.Pointer)

// sentinel is the reserved slot value meaning "the next slot is a raw,
// undisguised function pointer" (followed by its argument). It must not collide with any
// legal code or data pointer. Go pointers (and the code pointers recovered
// via reflect) never reach the top of the address space, so the all-ones
// pattern is safe to reserve, matching the role of urcu-defer.c's
// DQ_FCT_MARK.
const sentinel = ^uintptr(0)

// fctBit is the tag bit applied to a slot holding a function pointer, set
// on the assumption that function entry points are at least 2-byte
// aligned (true for every architecture Go currently targets).
const fctBit = uintptr(1)

// funcTable recovers a callable Func from the code pointer recorded on the
// queue. Go cannot invoke a function given only its entry address, unlike
// the C original which stores and calls a bare function pointer, so the
// actual Func value is kept here, keyed by its own code pointer, populated
// the first time Defer observes it (via codePointer).
var funcTable sync.Map // map[uintptr]Func

// codePointer returns fct's entry address and registers fct in funcTable
// so the drain path can recover a callable value from that address alone.
func codePointer(fct Func) uintptr {
	p := reflect.ValueOf(fct).Pointer()
	funcTable.LoadOrStore(p, fct)
	return p
}

// funcFromCodePointer recovers the Func previously registered for p by
// codePointer. It panics if p was never registered — a drainer should
// never observe a function slot that enqueue didn't itself write.
func funcFromCodePointer(p uintptr) Func {
	v, ok := funcTable.Load(p)
	mustTrue(ok, "rcudefer: decoded function pointer was never registered")
	return v.(Func)
}

// isFctTagged reports whether p carries the function-pointer tag.
func isFctTagged(p uintptr) bool {
	return p&fctBit != 0
}

// needsEscape reports whether the raw pointer-sized value v would be
// misinterpreted if written to a slot directly: either it looks like a
// tagged function pointer (low bit set) or it collides with the sentinel.
func needsEscape(v uintptr) bool {
	return v&fctBit != 0 || v == sentinel
}
