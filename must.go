package rcudefer

import "github.com/grailbio/base/must"

// mustTrue asserts an invariant that only API misuse or a library bug can
// violate. These are treated as program errors: no attempt at graceful
// recovery.
func mustTrue(b bool, msg string) {
	must.True(b, msg)
}

// mustNever asserts that a code path is unreachable.
func mustNever(msg string) {
	must.Never(msg)
}
