//go:build !race

package rcudefer

// raceEnabled is false when the race detector is not active.
const raceEnabled = false
