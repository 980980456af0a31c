//go:build race

package rcudefer

// raceEnabled is true when the race detector is active. Nothing in the
// package or its tests currently consults it.
const raceEnabled = true
