//go:build test

package recovery

const (
	// maxChainWalkDepth is lowered under `-tags test` so a runaway cyclic
	// chain in a deliberately corrupted test fixture is caught by this
	// bound quickly rather than by scanning all 256 possible hops.
	maxChainWalkDepth = 16
)
