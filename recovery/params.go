//go:build !test

package recovery

const (
	// maxChainWalkDepth caps how many clusters a single chain walk during
	// pass 2 will follow before giving up, protecting against a damaged, cyclic medium. The
	// spec fixes this at ceil(256/U); this constant is the absolute upper
	// bound across every supported cluster size (U as low as 1).
	maxChainWalkDepth = 256
)
