package shard

import "hash/fnv"

// stableHash is deterministic across process restarts within one
// deployment; it need not be cryptographic, only consistent.
func stableHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))

	return h.Sum64()
}

// Index returns the shard index for hostID given a shard count n.
func Index(hostID string, n int) int {
	if n <= 0 {
		return 0
	}

	return int(stableHash(hostID) % uint64(n))
}
