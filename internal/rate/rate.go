// Package rate implements the relative-change rate law shared by the
// shard worker and the historical store adapter.
package rate

// Of computes the relative change of now against last. A zero baseline
// yields 0 rather than a division by zero or an infinity, since a metric
// with no prior sample has no meaningful rate yet.
func Of(now, last float64) float64 {
	if last == 0 {
		return 0
	}

	return (now - last) / last
}
