package neural

import "math/rand"

// lottery picks an index with probability proportional to weights[i].
// The draw is uniform in [0, total) and the first index whose cumulative
// weight exceeds it wins. ok is false when nothing was resolved, which only
// happens for an empty or all-zero weight list.
func lottery(rng *rand.Rand, weights []float64) (idx int, ok bool) {
	var total float64
	for _, w := range weights {
		total += w
	}
	if len(weights) == 0 || total <= 0 {
		return -1, false
	}
	draw := rng.Float64() * total
	var acc float64
	for i, w := range weights {
		acc += w
		if acc > draw {
			return i, true
		}
	}
	return -1, false
}
