package history

// =============================================================================
// SIMULATED RANK - Display/trend heuristic, NOT the official ranking
// =============================================================================

// simulatedRank buckets an attainment percentage into a four-place display
// rank. This is a coarse approximation used only for timeline trends; the
// official competition ranking is computed by the period-closing pipeline
// and must never be substituted by this function.
func simulatedRank(attainment float64) int {
	switch {
	case attainment >= 1.10:
		return 1
	case attainment >= 0.95:
		return 2
	case attainment >= 0.80:
		return 3
	default:
		return 4
	}
}

// simulatedPoints maps a simulated rank to the display point scale.
func simulatedPoints(rank int) float64 {
	points := map[int]float64{1: 1.0, 2: 1.5, 3: 2.0, 4: 2.5}
	return points[rank]
}
