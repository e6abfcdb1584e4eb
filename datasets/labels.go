package datasets

// QuadrantFor maps an arousal/valence self-rating onto the four-quadrant
// label space given the midpoints of the rating scale: high arousal with
// positive valence is 1, high arousal with negative valence 2, low
// arousal with negative valence 3, and low arousal with positive valence
// 4. Arousal and valence at the midpoint count as high and positive.
func QuadrantFor(arousal, valence, arousalMid, valenceMid float64) int {
	if arousal >= arousalMid {
		if valence >= valenceMid {
			return 1
		}
		return 2
	}
	if valence < valenceMid {
		return 3
	}
	return 4
}
