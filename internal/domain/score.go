package domain

const (
	// MinTrustScore is the lower bound of a user's trust score.
	MinTrustScore = 0
	// MaxTrustScore is the upper bound of a user's trust score.
	MaxTrustScore = 100
	// DefaultTrustScore is the score every account starts with before any
	// ledger entry is applied.
	DefaultTrustScore = 50
	// MaxPointsMagnitude bounds a single delta. Anything larger would only
	// ever saturate the score.
	MaxPointsMagnitude = 100
)

// ApplyDelta adds delta to current and saturates the result to
// [MinTrustScore, MaxTrustScore]. Clamping discards the overflow, so replaying
// a ledger's deltas from zero and clamping once at the end will not in general
// reproduce the stored score.
func ApplyDelta(current, delta int) int {
	return clampScore(current + delta)
}

func clampScore(score int) int {
	if score < MinTrustScore {
		return MinTrustScore
	}
	if score > MaxTrustScore {
		return MaxTrustScore
	}
	return score
}
