package mode

// Mode is the scoring strategy.
type Mode string

// Scoring mode constants.
const (
	// Similarity ranks by cosine similarity with a score threshold.
	Similarity Mode = "similarity"
	// Filtered is similarity scoring over a metadata-filtered candidate set.
	Filtered Mode = "filtered"
	// Dot ranks by raw dot product; normalization is caller-chosen.
	Dot Mode = "dot"
	// Hybrid adds lexical metadata boosts on top of cosine similarity.
	Hybrid Mode = "hybrid"
	// Weighted blends cosine similarities of separately embedded features.
	Weighted Mode = "weighted"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	switch m {
	case Similarity, Filtered, Dot, Hybrid, Weighted:
		return true
	default:
		return false
	}
}

// Thresholded reports whether the mode applies the score threshold.
// Hybrid and weighted scores are unbounded sums and are only truncated.
func (m Mode) Thresholded() bool {
	return m == Similarity || m == Filtered
}
