package types

// ATSResult is the quality assessment of one compiled resume
type ATSResult struct {
	Score        int      `json:"score"`
	Feedback     []string `json:"feedback"`
	Improvements []string `json:"improvements"`
}

// ScoreEntry records the score computed for one attempt
type ScoreEntry struct {
	Attempt int `json:"attempt"`
	Score   int `json:"score"`
}

// ClampScore bounds a score to 0..100
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
