package guard

import "fmt"

// Match is a single rule hit.
type Match struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// Evaluation is the outcome of screening one input.
type Evaluation struct {
	Score     float64 `json:"score"`
	Hits      []Match `json:"hits"`
	Threshold float64 `json:"threshold"`
}

// Malicious reports whether the score crossed the threshold.
func (e Evaluation) Malicious() bool {
	return e.Score >= e.Threshold
}

// BlockedError is returned for inputs the guard rejects.
type BlockedError struct {
	Score     float64
	Threshold float64
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("input blocked by injection guard (score=%.2f, threshold=%.2f)", e.Score, e.Threshold)
}
