package extract

import (
	"errors"
	"fmt"
)

const (
	noBlockExcerptLimit = 1500
	parseExcerptLimit   = 4000
)

// ErrEmptyInput is returned for empty or whitespace-only model output.
var ErrEmptyInput = errors.New("extract: empty model output")

// NoBlockError reports that no brace-delimited block was found.
type NoBlockError struct {
	Excerpt string
}

func (e *NoBlockError) Error() string {
	return fmt.Sprintf("extract: no structured block found: %s", e.Excerpt)
}

// ParseError reports that the cleaned candidate block was rejected by the
// strict JSON parser.
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("extract: parse failed: %v: %s", e.Err, e.Excerpt)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
