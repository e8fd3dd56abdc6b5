// Package extract recovers a JSON object from noisy LLM completion text.
//
// Models wrap their output in markdown fences, prose, stray control
// characters and template artifacts. Extract runs a fixed ordered list of
// cleanup steps over the raw text, isolates the candidate object span and
// hands it to a strict parser. Each invocation is a pure single pass over
// its input; retry and fallback policy belong to the caller.
package extract

import (
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

var (
	controlChars  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	illegalEscape = regexp.MustCompile(`\\([^"\\/bfnrtu])`)
	braceBlock    = regexp.MustCompile(`(?s)\{.*\}`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	wsRun         = regexp.MustCompile(`\s+`)
)

type options struct {
	sentinel string
}

// Option configures a single extraction.
type Option func(*options)

// WithSentinel prefers a block wrapped in <tag>...</tag> over the bare
// brace heuristic. Falls back to brace isolation when the tags are absent.
func WithSentinel(tag string) Option {
	return func(o *options) {
		o.sentinel = tag
	}
}

// Extract parses the first JSON object found in raw model output.
//
// Steps, in order: trim, fence stripping, control-character scrubbing,
// newline flattening, illegal-escape removal, block isolation (sentinel
// tags when requested, otherwise first "{" to last "}"), trailing-comma
// removal, whitespace collapsing, strict parse.
//
// The candidate span is greedy from the first "{" to the last "}"; when
// the text holds several concatenated top-level objects the parser
// consumes the first complete value and the rest is ignored. Known
// limitation, kept because callers depend on it.
func Extract(raw string, opts ...Option) (map[string]any, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrEmptyInput
	}

	cleaned := stripFences(trimmed)
	cleaned = controlChars.ReplaceAllString(cleaned, " ")
	cleaned = strings.ReplaceAll(cleaned, "\n", " ")
	cleaned = illegalEscape.ReplaceAllString(cleaned, "$1")

	block, ok := isolateBlock(cleaned, o.sentinel)
	if !ok {
		return nil, &NoBlockError{Excerpt: truncate(cleaned, noBlockExcerptLimit)}
	}

	block = trailingComma.ReplaceAllString(block, "$1")
	block = wsRun.ReplaceAllString(block, " ")

	record, err := parseObject(block)
	if err == nil {
		return record, nil
	}

	// Doubled braces leak from upstream prompt templates. Valid nested
	// objects also end in "}}", so the collapse only runs after a strict
	// parse failure.
	repaired := collapseDoubledBraces(block)
	if repaired != block {
		if record, rerr := parseObject(repaired); rerr == nil {
			return record, nil
		}
	}

	return nil, &ParseError{Excerpt: truncate(block, parseExcerptLimit), Err: err}
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	return strings.ReplaceAll(text, "```", "")
}

func isolateBlock(cleaned string, sentinel string) (string, bool) {
	if sentinel != "" {
		tag := regexp.QuoteMeta(sentinel)
		pattern := regexp.MustCompile(`(?s)<` + tag + `>(.*?)</` + tag + `>`)
		if m := pattern.FindStringSubmatch(cleaned); m != nil {
			cleaned = m[1]
		}
	}
	block := braceBlock.FindString(cleaned)
	if block == "" {
		return "", false
	}
	return block, true
}

func collapseDoubledBraces(block string) string {
	block = strings.ReplaceAll(block, "{{", "{")
	return strings.ReplaceAll(block, "}}", "}")
}

// parseObject decodes the first complete JSON value in the block. Trailing
// text after that value is not an error.
func parseObject(block string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(block))
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, err
	}
	return record, nil
}
