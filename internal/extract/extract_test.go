package extract

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestExtractCleanInput(t *testing.T) {
	inputs := []string{
		`{"a": 1}`,
		`{"a": {"b": 1}}`,
		`{"a": [1, 2, 3], "b": {"c": "d"}}`,
		`{"s": "text", "n": 1.5, "t": true, "z": null}`,
	}
	for _, input := range inputs {
		record, err := Extract(input)
		if err != nil {
			t.Fatalf("Extract(%q) failed: %v", input, err)
		}
		want, werr := parseObject(input)
		if werr != nil {
			t.Fatalf("parseObject(%q) failed: %v", input, werr)
		}
		if !reflect.DeepEqual(record, want) {
			t.Fatalf("Extract(%q) = %v, want %v", input, record, want)
		}
	}
}

func TestExtractFenceTolerance(t *testing.T) {
	plain, err := Extract(`{"a": 1, "b": "x"}`)
	if err != nil {
		t.Fatalf("plain extract failed: %v", err)
	}
	fenced, err := Extract("```json\n{\"a\": 1, \"b\": \"x\"}\n```")
	if err != nil {
		t.Fatalf("fenced extract failed: %v", err)
	}
	if !reflect.DeepEqual(plain, fenced) {
		t.Fatalf("fenced result differs: %v vs %v", fenced, plain)
	}
}

func TestExtractTrailingCommaTolerance(t *testing.T) {
	record, err := Extract(`{"a": 1, "b": [1, 2,], }`)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	want := map[string]any{"a": float64(1), "b": []any{float64(1), float64(2)}}
	if !reflect.DeepEqual(record, want) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestExtractControlCharTolerance(t *testing.T) {
	record, err := Extract("{\"a\":\x001,\x0c\"b\":\x072}")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	want := map[string]any{"a": float64(1), "b": float64(2)}
	if !reflect.DeepEqual(record, want) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestExtractNewlineTolerance(t *testing.T) {
	record, err := Extract("{\"a\":\n1,\n\"b\":\r\n2}")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	want := map[string]any{"a": float64(1), "b": float64(2)}
	if !reflect.DeepEqual(record, want) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t  \n"} {
		if _, err := Extract(input); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("Extract(%q) = %v, want ErrEmptyInput", input, err)
		}
	}
}

func TestExtractNoBlock(t *testing.T) {
	_, err := Extract("the model refused to answer")
	var noBlock *NoBlockError
	if !errors.As(err, &noBlock) {
		t.Fatalf("expected NoBlockError, got: %v", err)
	}
	if noBlock.Excerpt == "" {
		t.Fatalf("expected excerpt in NoBlockError")
	}
}

func TestExtractNoBlockExcerptBounded(t *testing.T) {
	_, err := Extract(strings.Repeat("a", 5000))
	var noBlock *NoBlockError
	if !errors.As(err, &noBlock) {
		t.Fatalf("expected NoBlockError, got: %v", err)
	}
	if len(noBlock.Excerpt) != noBlockExcerptLimit {
		t.Fatalf("excerpt length = %d, want %d", len(noBlock.Excerpt), noBlockExcerptLimit)
	}
}

func TestExtractParseErrorExcerptBounded(t *testing.T) {
	input := "{\"a\": " + strings.Repeat("!", 6000) + "}"
	_, err := Extract(input)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got: %v", err)
	}
	if len(parseErr.Excerpt) != parseExcerptLimit {
		t.Fatalf("excerpt length = %d, want %d", len(parseErr.Excerpt), parseExcerptLimit)
	}
	if parseErr.Unwrap() == nil {
		t.Fatalf("expected wrapped parser error")
	}
}

func TestExtractIllegalEscapes(t *testing.T) {
	record, err := Extract(`{"path": "C:\Users\Work", "quote": "say \"hi\"", "nl": "a\nb"}`)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if record["path"] != "C:UsersWork" {
		t.Fatalf("unexpected path: %v", record["path"])
	}
	if record["quote"] != `say "hi"` {
		t.Fatalf("unexpected quote: %v", record["quote"])
	}
	if record["nl"] != "a\nb" {
		t.Fatalf("unexpected nl: %v", record["nl"])
	}
}

func TestExtractSentinel(t *testing.T) {
	input := `prose {"decoy": true} more prose <JSON>{"events": [1]}</JSON> trailing`
	record, err := Extract(input, WithSentinel("JSON"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	want := map[string]any{"events": []any{float64(1)}}
	if !reflect.DeepEqual(record, want) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestExtractSentinelFallback(t *testing.T) {
	record, err := Extract(`no tags here {"a": 1}`, WithSentinel("JSON"))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if record["a"] != float64(1) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestExtractScenarioFencedWithProse(t *testing.T) {
	input := "Sure! Here you go:\n```json\n{\"a\": 1, \"b\": [1,2,3],}\n```\nHope that helps!"
	record, err := Extract(input)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	want := map[string]any{"a": float64(1), "b": []any{float64(1), float64(2), float64(3)}}
	if !reflect.DeepEqual(record, want) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestExtractScenarioDoubledBraces(t *testing.T) {
	record, err := Extract(`{{"x": "y"}}`)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	want := map[string]any{"x": "y"}
	if !reflect.DeepEqual(record, want) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestExtractScenarioConcatenatedObjects(t *testing.T) {
	// Greedy span covers both objects; the parser consumes the first
	// complete value and ignores the rest.
	record, err := Extract(`{"a":1} garbage {"b":2}`)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	want := map[string]any{"a": float64(1)}
	if !reflect.DeepEqual(record, want) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestExtractNestedObjectUnchanged(t *testing.T) {
	record, err := Extract(`{"outer": {"inner": {"deep": 1}}}`)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	want := map[string]any{"outer": map[string]any{"inner": map[string]any{"deep": float64(1)}}}
	if !reflect.DeepEqual(record, want) {
		t.Fatalf("unexpected record: %v", record)
	}
}
