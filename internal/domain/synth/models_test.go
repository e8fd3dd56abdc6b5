package synth

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/mediexplain/llm-server-go/internal/randx"
)

func TestConsolidateFixedOrder(t *testing.T) {
	sections := map[Stage]map[string]any{
		StageDemographics: {"name": "John Carter"},
		StageDiagnosis:    {"primary_diagnosis": "CHF"},
	}
	record := Consolidate(sections)

	patient, ok := record["patient_record"].(map[string]any)
	if !ok {
		t.Fatalf("patient_record missing: %v", record)
	}
	if len(patient) != len(SectionOrder) {
		t.Fatalf("expected %d sections, got %d", len(SectionOrder), len(patient))
	}
	demo, ok := patient["demographics"].(map[string]any)
	if !ok || demo["name"] != "John Carter" {
		t.Fatalf("demographics not carried over: %v", patient["demographics"])
	}
	// Missing sections are present but empty, so rendering never panics.
	billing, ok := patient["billing"].(map[string]any)
	if !ok || len(billing) != 0 {
		t.Fatalf("expected empty billing section: %v", patient["billing"])
	}
}

func TestRandomHintsRange(t *testing.T) {
	rng := randx.New(rand.New(rand.NewPCG(1, 2)))
	for i := 0; i < 100; i++ {
		hints := RandomHints(rng)
		if hints.Age < 25 || hints.Age > 85 {
			t.Fatalf("age out of range: %d", hints.Age)
		}
		if hints.Sex != "Male" && hints.Sex != "Female" {
			t.Fatalf("unexpected sex: %q", hints.Sex)
		}
	}
}

func TestDefaultConsistencyReport(t *testing.T) {
	report := DefaultConsistencyReport("no JSON object found")
	inner, ok := report["consistency_report"].(map[string]any)
	if !ok {
		t.Fatalf("consistency_report missing: %v", report)
	}
	errs, ok := inner["errors"].([]any)
	if !ok || len(errs) != 1 || errs[0] != "no JSON object found" {
		t.Fatalf("unexpected errors: %v", inner["errors"])
	}
	if warnings, ok := inner["warnings"].([]any); !ok || len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", inner["warnings"])
	}

	empty := DefaultConsistencyReport("")
	inner = empty["consistency_report"].(map[string]any)
	if errs := inner["errors"].([]any); len(errs) != 0 {
		t.Fatalf("expected no errors: %v", errs)
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &StageError{Stage: StageTimeline, Attempts: 3, Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("expected unwrap to cause")
	}
	if err.Error() != "stage timeline failed after 3 attempts: boom" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
