package synth

import (
	"strings"
	"testing"
)

func TestNewPromptsLoadsEveryStage(t *testing.T) {
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stages := append(append([]Stage{}, SectionOrder...), StageSafety, StageConsistency)
	for _, stage := range stages {
		system, err := prompts.System(stage)
		if err != nil {
			t.Fatalf("System(%s): %v", stage, err)
		}
		if system == "" {
			t.Fatalf("empty system prompt for %s", stage)
		}
	}
}

func TestDemographicsUserFormatting(t *testing.T) {
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rendered, err := prompts.User(StageDemographics, map[string]string{
		"age": "62",
		"sex": "Female",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rendered, "Age: 62") || !strings.Contains(rendered, "Sex: Female") {
		t.Fatalf("hints not substituted:\n%s", rendered)
	}
	// Doubled braces in the template render as a literal JSON skeleton.
	if !strings.Contains(rendered, `"age": 62`) {
		t.Fatalf("skeleton braces not collapsed:\n%s", rendered)
	}
	if strings.Contains(rendered, "{{") {
		t.Fatalf("unrendered braces remain:\n%s", rendered)
	}
}

func TestTimelineUserKeepsSentinelTags(t *testing.T) {
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rendered, err := prompts.User(StageTimeline, map[string]string{
		"age":       "70",
		"sex":       "Male",
		"diagnosis": "COPD (ICD-10 J44.1)",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rendered, "<JSON>") || !strings.Contains(rendered, "</JSON>") {
		t.Fatalf("sentinel tags missing:\n%s", rendered)
	}
	if !strings.Contains(rendered, "COPD (ICD-10 J44.1)") {
		t.Fatalf("diagnosis not substituted:\n%s", rendered)
	}
}

func TestAuditUserEmbedsRecord(t *testing.T) {
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, stage := range []Stage{StageSafety, StageConsistency} {
		rendered, err := prompts.User(stage, map[string]string{"record": `{"patient_record":{}}`})
		if err != nil {
			t.Fatalf("User(%s): %v", stage, err)
		}
		if !strings.Contains(rendered, `{"patient_record":{}}`) {
			t.Fatalf("record not substituted for %s:\n%s", stage, rendered)
		}
	}
}
