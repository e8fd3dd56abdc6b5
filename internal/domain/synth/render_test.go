package synth

import (
	"strings"
	"testing"
)

func sampleRecord() map[string]any {
	return Consolidate(map[Stage]map[string]any{
		StageDemographics: {"name": "Sarah Greene", "age": float64(62)},
		StageDiagnosis:    {"primary_diagnosis": "CHF exacerbation", "icd10_code": "I50.23"},
		StageTimeline: {
			"timeline_summary": "Two-year course of progressive heart failure.",
			"timeline_table": []any{
				map[string]any{
					"date":        "2024-03-01",
					"event_type":  "ED visit",
					"description": "Presented with DOE and LE edema.",
				},
			},
		},
		StageRadiology: {
			"studies": []any{
				map[string]any{
					"modality":    "X-ray",
					"body_region": "chest",
					"study_date":  "2024-03-01",
					"findings":    "Cardiomegaly with vascular congestion.",
					"impression":  "Pulmonary edema.",
				},
			},
			"radiology_summary": "Interval worsening of pulmonary congestion.",
		},
		StageLabs: {"interpretation_summary": "BNP markedly elevated."},
	})
}

func TestRenderMarkdownSectionOrder(t *testing.T) {
	markdown := RenderMarkdown(sampleRecord(), EmptySafetyLabels(), DefaultConsistencyReport(""))

	var last int
	for _, stage := range SectionOrder {
		idx := strings.Index(markdown, "## "+sectionTitles[stage])
		if idx < 0 {
			t.Fatalf("missing section %s", sectionTitles[stage])
		}
		if idx < last {
			t.Fatalf("section %s out of order", sectionTitles[stage])
		}
		last = idx
	}
	if !strings.Contains(markdown, "## SAFETY LABELS") || !strings.Contains(markdown, "## CONSISTENCY REPORT") {
		t.Fatalf("audit sections missing")
	}
}

func TestRenderMarkdownContent(t *testing.T) {
	markdown := RenderMarkdown(sampleRecord(), EmptySafetyLabels(), DefaultConsistencyReport(""))

	if !strings.Contains(markdown, "- **name**: Sarah Greene") {
		t.Fatalf("demographics key/value missing:\n%s", markdown)
	}
	if !strings.Contains(markdown, "- **age**: 62") {
		t.Fatalf("numeric value not flattened:\n%s", markdown)
	}
	if !strings.Contains(markdown, "- 2024-03-01 | ED visit | Presented with DOE and LE edema.") {
		t.Fatalf("timeline event missing:\n%s", markdown)
	}
	if !strings.Contains(markdown, "### X-ray chest (2024-03-01)") {
		t.Fatalf("radiology study header missing:\n%s", markdown)
	}
	if !strings.Contains(markdown, "Impression: Pulmonary edema.") {
		t.Fatalf("radiology impression missing:\n%s", markdown)
	}
	if !strings.Contains(markdown, "BNP markedly elevated.") {
		t.Fatalf("labs JSON block missing:\n%s", markdown)
	}
}

func TestRenderMarkdownDeterministic(t *testing.T) {
	record := sampleRecord()
	first := RenderMarkdown(record, EmptySafetyLabels(), DefaultConsistencyReport(""))
	second := RenderMarkdown(record, EmptySafetyLabels(), DefaultConsistencyReport(""))
	if first != second {
		t.Fatalf("rendering not deterministic")
	}
}
