package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

var sectionTitles = map[Stage]string{
	StageDemographics:  "PATIENT DEMOGRAPHICS",
	StageDiagnosis:     "PRIMARY DIAGNOSIS",
	StageTimeline:      "CLINICAL TIMELINE",
	StageLabs:          "LABORATORY RESULTS",
	StageVitals:        "VITAL SIGNS",
	StageRadiology:     "RADIOLOGY INTERPRETATION",
	StageProcedures:    "PROCEDURES",
	StagePathology:     "PATHOLOGY REPORT",
	StageClinicalNotes: "PHYSICIAN CLINICAL NOTES",
	StageNursingNotes:  "NURSING NOTES",
	StageMedications:   "MEDICATION PLAN",
	StagePrescriptions: "PRESCRIPTIONS",
	StageBilling:       "BILLING SUMMARY",
}

// RenderMarkdown converts the consolidated record into a readable
// markdown document. Rendering is deterministic: sections follow
// SectionOrder and map keys are sorted.
func RenderMarkdown(record map[string]any, safety map[string]any, consistency map[string]any) string {
	var b strings.Builder
	b.WriteString("# SYNTHETIC PATIENT RECORD\n\n")

	sections, _ := record["patient_record"].(map[string]any)
	for _, stage := range SectionOrder {
		section, _ := sections[string(stage)].(map[string]any)
		b.WriteString("## " + sectionTitles[stage] + "\n\n")
		switch stage {
		case StageDemographics, StageDiagnosis:
			writeKeyValues(&b, section)
		case StageTimeline:
			writeTimeline(&b, section)
		case StageRadiology:
			writeRadiology(&b, section)
		default:
			writeJSONBlock(&b, section)
		}
		b.WriteString("\n")
	}

	b.WriteString("## SAFETY LABELS\n\n")
	writeJSONBlock(&b, safety)
	b.WriteString("\n## CONSISTENCY REPORT\n\n")
	writeJSONBlock(&b, consistency)
	return b.String()
}

func writeKeyValues(b *strings.Builder, section map[string]any) {
	keys := make([]string, 0, len(section))
	for key := range section {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(b, "- **%s**: %s\n", key, formatValue(section[key]))
	}
}

func writeTimeline(b *strings.Builder, section map[string]any) {
	if summary, ok := section["timeline_summary"].(string); ok && summary != "" {
		b.WriteString(summary + "\n\n")
	}
	events, _ := section["timeline_table"].([]any)
	if len(events) == 0 {
		return
	}
	b.WriteString("Events:\n\n")
	for _, raw := range events {
		event, _ := raw.(map[string]any)
		fmt.Fprintf(b, "- %s | %s | %s\n",
			formatValue(event["date"]),
			formatValue(event["event_type"]),
			formatValue(event["description"]))
	}
}

func writeRadiology(b *strings.Builder, section map[string]any) {
	studies, _ := section["studies"].([]any)
	for _, raw := range studies {
		study, _ := raw.(map[string]any)
		fmt.Fprintf(b, "### %s %s (%s)\n\n",
			formatValue(study["modality"]),
			formatValue(study["body_region"]),
			formatValue(study["study_date"]))
		if findings, ok := study["findings"].(string); ok && findings != "" {
			b.WriteString(findings + "\n\n")
		}
		if impression, ok := study["impression"].(string); ok && impression != "" {
			b.WriteString("Impression: " + impression + "\n\n")
		}
	}
	if summary, ok := section["radiology_summary"].(string); ok && summary != "" {
		b.WriteString(summary + "\n")
	}
}

func writeJSONBlock(b *strings.Builder, data map[string]any) {
	if len(data) == 0 {
		b.WriteString("_No data._\n")
		return
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		b.WriteString("_No data._\n")
		return
	}
	b.WriteString("```json\n")
	b.Write(encoded)
	b.WriteString("\n```\n")
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
