// Package synth defines the synthetic patient record pipeline: the
// generation stages, their prompts, deterministic consolidation and
// markdown rendering.
package synth

import (
	"fmt"

	"github.com/mediexplain/llm-server-go/internal/randx"
)

// Stage identifies one generation stage. The value doubles as the
// section key in the consolidated record and as the prompt file name.
type Stage string

const (
	StageDemographics  Stage = "demographics"
	StageDiagnosis     Stage = "diagnosis"
	StageTimeline      Stage = "timeline"
	StageLabs          Stage = "labs"
	StageVitals        Stage = "vitals"
	StageRadiology     Stage = "radiology"
	StageProcedures    Stage = "procedures"
	StagePathology     Stage = "pathology"
	StageMedications   Stage = "medications"
	StageNursingNotes  Stage = "nursing_notes"
	StageClinicalNotes Stage = "clinical_notes"
	StagePrescriptions Stage = "prescriptions"
	StageBilling       Stage = "billing"

	// Post-consolidation stages. Their output is attached next to the
	// record, not inside it.
	StageSafety      Stage = "safety"
	StageConsistency Stage = "consistency"
)

// SectionOrder is the fixed order of sections under patient_record.
var SectionOrder = []Stage{
	StageDemographics,
	StageDiagnosis,
	StageTimeline,
	StageLabs,
	StageVitals,
	StageRadiology,
	StageProcedures,
	StagePathology,
	StageClinicalNotes,
	StageNursingNotes,
	StageMedications,
	StagePrescriptions,
	StageBilling,
}

// ParallelStages run concurrently once the timeline is available. Their
// prompts only depend on the demographics hints, the diagnosis and the
// timeline.
var ParallelStages = []Stage{
	StageLabs,
	StageVitals,
	StageRadiology,
	StageProcedures,
	StagePathology,
}

// Hints seed the pipeline. Age and sex are chosen randomly when the
// caller does not provide them; condition is optional and steers the
// diagnosis stage.
type Hints struct {
	Age       int
	Sex       string
	Condition string
}

var hintSexes = []string{"Male", "Female"}

// RandomHints picks an age between 25 and 85 and a sex.
func RandomHints(rng *randx.LockedRand) Hints {
	return Hints{
		Age: 25 + rng.IntN(61),
		Sex: hintSexes[rng.IntN(len(hintSexes))],
	}
}

// StageError reports a stage that failed all its attempts.
type StageError struct {
	Stage    Stage
	Attempts int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed after %d attempts: %v", e.Stage, e.Attempts, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Consolidate merges the stage outputs into the unified record. No LLM
// is involved; this is a deterministic merge in SectionOrder.
func Consolidate(sections map[Stage]map[string]any) map[string]any {
	record := make(map[string]any, len(SectionOrder))
	for _, stage := range SectionOrder {
		section, ok := sections[stage]
		if !ok {
			section = map[string]any{}
		}
		record[string(stage)] = section
	}
	return map[string]any{"patient_record": record}
}

// DefaultConsistencyReport is substituted when the consistency checker
// output cannot be parsed. A finished record is never aborted over a
// failed audit.
func DefaultConsistencyReport(reason string) map[string]any {
	errs := []any{}
	if reason != "" {
		errs = append(errs, reason)
	}
	return map[string]any{
		"consistency_report": map[string]any{
			"errors":          errs,
			"warnings":        []any{},
			"suggested_fixes": []any{},
		},
	}
}

// EmptySafetyLabels is the fallback when the safety labeler fails.
func EmptySafetyLabels() map[string]any {
	return map[string]any{
		"safety_labels": map[string]any{
			"medication_risks":  []any{},
			"interaction_risks": []any{},
			"lab_risks":         []any{},
			"vital_risks":       []any{},
			"pathology_risks":   []any{},
			"radiology_risks":   []any{},
			"procedure_risks":   []any{},
			"global_warnings":   []any{},
		},
	}
}
