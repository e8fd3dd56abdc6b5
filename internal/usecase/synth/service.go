// Package synth runs the synthetic patient record pipeline: staged LLM
// generation, deterministic consolidation, safety labeling, the
// consistency audit, markdown rendering and archiving.
package synth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/mediexplain/llm-server-go/internal/archive"
	"github.com/mediexplain/llm-server-go/internal/config"
	synthdomain "github.com/mediexplain/llm-server-go/internal/domain/synth"
	"github.com/mediexplain/llm-server-go/internal/extract"
	"github.com/mediexplain/llm-server-go/internal/gemini"
	"github.com/mediexplain/llm-server-go/internal/httperror"
	"github.com/mediexplain/llm-server-go/internal/randx"
	"github.com/mediexplain/llm-server-go/internal/toon"
)

const (
	snippetLimit     = 2500
	auditRecordLimit = 15000
	defaultStayDays  = 5
)

// Service implements record generation and retrieval.
type Service struct {
	cfg     *config.Config
	client  gemini.LLM
	prompts *synthdomain.Prompts
	archive *archive.Store
	rng     *randx.LockedRand
	logger  *slog.Logger
}

// New builds the synth service.
func New(
	cfg *config.Config,
	client gemini.LLM,
	prompts *synthdomain.Prompts,
	archiveStore *archive.Store,
	rng *randx.LockedRand,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = randx.New(nil)
	}
	return &Service{
		cfg:     cfg,
		client:  client,
		prompts: prompts,
		archive: archiveStore,
		rng:     rng,
		logger:  logger,
	}
}

// GenerateRequest optionally pins the demographic hints.
type GenerateRequest struct {
	Age       int
	Sex       string
	Condition string
}

// Generate runs the full pipeline and archives the result.
func (s *Service) Generate(ctx context.Context, requestID string, req GenerateRequest) (*archive.Record, error) {
	if s == nil || s.client == nil || s.prompts == nil {
		return nil, httperror.NewInternalError("service not configured")
	}

	hints := synthdomain.RandomHints(s.rng)
	if req.Age > 0 {
		hints.Age = req.Age
	}
	if strings.TrimSpace(req.Sex) != "" {
		hints.Sex = strings.TrimSpace(req.Sex)
	}
	hints.Condition = strings.TrimSpace(req.Condition)

	started := time.Now()
	s.logger.Info("synth_generate_started",
		"request_id", requestID,
		"age", hints.Age,
		"sex", hints.Sex,
		"condition", hints.Condition,
	)

	sections := make(map[synthdomain.Stage]map[string]any)

	demographics, err := s.runStage(ctx, synthdomain.StageDemographics, map[string]string{
		"age": strconv.Itoa(hints.Age),
		"sex": hints.Sex,
	})
	if err != nil {
		return nil, err
	}
	sections[synthdomain.StageDemographics] = demographics

	diagnosis, err := s.runStage(ctx, synthdomain.StageDiagnosis, map[string]string{
		"age":       strconv.Itoa(hints.Age),
		"sex":       hints.Sex,
		"condition": hints.Condition,
	})
	if err != nil {
		return nil, err
	}
	sections[synthdomain.StageDiagnosis] = diagnosis
	dxSummary := diagnosisSummary(diagnosis)

	timeline, err := s.runStage(ctx, synthdomain.StageTimeline, map[string]string{
		"age":       strconv.Itoa(hints.Age),
		"sex":       hints.Sex,
		"diagnosis": dxSummary,
	}, extract.WithSentinel("JSON"))
	if err != nil {
		return nil, err
	}
	sections[synthdomain.StageTimeline] = timeline
	firstDate, lastDate := timelineDates(timeline)

	parallel, err := s.runParallelStages(ctx, hints, dxSummary, timeline, firstDate, lastDate)
	if err != nil {
		return nil, err
	}
	for stage, section := range parallel {
		sections[stage] = section
	}

	if err := s.runSequentialStages(ctx, hints, dxSummary, sections); err != nil {
		return nil, err
	}

	record := synthdomain.Consolidate(sections)
	recordSnippet := clip(marshalJSON(record), auditRecordLimit)
	safety := s.auditSafety(ctx, recordSnippet)
	consistency := s.auditConsistency(ctx, recordSnippet)
	markdown := synthdomain.RenderMarkdown(record, safety, consistency)

	recordID, err := generateRecordID()
	if err != nil {
		return nil, httperror.NewInternalError("record id generation failed")
	}
	condition, _ := diagnosis["primary_diagnosis"].(string)

	archived := archive.Record{
		ID:          recordID,
		Condition:   condition,
		Patient:     record,
		Safety:      safety,
		Consistency: consistency,
		Markdown:    markdown,
		CreatedAt:   time.Now().UTC(),
	}
	if s.archive != nil {
		if err := s.archive.Save(ctx, archived); err != nil {
			s.logError("synth_archive_save_failed", err)
			return nil, fmt.Errorf("archive record: %w", err)
		}
	}

	s.logger.Info("synth_generate_finished",
		"request_id", requestID,
		"record_id", recordID,
		"condition", condition,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return &archived, nil
}

// Get loads an archived record by ID.
func (s *Service) Get(ctx context.Context, recordID string) (*archive.Record, error) {
	if s == nil || s.archive == nil {
		return nil, httperror.NewInternalError("archive not configured")
	}
	record, err := s.archive.Get(ctx, recordID)
	if err != nil {
		if err == archive.ErrRecordNotFound {
			return nil, httperror.NewRecordNotFound(recordID)
		}
		return nil, fmt.Errorf("load record: %w", err)
	}
	return record, nil
}

// Count reports how many records the archive currently holds.
func (s *Service) Count(ctx context.Context) (int, error) {
	if s == nil || s.archive == nil {
		return 0, httperror.NewInternalError("archive not configured")
	}
	return s.archive.Count(ctx)
}

// GetMarkdown loads the rendered markdown of an archived record.
func (s *Service) GetMarkdown(ctx context.Context, recordID string) (string, error) {
	record, err := s.Get(ctx, recordID)
	if err != nil {
		return "", err
	}
	return record.Markdown, nil
}

func (s *Service) runParallelStages(
	ctx context.Context,
	hints synthdomain.Hints,
	dxSummary string,
	timeline map[string]any,
	firstDate string,
	lastDate string,
) (map[synthdomain.Stage]map[string]any, error) {
	base := map[string]string{
		"age":       strconv.Itoa(hints.Age),
		"sex":       hints.Sex,
		"diagnosis": dxSummary,
	}
	timelineSnippet := snippet(synthdomain.StageTimeline, timeline)

	stageVars := map[synthdomain.Stage]map[string]string{
		synthdomain.StageLabs:       merge(base, map[string]string{"first_date": firstDate}),
		synthdomain.StageVitals:     merge(base, map[string]string{"first_date": firstDate}),
		synthdomain.StageRadiology:  merge(base, map[string]string{"first_date": firstDate, "last_date": lastDate}),
		synthdomain.StageProcedures: merge(base, map[string]string{"timeline": timelineSnippet}),
		synthdomain.StagePathology:  merge(base, map[string]string{"timeline": timelineSnippet}),
	}

	results := make(map[synthdomain.Stage]map[string]any, len(stageVars))
	if s.cfg == nil || !s.cfg.Synth.ParallelSections {
		for _, stage := range synthdomain.ParallelStages {
			section, err := s.runStage(ctx, stage, stageVars[stage])
			if err != nil {
				return nil, err
			}
			results[stage] = section
		}
		return results, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	sectionCh := make(chan stageResult, len(stageVars))
	for _, stage := range synthdomain.ParallelStages {
		stage := stage
		group.Go(func() error {
			section, err := s.runStage(groupCtx, stage, stageVars[stage])
			if err != nil {
				return err
			}
			sectionCh <- stageResult{stage: stage, section: section}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	close(sectionCh)
	for result := range sectionCh {
		results[result.stage] = result.section
	}
	return results, nil
}

type stageResult struct {
	stage   synthdomain.Stage
	section map[string]any
}

func (s *Service) runSequentialStages(
	ctx context.Context,
	hints synthdomain.Hints,
	dxSummary string,
	sections map[synthdomain.Stage]map[string]any,
) error {
	age := strconv.Itoa(hints.Age)
	snip := func(stage synthdomain.Stage) string {
		return snippet(stage, sections[stage])
	}

	medications, err := s.runStage(ctx, synthdomain.StageMedications, map[string]string{
		"age":       age,
		"sex":       hints.Sex,
		"diagnosis": dxSummary,
		"timeline":  snip(synthdomain.StageTimeline),
		"labs":      snip(synthdomain.StageLabs),
		"vitals":    snip(synthdomain.StageVitals),
	})
	if err != nil {
		return err
	}
	sections[synthdomain.StageMedications] = medications

	nursing, err := s.runStage(ctx, synthdomain.StageNursingNotes, map[string]string{
		"age":          age,
		"sex":          hints.Sex,
		"diagnosis":    dxSummary,
		"demographics": snip(synthdomain.StageDemographics),
		"vitals":       snip(synthdomain.StageVitals),
		"labs":         snip(synthdomain.StageLabs),
		"timeline":     snip(synthdomain.StageTimeline),
	})
	if err != nil {
		return err
	}
	sections[synthdomain.StageNursingNotes] = nursing

	clinical, err := s.runStage(ctx, synthdomain.StageClinicalNotes, map[string]string{
		"age":          age,
		"sex":          hints.Sex,
		"diagnosis":    dxSummary,
		"demographics": snip(synthdomain.StageDemographics),
		"timeline":     snip(synthdomain.StageTimeline),
		"labs":         snip(synthdomain.StageLabs),
		"vitals":       snip(synthdomain.StageVitals),
		"radiology":    snip(synthdomain.StageRadiology),
	})
	if err != nil {
		return err
	}
	sections[synthdomain.StageClinicalNotes] = clinical

	prescriptions, err := s.runStage(ctx, synthdomain.StagePrescriptions, map[string]string{
		"age":         age,
		"sex":         hints.Sex,
		"diagnosis":   dxSummary,
		"medications": snip(synthdomain.StageMedications),
		"vitals":      snip(synthdomain.StageVitals),
		"labs":        snip(synthdomain.StageLabs),
	})
	if err != nil {
		return err
	}
	sections[synthdomain.StagePrescriptions] = prescriptions

	billing, err := s.runStage(ctx, synthdomain.StageBilling, map[string]string{
		"age":            age,
		"sex":            hints.Sex,
		"diagnosis":      dxSummary,
		"demographics":   snip(synthdomain.StageDemographics),
		"procedures":     snip(synthdomain.StageProcedures),
		"labs":           snip(synthdomain.StageLabs),
		"medications":    snip(synthdomain.StageMedications),
		"length_of_stay": strconv.Itoa(defaultStayDays),
	})
	if err != nil {
		return err
	}
	sections[synthdomain.StageBilling] = billing
	return nil
}

// runStage prompts the model for one section and parses its JSON,
// retrying up to the configured attempt limit.
func (s *Service) runStage(
	ctx context.Context,
	stage synthdomain.Stage,
	vars map[string]string,
	opts ...extract.Option,
) (map[string]any, error) {
	system, err := s.prompts.System(stage)
	if err != nil {
		return nil, fmt.Errorf("stage %s system prompt: %w", stage, err)
	}
	user, err := s.prompts.User(stage, vars)
	if err != nil {
		return nil, fmt.Errorf("stage %s user prompt: %w", stage, err)
	}

	attempts := s.maxAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, _, err := s.client.Chat(ctx, gemini.Request{
			Prompt:       user,
			SystemPrompt: system,
			Task:         "generate",
		})
		if err != nil {
			lastErr = err
			s.logger.Warn("synth_stage_attempt_failed",
				"stage", string(stage),
				"attempt", attempt,
				"error", err,
			)
			continue
		}

		section, err := extract.Extract(raw, opts...)
		if err != nil {
			lastErr = err
			s.logger.Warn("synth_stage_extract_failed",
				"stage", string(stage),
				"attempt", attempt,
				"error", err,
			)
			continue
		}
		return section, nil
	}
	return nil, &synthdomain.StageError{Stage: stage, Attempts: attempts, Err: lastErr}
}

// auditSafety labels the finished record. A failed audit never aborts
// the record; it degrades to empty labels.
func (s *Service) auditSafety(ctx context.Context, recordSnippet string) map[string]any {
	section, err := s.runStage(ctx, synthdomain.StageSafety, map[string]string{"record": recordSnippet})
	if err != nil {
		s.logError("synth_safety_audit_failed", err)
		return synthdomain.EmptySafetyLabels()
	}
	if _, ok := section["safety_labels"]; !ok {
		return synthdomain.EmptySafetyLabels()
	}
	return section
}

// auditConsistency checks the finished record, substituting the default
// report when extraction fails.
func (s *Service) auditConsistency(ctx context.Context, recordSnippet string) map[string]any {
	section, err := s.runStage(ctx, synthdomain.StageConsistency, map[string]string{"record": recordSnippet})
	if err != nil {
		s.logError("synth_consistency_audit_failed", err)
		return synthdomain.DefaultConsistencyReport(err.Error())
	}
	if _, ok := section["consistency_report"]; !ok {
		return synthdomain.DefaultConsistencyReport("consistency_report missing from audit output")
	}
	return section
}

func (s *Service) maxAttempts() int {
	if s.cfg != nil && s.cfg.Synth.StageMaxAttempts > 0 {
		return s.cfg.Synth.StageMaxAttempts
	}
	return 3
}

func (s *Service) logError(event string, err error) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Error(event, "error", err)
}

func diagnosisSummary(diagnosis map[string]any) string {
	dx, _ := diagnosis["primary_diagnosis"].(string)
	if dx == "" {
		dx = "Unknown Condition"
	}
	icd, _ := diagnosis["icd10_code"].(string)
	snomed, _ := diagnosis["snomed_code"].(string)

	summary := dx
	if icd != "" {
		summary += " (ICD-10 " + icd
		if snomed != "" {
			summary += ", SNOMED " + snomed
		}
		summary += ")"
	}
	return summary
}

func timelineDates(timeline map[string]any) (string, string) {
	today := time.Now().Format("2006-01-02")
	first, last := today, today
	events, _ := timeline["timeline_table"].([]any)
	if len(events) == 0 {
		return first, last
	}
	if event, ok := events[0].(map[string]any); ok {
		if date, ok := event["date"].(string); ok && date != "" {
			first = date
			last = date
		}
	}
	if event, ok := events[len(events)-1].(map[string]any); ok {
		if date, ok := event["date"].(string); ok && date != "" {
			last = date
		}
	}
	return first, last
}

// snippet renders a section in the compact Toon format for use as
// prompt context, clipped to keep token cost bounded.
func snippet(stage synthdomain.Stage, section map[string]any) string {
	if len(section) == 0 {
		return "(not available)"
	}
	return clip(toon.EncodeSection(string(stage), section), snippetLimit)
}

func merge(base map[string]string, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range extra {
		merged[key] = value
	}
	return merged
}

func marshalJSON(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func generateRecordID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate record id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
