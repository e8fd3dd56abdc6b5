// Package assist orchestrates the specialist bot suite: routing,
// persona answers, memory recall and reference retrieval.
package assist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mediexplain/llm-server-go/internal/config"
	assistdomain "github.com/mediexplain/llm-server-go/internal/domain/assist"
	"github.com/mediexplain/llm-server-go/internal/gemini"
	"github.com/mediexplain/llm-server-go/internal/guard"
	"github.com/mediexplain/llm-server-go/internal/handler/shared"
	"github.com/mediexplain/llm-server-go/internal/httperror"
	"github.com/mediexplain/llm-server-go/internal/llm"
	"github.com/mediexplain/llm-server-go/internal/memory"
	"github.com/mediexplain/llm-server-go/internal/rag"
	"github.com/mediexplain/llm-server-go/internal/session"
)

// Service implements the assist orchestration.
type Service struct {
	cfg     *config.Config
	client  gemini.LLM
	guard   guard.Guard
	store   *session.Store
	memory  *memory.Manager
	rag     *rag.Index
	prompts *assistdomain.Prompts
	logger  *slog.Logger
}

// New builds the assist service.
func New(
	cfg *config.Config,
	client gemini.LLM,
	injectionGuard guard.Guard,
	store *session.Store,
	memoryManager *memory.Manager,
	ragIndex *rag.Index,
	prompts *assistdomain.Prompts,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:     cfg,
		client:  client,
		guard:   injectionGuard,
		store:   store,
		memory:  memoryManager,
		rag:     ragIndex,
		prompts: prompts,
		logger:  logger,
	}
}

// AnswerRequest carries one user question through the orchestrator.
type AnswerRequest struct {
	UserID    string
	SessionID string
	Mode      string
	Question  string
	Report    string
	ReportID  string
}

// AnswerResult is the orchestrated answer.
type AnswerResult struct {
	Bot      assistdomain.BotID
	Reason   string
	Answer   string
	Fallback bool
	Memory   []string
}

// Route classifies the question to a specialist bot. Any routing
// failure falls back to EXPLAINER instead of surfacing an error.
func (s *Service) Route(
	ctx context.Context,
	requestID string,
	mode string,
	question string,
	report string,
	memorySnippets []string,
) assistdomain.RouteDecision {
	fallback := assistdomain.RouteDecision{
		Bot:    assistdomain.BotExplainer,
		Reason: "fallback",
	}

	system, err := s.prompts.RouterSystem()
	if err != nil {
		s.logError("assist_router_system_prompt_failed", err)
		return fallback
	}
	user, err := s.prompts.RouterUser(
		assistdomain.NormalizeMode(mode),
		question,
		clip(report, 4000),
		joinMemory(memorySnippets),
	)
	if err != nil {
		s.logError("assist_router_user_prompt_failed", err)
		return fallback
	}

	payload, _, err := s.client.Structured(ctx, gemini.Request{
		Prompt:       user,
		SystemPrompt: system,
		Task:         "route",
	}, assistdomain.RouteSchema())
	if err != nil {
		s.logError("assist_route_failed", err)
		return fallback
	}

	rawBot, _ := payload["bot"].(string)
	reason, _ := payload["reason"].(string)
	bot, ok := assistdomain.ParseBotID(rawBot)
	if !ok {
		s.logger.Warn("assist_route_unknown_bot",
			"request_id", requestID,
			"bot", clip(rawBot, 40),
		)
		return fallback
	}

	s.logger.Info("assist_routed",
		"request_id", requestID,
		"bot", string(bot),
		"reason", clip(reason, 120),
	)
	return assistdomain.RouteDecision{Bot: bot, Reason: reason}
}

// Answer runs the full orchestration: guard, memory recall, routing,
// retrieval, the persona bot call and the post-answer memory write.
func (s *Service) Answer(ctx context.Context, requestID string, req AnswerRequest) (AnswerResult, error) {
	if s == nil || s.client == nil || s.guard == nil || s.prompts == nil {
		return AnswerResult{}, httperror.NewInternalError("service not configured")
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AnswerResult{}, httperror.NewInvalidInput("question required")
	}
	mode := assistdomain.NormalizeMode(req.Mode)

	if err := s.guard.EnsureSafe(question); err != nil {
		s.logError("assist_question_guard_failed", err)
		return AnswerResult{}, fmt.Errorf("guard question: %w", err)
	}

	memorySnippets := s.recallMemory(ctx, requestID, req.UserID, question)
	decision := s.Route(ctx, requestID, mode, question, req.Report, memorySnippets)
	ragContext := s.retrieveContext(ctx, req.ReportID, question)
	history := s.loadHistory(ctx, req.SessionID)

	answer, usedFallback := s.botAnswer(ctx, requestID, decision.Bot, mode, question, ragContext, memorySnippets, history)

	if req.SessionID != "" {
		if err := s.appendHistory(ctx, req.SessionID, question, answer); err != nil {
			s.logError("assist_append_history_failed", err)
		}
	}
	s.storeMemorySnippet(ctx, requestID, req.UserID, question, answer)

	return AnswerResult{
		Bot:      decision.Bot,
		Reason:   decision.Reason,
		Answer:   answer,
		Fallback: usedFallback,
		Memory:   memorySnippets,
	}, nil
}

// botAnswer calls the routed bot and appends the attribution trailer.
// When the bot fails it degrades to the safe fallback prompt, and when
// that fails too it returns the canned apology.
func (s *Service) botAnswer(
	ctx context.Context,
	requestID string,
	bot assistdomain.BotID,
	mode string,
	question string,
	ragContext string,
	memorySnippets []string,
	history []llm.HistoryEntry,
) (string, bool) {
	system, err := s.prompts.BotSystem(bot, mode)
	if err != nil {
		s.logError("assist_bot_system_prompt_failed", err)
		return s.fallbackAnswer(ctx, requestID, question, ragContext), true
	}
	user, err := s.prompts.BotUser(bot, question, ragContext, memoryBlock(memorySnippets), "")
	if err != nil {
		s.logError("assist_bot_user_prompt_failed", err)
		return s.fallbackAnswer(ctx, requestID, question, ragContext), true
	}

	reply, _, err := s.client.Chat(ctx, gemini.Request{
		Prompt:       user,
		SystemPrompt: system,
		History:      history,
		Task:         "answer",
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			s.logError("assist_bot_answer_failed", err)
		}
		return s.fallbackAnswer(ctx, requestID, question, ragContext), true
	}

	return strings.TrimSpace(reply) + answerTrailer(bot), false
}

// fallbackAnswer is the second-chance safe answer. The trailer is not
// appended here; the reply did not come from the routed bot.
func (s *Service) fallbackAnswer(ctx context.Context, requestID string, question string, ragContext string) string {
	system, err := s.prompts.FallbackSystem()
	if err != nil {
		s.logError("assist_fallback_system_prompt_failed", err)
		return shared.MsgCannotAnswer
	}
	user, err := s.prompts.FallbackUser(question, ragContext)
	if err != nil {
		s.logError("assist_fallback_user_prompt_failed", err)
		return shared.MsgCannotAnswer
	}

	reply, _, err := s.client.Chat(ctx, gemini.Request{
		Prompt:       user,
		SystemPrompt: system,
		Task:         "answer",
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			s.logError("assist_fallback_answer_failed", err)
		}
		return shared.MsgCannotAnswer
	}

	s.logger.Info("assist_fallback_answer_used", "request_id", requestID)
	return strings.TrimSpace(reply)
}

func (s *Service) recallMemory(ctx context.Context, requestID string, userID string, question string) []string {
	if s.memory == nil || !s.memory.Enabled() || userID == "" {
		return nil
	}
	snippets, err := s.memory.Retrieve(ctx, userID, question, 0)
	if err != nil {
		s.logError("assist_memory_retrieve_failed", err)
		return nil
	}
	if len(snippets) > 0 {
		s.logger.Debug("assist_memory_recalled",
			"request_id", requestID,
			"count", len(snippets),
		)
	}
	return snippets
}

func (s *Service) retrieveContext(ctx context.Context, reportID string, question string) string {
	if s.rag == nil || reportID == "" {
		return ""
	}
	passages, err := s.rag.Query(ctx, reportID, question, 0)
	if err != nil {
		if err != rag.ErrDocumentNotFound {
			s.logError("assist_rag_query_failed", err)
		}
		return ""
	}
	return rag.BuildContext(passages)
}

func (s *Service) loadHistory(ctx context.Context, sessionID string) []llm.HistoryEntry {
	if s.store == nil || sessionID == "" {
		return nil
	}
	history, err := s.store.GetHistory(ctx, sessionID)
	if err != nil {
		s.logError("assist_history_load_failed", err)
		return nil
	}
	return history
}

func (s *Service) appendHistory(ctx context.Context, sessionID string, question string, answer string) error {
	if s.store == nil {
		return nil
	}
	return s.store.AppendHistory(ctx, sessionID,
		llm.HistoryEntry{Role: "user", Content: question},
		llm.HistoryEntry{Role: "assistant", Content: answer},
	)
}

// storeMemorySnippet extracts a long-term snippet from the exchange and
// persists it. Failures are logged and swallowed; memory is best
// effort.
func (s *Service) storeMemorySnippet(ctx context.Context, requestID string, userID string, question string, answer string) {
	if s.memory == nil || !s.memory.Enabled() || userID == "" {
		return
	}

	system, err := s.prompts.SnippetSystem()
	if err != nil {
		s.logError("assist_snippet_system_prompt_failed", err)
		return
	}
	user, err := s.prompts.SnippetUser(question, clip(answer, 4000))
	if err != nil {
		s.logError("assist_snippet_user_prompt_failed", err)
		return
	}

	payload, _, err := s.client.Structured(ctx, gemini.Request{
		Prompt:       user,
		SystemPrompt: system,
		Task:         "snippet",
	}, assistdomain.SnippetSchema())
	if err != nil {
		s.logError("assist_snippet_extract_failed", err)
		return
	}

	snippet, _ := payload["snippet"].(string)
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return
	}

	if err := s.memory.Add(ctx, userID, snippet); err != nil {
		s.logError("assist_memory_add_failed", err)
		return
	}
	s.logger.Debug("assist_memory_stored",
		"request_id", requestID,
		"snippet_len", len(snippet),
	)
}

func (s *Service) logError(event string, err error) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Error(event, "error", err)
}

func answerTrailer(bot assistdomain.BotID) string {
	return fmt.Sprintf("\n\n---\n_Answered by: **%s bot**_", bot)
}

func memoryBlock(snippets []string) string {
	if len(snippets) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[User memory]\n")
	for _, snippet := range snippets {
		b.WriteString("- " + snippet + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinMemory(snippets []string) string {
	if len(snippets) == 0 {
		return "(none)"
	}
	return strings.Join(snippets, "\n")
}

func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
