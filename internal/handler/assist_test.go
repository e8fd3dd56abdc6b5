package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	assistdomain "github.com/mediexplain/llm-server-go/internal/domain/assist"
	"github.com/mediexplain/llm-server-go/internal/gemini"
	"github.com/mediexplain/llm-server-go/internal/guard"
	"github.com/mediexplain/llm-server-go/internal/llm"
	"github.com/mediexplain/llm-server-go/internal/usecase/assist"
)

// stubLLM answers every chat with a fixed reply and every structured
// call with a fixed payload.
type stubLLM struct {
	structured map[string]any
	reply      string
}

func (s *stubLLM) Chat(context.Context, gemini.Request) (string, string, error) {
	return s.reply, "model", nil
}

func (s *stubLLM) ChatWithUsage(context.Context, gemini.Request) (llm.ChatResult, string, error) {
	return llm.ChatResult{Text: s.reply}, "model", nil
}

func (s *stubLLM) Structured(context.Context, gemini.Request, map[string]any) (map[string]any, string, error) {
	return s.structured, "model", nil
}

type allowAllGuard struct{}

func (allowAllGuard) Evaluate(string) guard.Evaluation { return guard.Evaluation{} }
func (allowAllGuard) EnsureSafe(string) error          { return nil }
func (allowAllGuard) IsMalicious(string) bool          { return false }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func performJSON(t *testing.T, router *gin.Engine, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func newAssistRouter(t *testing.T, client gemini.LLM) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prompts, err := assistdomain.NewPrompts()
	if err != nil {
		t.Fatalf("failed to load prompts: %v", err)
	}
	service := assist.New(nil, client, allowAllGuard{}, nil, nil, nil, prompts, testLogger())
	router := gin.New()
	NewAssistHandler(service, testLogger()).RegisterRoutes(router)
	return router
}

func TestAssistHandlerAnswer(t *testing.T) {
	client := &stubLLM{
		structured: map[string]any{"bot": "LABS", "reason": "lab question"},
		reply:      "Your CBC is within normal limits.",
	}
	router := newAssistRouter(t, client)

	resp := performJSON(t, router, http.MethodPost, "/api/assist/answers",
		`{"question":"what do my labs mean?","mode":"patient"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload AssistAnswerResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Bot != "LABS" {
		t.Fatalf("expected LABS, got %s", payload.Bot)
	}
	if !strings.HasSuffix(payload.Answer, "_Answered by: **LABS bot**_") {
		t.Fatalf("trailer missing: %s", payload.Answer)
	}
	if payload.Fallback {
		t.Fatalf("unexpected fallback")
	}
}

func TestAssistHandlerAnswerMissingQuestion(t *testing.T) {
	router := newAssistRouter(t, &stubLLM{})

	resp := performJSON(t, router, http.MethodPost, "/api/assist/answers", `{"mode":"patient"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestAssistHandlerRoute(t *testing.T) {
	client := &stubLLM{
		structured: map[string]any{"bot": "MEDS", "reason": "dose question"},
	}
	router := newAssistRouter(t, client)

	resp := performJSON(t, router, http.MethodPost, "/api/assist/routes",
		`{"question":"is this dose safe?","mode":"caregiver"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload AssistRouteResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Bot != "MEDS" {
		t.Fatalf("expected MEDS, got %s", payload.Bot)
	}
}
