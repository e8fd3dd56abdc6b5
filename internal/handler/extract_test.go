package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

func newExtractRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewExtractHandler().RegisterRoutes(router)
	return router
}

func TestExtractHandlerParsesFencedJSON(t *testing.T) {
	router := newExtractRouter()

	resp := performJSON(t, router, http.MethodPost, "/api/extract/extractions",
		"{\"text\":\"```json\\n{\\\"diagnosis\\\": \\\"CHF\\\"}\\n```\"}")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload ExtractResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Data["diagnosis"] != "CHF" {
		t.Fatalf("unexpected data: %v", payload.Data)
	}
}

func TestExtractHandlerSentinel(t *testing.T) {
	router := newExtractRouter()

	resp := performJSON(t, router, http.MethodPost, "/api/extract/extractions",
		`{"text":"preamble <JSON>{\"ok\": true}</JSON> trailer","sentinel":"JSON"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload ExtractResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Data["ok"] != true {
		t.Fatalf("unexpected data: %v", payload.Data)
	}
}

func TestExtractHandlerNoJSON(t *testing.T) {
	router := newExtractRouter()

	resp := performJSON(t, router, http.MethodPost, "/api/extract/extractions",
		`{"text":"no json anywhere"}`)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["error_code"] != "EXTRACTION_ERROR" {
		t.Fatalf("unexpected error code: %v", payload["error_code"])
	}
}
