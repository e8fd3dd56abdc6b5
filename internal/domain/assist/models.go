// Package assist defines the specialist bot suite and its prompts.
package assist

import (
	"strings"

	domainmodels "github.com/mediexplain/llm-server-go/internal/domain/models"
)

// BotID identifies one specialist bot.
type BotID string

const (
	// BotExplainer explains the overall report. It is also the routing
	// fallback.
	BotExplainer BotID = "EXPLAINER"
	// BotLabs explains laboratory results.
	BotLabs BotID = "LABS"
	// BotMeds explains medications.
	BotMeds BotID = "MEDS"
	// BotCarePlan explains the care plan.
	BotCarePlan BotID = "CAREPLAN"
	// BotSnapshot summarizes the case at a glance.
	BotSnapshot BotID = "SNAPSHOT"
	// BotSupport gives emotional support and coping guidance.
	BotSupport BotID = "SUPPORT"
	// BotPrescriptions explains prescription documents.
	BotPrescriptions BotID = "PRESCRIPTIONS"
)

// AllBots lists every routable bot.
var AllBots = []BotID{
	BotExplainer,
	BotLabs,
	BotMeds,
	BotCarePlan,
	BotSnapshot,
	BotSupport,
	BotPrescriptions,
}

// ParseBotID maps a raw string to a known bot.
func ParseBotID(value string) (BotID, bool) {
	candidate := BotID(strings.ToUpper(strings.TrimSpace(value)))
	for _, bot := range AllBots {
		if bot == candidate {
			return bot, true
		}
	}
	return "", false
}

// RouteDecision is the router's structured output.
type RouteDecision struct {
	Bot    BotID  `json:"bot"`
	Reason string `json:"reason"`
}

// Explanation modes.
const (
	ModePatient   = "patient"
	ModeCaregiver = "caregiver"
)

// NormalizeMode maps free-form mode strings to a known mode.
func NormalizeMode(mode string) string {
	if strings.Contains(strings.ToLower(mode), ModeCaregiver) {
		return ModeCaregiver
	}
	return ModePatient
}

// RouteSchema is the response schema for the routing call.
func RouteSchema() map[string]any {
	return domainmodels.RequiredStringFieldsSchema("bot", "reason")
}

// SnippetSchema is the response schema for memory snippet extraction.
// snippet is nullable so the model can decline to store anything.
func SnippetSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"snippet": map[string]any{
				"type":     "string",
				"nullable": true,
			},
		},
		"required": []string{"snippet"},
	}
}
