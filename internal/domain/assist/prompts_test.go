package assist

import (
	"strings"
	"testing"

	"github.com/mediexplain/llm-server-go/internal/prompt"
)

func TestNewPromptsLoadsAllBots(t *testing.T) {
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bot := range AllBots {
		system, err := prompts.BotSystem(bot, ModePatient)
		if err != nil {
			t.Fatalf("BotSystem(%s): %v", bot, err)
		}
		if system == "" {
			t.Fatalf("empty system prompt for %s", bot)
		}
	}
}

func TestBotSystemPersonaPerMode(t *testing.T) {
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	patient, err := prompts.BotSystem(BotExplainer, ModePatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(patient, "non-medical patient") {
		t.Fatalf("patient persona missing: %s", patient)
	}

	caregiver, err := prompts.BotSystem(BotExplainer, ModeCaregiver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(caregiver, "medically experienced caregiver") {
		t.Fatalf("caregiver persona missing: %s", caregiver)
	}
	if !strings.Contains(caregiver, "Important Reminder") {
		t.Fatalf("disclaimer instruction missing: %s", caregiver)
	}
}

func TestRouterUserFormatting(t *testing.T) {
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rendered, err := prompts.RouterUser(ModePatient, "what do my labs mean", "CBC normal", "allergic to penicillin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"MODE: patient", "what do my labs mean", "CBC normal", "allergic to penicillin"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("missing %q in: %s", want, rendered)
		}
	}
}

func TestBotUserContextBlocks(t *testing.T) {
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rendered, err := prompts.BotUser(BotLabs, "is my potassium high", "[Reference passages]\n1. K 5.9", "[Memory]\nCKD stage 3", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ragIdx := strings.Index(rendered, "[Reference passages]")
	memIdx := strings.Index(rendered, "[Memory]")
	qIdx := strings.Index(rendered, "is my potassium high")
	if ragIdx < 0 || memIdx < 0 || qIdx < 0 {
		t.Fatalf("missing blocks in: %s", rendered)
	}
	if !(ragIdx < memIdx && memIdx < qIdx) {
		t.Fatalf("blocks out of order in: %s", rendered)
	}

	bare, err := prompts.BotUser(BotLabs, "is my potassium high", "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(bare, "[Reference passages]") || strings.Contains(bare, "[Memory]") {
		t.Fatalf("empty context blocks leaked into: %s", bare)
	}
}

func TestSnippetPrompts(t *testing.T) {
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	system, err := prompts.SnippetSystem()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(system, "snippet") {
		t.Fatalf("unexpected snippet system: %s", system)
	}
	user, err := prompts.SnippetUser("any allergies?", "You are allergic to penicillin.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(user, "USER: any allergies?") || !strings.Contains(user, "ASSISTANT: You are allergic to penicillin.") {
		t.Fatalf("unexpected snippet user: %s", user)
	}
}

func TestSystemPromptsAreStatic(t *testing.T) {
	prompts, err := NewPrompts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bot := range AllBots {
		data, err := prompts.bundle.Prompt(promptName(bot))
		if err != nil {
			t.Fatalf("prompt %s: %v", bot, err)
		}
		for _, key := range []string{"system", "persona_patient", "persona_caregiver", "disclaimer"} {
			if err := prompt.ValidateSystemStatic(promptName(bot)+"."+key, data[key]); err != nil {
				t.Fatalf("static check failed: %v", err)
			}
		}
	}
}
