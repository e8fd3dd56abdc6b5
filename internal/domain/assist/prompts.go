package assist

import (
	"embed"
	"fmt"
	"strings"

	"github.com/mediexplain/llm-server-go/internal/prompt"
)

//go:embed prompts/*.yml
var promptsFS embed.FS

// Prompts is the assist prompt bundle.
type Prompts struct {
	bundle *prompt.Bundle
}

// NewPrompts loads the embedded assist prompts.
func NewPrompts() (*Prompts, error) {
	bundle, err := prompt.LoadBundle(promptsFS, "prompts", "assist")
	if err != nil {
		return nil, fmt.Errorf("load assist prompts: %w", err)
	}
	return &Prompts{bundle: bundle}, nil
}

// RouterSystem returns the routing system prompt.
func (p *Prompts) RouterSystem() (string, error) {
	data, err := p.bundle.Prompt("router")
	if err != nil {
		return "", err
	}
	return prompt.Field(data, "system", "router.system")
}

// RouterUser renders the routing user prompt.
func (p *Prompts) RouterUser(mode string, question string, report string, memory string) (string, error) {
	data, err := p.bundle.Prompt("router")
	if err != nil {
		return "", err
	}
	template, err := prompt.Field(data, "user", "router.user")
	if err != nil {
		return "", err
	}
	formatted, err := prompt.FormatTemplate(template, map[string]string{
		"mode":     mode,
		"question": question,
		"report":   report,
		"memory":   memory,
	})
	if err != nil {
		return "", fmt.Errorf("format router.user: %w", err)
	}
	return formatted, nil
}

// BotSystem composes a bot's system prompt for the given mode: base
// instructions, the mode persona and the disclaimer requirement.
func (p *Prompts) BotSystem(bot BotID, mode string) (string, error) {
	data, err := p.bundle.Prompt(promptName(bot))
	if err != nil {
		return "", err
	}
	system, err := prompt.Field(data, "system", promptName(bot)+".system")
	if err != nil {
		return "", err
	}

	personaKey := "persona_patient"
	if NormalizeMode(mode) == ModeCaregiver {
		personaKey = "persona_caregiver"
	}
	persona, err := prompt.Field(data, personaKey, promptName(bot)+"."+personaKey)
	if err != nil {
		return "", err
	}

	parts := []string{system, persona}
	if disclaimer, ok := data["disclaimer"]; ok && strings.TrimSpace(disclaimer) != "" {
		parts = append(parts,
			"End with a short section called 'Important Reminder' paraphrasing:\n"+disclaimer)
	}
	return strings.Join(parts, "\n\n"), nil
}

// BotUser renders a bot's user prompt. Context blocks that are empty
// are omitted.
func (p *Prompts) BotUser(bot BotID, question string, ragContext string, memoryContext string, history string) (string, error) {
	data, err := p.bundle.Prompt(promptName(bot))
	if err != nil {
		return "", err
	}
	template, err := prompt.Field(data, "user", promptName(bot)+".user")
	if err != nil {
		return "", err
	}
	formatted, err := prompt.FormatTemplate(template, map[string]string{
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("format %s.user: %w", promptName(bot), err)
	}

	var builder strings.Builder
	if ragContext != "" {
		builder.WriteString(ragContext)
		builder.WriteString("\n\n")
	}
	if memoryContext != "" {
		builder.WriteString(memoryContext)
		builder.WriteString("\n\n")
	}
	builder.WriteString(formatted)
	if history != "" {
		builder.WriteString(history)
	}
	return builder.String(), nil
}

// FallbackSystem returns the safe fallback system prompt used when a
// specialist bot fails.
func (p *Prompts) FallbackSystem() (string, error) {
	data, err := p.bundle.Prompt("fallback")
	if err != nil {
		return "", err
	}
	return prompt.Field(data, "system", "fallback.system")
}

// FallbackUser renders the safe fallback user prompt.
func (p *Prompts) FallbackUser(question string, context string) (string, error) {
	data, err := p.bundle.Prompt("fallback")
	if err != nil {
		return "", err
	}
	template, err := prompt.Field(data, "user", "fallback.user")
	if err != nil {
		return "", err
	}
	formatted, err := prompt.FormatTemplate(template, map[string]string{
		"question": question,
		"context":  context,
	})
	if err != nil {
		return "", fmt.Errorf("format fallback.user: %w", err)
	}
	return formatted, nil
}

// SnippetSystem returns the memory snippet extraction system prompt.
func (p *Prompts) SnippetSystem() (string, error) {
	data, err := p.bundle.Prompt("memory-snippet")
	if err != nil {
		return "", err
	}
	return prompt.Field(data, "system", "memory-snippet.system")
}

// SnippetUser renders the snippet extraction user prompt.
func (p *Prompts) SnippetUser(question string, answer string) (string, error) {
	data, err := p.bundle.Prompt("memory-snippet")
	if err != nil {
		return "", err
	}
	template, err := prompt.Field(data, "user", "memory-snippet.user")
	if err != nil {
		return "", err
	}
	formatted, err := prompt.FormatTemplate(template, map[string]string{
		"question": question,
		"answer":   answer,
	})
	if err != nil {
		return "", fmt.Errorf("format memory-snippet.user: %w", err)
	}
	return formatted, nil
}

func promptName(bot BotID) string {
	return strings.ToLower(string(bot))
}
