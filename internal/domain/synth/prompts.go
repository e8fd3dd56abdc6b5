package synth

import (
	"embed"
	"fmt"

	"github.com/mediexplain/llm-server-go/internal/prompt"
)

//go:embed prompts/*.yml
var promptsFS embed.FS

// Prompts is the synthetic pipeline prompt bundle, one file per stage.
type Prompts struct {
	bundle *prompt.Bundle
}

// NewPrompts loads the embedded stage prompts.
func NewPrompts() (*Prompts, error) {
	bundle, err := prompt.LoadBundle(promptsFS, "prompts", "synth")
	if err != nil {
		return nil, fmt.Errorf("load synth prompts: %w", err)
	}
	return &Prompts{bundle: bundle}, nil
}

// System returns a stage's system prompt.
func (p *Prompts) System(stage Stage) (string, error) {
	data, err := p.bundle.Prompt(string(stage))
	if err != nil {
		return "", err
	}
	return prompt.Field(data, "system", string(stage)+".system")
}

// User renders a stage's user prompt with the given variables.
func (p *Prompts) User(stage Stage, vars map[string]string) (string, error) {
	data, err := p.bundle.Prompt(string(stage))
	if err != nil {
		return "", err
	}
	template, err := prompt.Field(data, "user", string(stage)+".user")
	if err != nil {
		return "", err
	}
	formatted, err := prompt.FormatTemplate(template, vars)
	if err != nil {
		return "", fmt.Errorf("format %s.user: %w", stage, err)
	}
	return formatted, nil
}
