package shared

import (
	"fmt"
	"strings"

	"github.com/mediexplain/llm-server-go/internal/llm"
	"github.com/mediexplain/llm-server-go/internal/prompt"
)

// ResolveSessionID decides the effective session ID.
// Returns (effectiveSessionID, derived); derived is true when the ID was
// built from chatID plus namespace.
func ResolveSessionID(sessionID string, chatID string, namespace string, defaultNamespace string) (string, bool) {
	if sessionID != "" {
		return sessionID, false
	}
	if chatID == "" {
		return "", false
	}
	effectiveNamespace := namespace
	if effectiveNamespace == "" {
		effectiveNamespace = defaultNamespace
	}
	return fmt.Sprintf("%s:%s", effectiveNamespace, chatID), true
}

// BuildRecentQAHistoryContext renders the most recent question/answer
// pairs from history as a prompt block.
func BuildRecentQAHistoryContext(history []llm.HistoryEntry, header string, maxPairs int) string {
	if maxPairs <= 0 {
		return ""
	}

	type qaPair struct {
		question string
		answer   string
	}
	pairs := make([]qaPair, 0)
	var currentQ string

	for _, entry := range history {
		content := strings.TrimSpace(entry.Content)
		if content == "" {
			continue
		}
		switch strings.ToLower(entry.Role) {
		case "user":
			currentQ = content
		case "assistant":
			if currentQ != "" {
				pairs = append(pairs, qaPair{question: currentQ, answer: content})
				currentQ = ""
			}
		}
	}

	if len(pairs) == 0 {
		return ""
	}

	if len(pairs) > maxPairs {
		pairs = pairs[len(pairs)-maxPairs:]
	}

	historyLines := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		historyLines = append(historyLines,
			prompt.WrapXML("q", p.question),
			prompt.WrapXML("a", p.answer))
	}

	var result strings.Builder
	result.WriteString("\n\n")
	result.WriteString(header)
	result.WriteString("\n")
	result.WriteString(strings.Join(historyLines, "\n"))

	return result.String()
}

// ValueOrEmpty returns "" for a nil pointer.
func ValueOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
