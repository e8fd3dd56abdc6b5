package shared

// User-facing response messages.
const (
	// MsgSafetyBlock is returned when the guard rejects an input.
	MsgSafetyBlock = "I can't help with that request. Please rephrase your question."

	// MsgInvalidQuestion is returned for questions the router cannot read.
	MsgInvalidQuestion = "I couldn't understand that question."

	// MsgCannotAnswer is the safe fallback when a bot fails to answer.
	MsgCannotAnswer = "I'm sorry, something went wrong while preparing your answer. Please try again."
)

// Defaults.
const (
	// DefaultMode is the persona used when a request does not pick one.
	DefaultMode = "patient"

	// DefaultHistoryHeader labels the recent-conversation prompt block.
	DefaultHistoryHeader = "[Recent conversation]"
)
