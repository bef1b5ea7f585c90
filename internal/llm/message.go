package llm

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role/content pair in a chat completion request.
type Message struct {
	Role    string
	Content string
}

// Request describes a single chat completion call.
type Request struct {
	Model    string
	Messages []Message
	// Temperature defaults to 0.7 when zero.
	Temperature float64
	// MaxTokens of 0 leaves the response length unbounded.
	MaxTokens int
	// SystemPrompt, when set, is prepended as a system message without
	// mutating Messages.
	SystemPrompt string
}
