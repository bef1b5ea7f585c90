// Package prompt composes system prompts, suggested prompts, and trims
// conversation history to a token budget for LLM calls.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lsimons/slackassist/internal/llm"
)

const contextPlaceholder = "{context}"

// DefaultSystemPrompt is the assistant persona used when no custom base
// prompt is configured. It carries a {context} placeholder for channel and
// thread context injection.
const DefaultSystemPrompt = `You are a helpful AI assistant integrated into Slack.

Guidelines:
- Be concise and friendly in your responses
- Use clear, professional language
- Format responses for readability in Slack
- Preserve Slack mentions (@user, @channel) in your responses
- If asked about something you don't know, be honest about limitations
- When referencing code or technical content, use code blocks with proper formatting

{context}
`

// Suggestion is one clickable example query offered when an assistant
// thread opens. Prompt is the text submitted on click.
type Suggestion struct {
	Title       string
	Description string
	Prompt      string
}

var suggestionTemplates = map[string]Suggestion{
	"summarize": {
		Title:       "Summarize",
		Description: "Summarize the recent discussion in this thread",
		Prompt:      "Please summarize the key points from our discussion so far in 2-3 sentences.",
	},
	"question": {
		Title:       "Answer Question",
		Description: "Help answer a specific question",
		Prompt:      "What would be your response to: ",
	},
	"brainstorm": {
		Title:       "Brainstorm Ideas",
		Description: "Generate ideas for a topic",
		Prompt:      "Let's brainstorm some creative ideas about: ",
	},
	"explain": {
		Title:       "Explain Concept",
		Description: "Explain a concept in simple terms",
		Prompt:      "Can you explain this concept in simple terms: ",
	},
	"code_review": {
		Title:       "Code Review",
		Description: "Review code for issues or improvements",
		Prompt:      "Please review this code for potential issues or improvements: ",
	},
	"design_feedback": {
		Title:       "Design Feedback",
		Description: "Provide feedback on design",
		Prompt:      "What feedback would you give on this design: ",
	},
}

var baseSuggestionKeys = []string{"summarize", "question", "brainstorm", "explain"}

var engineeringKeywords = []string{"engineering", "dev", "code", "tech", "backend", "frontend"}

var designKeywords = []string{"design", "ui", "ux", "product", "visual"}

// BuildSystemPrompt injects context into the base prompt. A base containing
// the {context} placeholder gets it substituted; a base without it gets the
// context appended after a blank line; an empty base falls back to
// DefaultSystemPrompt. Without context the placeholder is removed.
func BuildSystemPrompt(basePrompt, context string) string {
	template := basePrompt
	if template == "" {
		template = DefaultSystemPrompt
	}
	if context != "" {
		if strings.Contains(template, contextPlaceholder) {
			return strings.ReplaceAll(template, contextPlaceholder, context)
		}
		return template + "\n\n" + context
	}
	return strings.ReplaceAll(template, contextPlaceholder, "")
}

// SuggestedPrompts returns the base suggestions in fixed order, with a
// code-review entry prepended for engineering-flavored topics and a
// design-feedback entry prepended for design-flavored topics. Both inserts
// land at position 0 in sequence, so a topic matching both keyword sets puts
// design feedback first.
func SuggestedPrompts(channelTopic string) []Suggestion {
	prompts := make([]Suggestion, 0, len(baseSuggestionKeys)+2)
	for _, key := range baseSuggestionKeys {
		prompts = append(prompts, suggestionTemplates[key])
	}

	if channelTopic != "" {
		topic := strings.ToLower(channelTopic)
		if containsAny(topic, engineeringKeywords) {
			prompts = append([]Suggestion{suggestionTemplates["code_review"]}, prompts...)
		}
		if containsAny(topic, designKeywords) {
			prompts = append([]Suggestion{suggestionTemplates["design_feedback"]}, prompts...)
		}
	}
	return prompts
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// EstimateTokens approximates the token count of text at roughly four
// characters per token.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// TrimMessagesForContext drops middle messages so the history fits the token
// budget. The first three messages are always retained; the remainder is
// filled from the most recent backwards while the character budget holds,
// keeping the included tail in chronological order. Never returns an empty
// slice for non-empty input.
func TrimMessagesForContext(messages []llm.Message, maxTokens int) []llm.Message {
	if len(messages) == 0 {
		return nil
	}
	maxChars := maxTokens * 4

	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	if total <= maxChars {
		return messages
	}

	headLen := 3
	if headLen > len(messages) {
		headLen = len(messages)
	}
	trimmed := make([]llm.Message, 0, len(messages))
	charsUsed := 0
	for _, m := range messages[:headLen] {
		trimmed = append(trimmed, m)
		charsUsed += len(m.Content)
	}

	keep := make([]bool, len(messages))
	for i := len(messages) - 1; i >= headLen; i-- {
		size := len(messages[i].Content)
		if charsUsed+size <= maxChars {
			keep[i] = true
			charsUsed += size
		}
	}
	for i := headLen; i < len(messages); i++ {
		if keep[i] {
			trimmed = append(trimmed, messages[i])
		}
	}

	if len(trimmed) == 0 {
		return messages[:1]
	}
	return trimmed
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// FormatForSlack normalizes an LLM response for display: surrounding
// whitespace is trimmed and runs of three or more newlines collapse to two.
func FormatForSlack(text string) string {
	if text == "" {
		return ""
	}
	formatted := strings.TrimSpace(text)
	return excessNewlines.ReplaceAllString(formatted, "\n\n")
}

// BuildMessageContext concatenates the present sections in fixed order
// (channel, thread, user), each under its own header, separated by blank
// lines.
func BuildMessageContext(userMessage, channelContext, threadContext string) string {
	var parts []string
	if channelContext != "" {
		parts = append(parts, "Channel context:\n"+channelContext)
	}
	if threadContext != "" {
		parts = append(parts, "Thread context:\n"+threadContext)
	}
	if userMessage != "" {
		parts = append(parts, "User message:\n"+userMessage)
	}
	return strings.Join(parts, "\n\n")
}

// FormatThreadContext renders the channel identity line injected into the
// system prompt.
func FormatThreadContext(channelName, channelTopic string) string {
	context := fmt.Sprintf("You are in channel #%s.", channelName)
	if channelTopic != "" {
		context += fmt.Sprintf(" Channel topic: %s", channelTopic)
	}
	return context
}
