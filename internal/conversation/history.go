// Package conversation converts raw thread replies into the ordered
// role/content sequence the LLM consumes.
package conversation

import (
	"github.com/lsimons/slackassist/internal/llm"
	"github.com/lsimons/slackassist/internal/slackapi"
)

// FromReplies maps thread replies to chat messages in the order the
// platform returned them. Edit/delete metadata entries and empty-text
// messages are dropped; everything a bot produced is classified as
// assistant, the rest as user.
func FromReplies(replies []slackapi.ReplyMessage) []llm.Message {
	messages := make([]llm.Message, 0, len(replies))
	for _, msg := range replies {
		if msg.Subtype == "message_changed" || msg.Subtype == "message_deleted" {
			continue
		}
		if msg.Text == "" {
			continue
		}
		role := llm.RoleUser
		if IsAssistantMessage(msg) {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Text})
	}
	return messages
}

// IsAssistantMessage reports whether the message came from the bot rather
// than a human: a bot profile, a bot id, or the bot_message subtype all
// count.
func IsAssistantMessage(msg slackapi.ReplyMessage) bool {
	if len(msg.BotProfile) > 0 && string(msg.BotProfile) != "null" {
		return true
	}
	if msg.BotID != "" {
		return true
	}
	return msg.Subtype == "bot_message"
}
