package servecmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lsimons/slackassist/internal/assistant"
)

type socketEnvelope struct {
	EnvelopeID string          `json:"envelope_id,omitempty"`
	Type       string          `json:"type,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type eventsAPIPayload struct {
	TeamID  string          `json:"team_id,omitempty"`
	EventID string          `json:"event_id,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
}

type assistantThreadInfo struct {
	UserID    string `json:"user_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	ThreadTS  string `json:"thread_ts,omitempty"`
}

type slackEvent struct {
	Type            string               `json:"type,omitempty"`
	Subtype         string               `json:"subtype,omitempty"`
	User            string               `json:"user,omitempty"`
	Text            string               `json:"text,omitempty"`
	Channel         string               `json:"channel,omitempty"`
	ChannelType     string               `json:"channel_type,omitempty"`
	TS              string               `json:"ts,omitempty"`
	ThreadTS        string               `json:"thread_ts,omitempty"`
	BotID           string               `json:"bot_id,omitempty"`
	AssistantThread *assistantThreadInfo `json:"assistant_thread,omitempty"`
}

const (
	kindThreadStarted = "thread_started"
	kindUserMessage   = "user_message"
)

type inboundEvent struct {
	Kind      string
	ThreadID  string
	ChannelID string
	UserID    string
	Text      string
	EventID   string
}

// parseInboundEvent maps an events_api envelope to one of the two assistant
// events. Text is passed through untrimmed: blank-message rejection is the
// handler's job, with its own warning.
func parseInboundEvent(envelope socketEnvelope, botUserID string) (inboundEvent, bool, error) {
	if strings.TrimSpace(envelope.Type) != "events_api" || len(envelope.Payload) == 0 {
		return inboundEvent{}, false, nil
	}
	var payload eventsAPIPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return inboundEvent{}, false, err
	}
	var event slackEvent
	if err := json.Unmarshal(payload.Event, &event); err != nil {
		return inboundEvent{}, false, err
	}

	switch strings.TrimSpace(event.Type) {
	case "assistant_thread_started":
		if event.AssistantThread == nil {
			return inboundEvent{}, false, fmt.Errorf("assistant_thread_started event missing assistant_thread")
		}
		return inboundEvent{
			Kind:      kindThreadStarted,
			ThreadID:  strings.TrimSpace(event.AssistantThread.ThreadTS),
			ChannelID: strings.TrimSpace(event.AssistantThread.ChannelID),
			UserID:    strings.TrimSpace(event.AssistantThread.UserID),
			EventID:   strings.TrimSpace(payload.EventID),
		}, true, nil
	case "message":
		// Assistant user messages arrive as plain message events inside the
		// DM thread backing the assistant container.
		if strings.TrimSpace(event.Subtype) != "" {
			return inboundEvent{}, false, nil
		}
		if strings.TrimSpace(event.BotID) != "" {
			return inboundEvent{}, false, nil
		}
		userID := strings.TrimSpace(event.User)
		if userID == "" || userID == strings.TrimSpace(botUserID) {
			return inboundEvent{}, false, nil
		}
		if strings.ToLower(strings.TrimSpace(event.ChannelType)) != "im" {
			return inboundEvent{}, false, nil
		}
		if strings.TrimSpace(event.ThreadTS) == "" {
			return inboundEvent{}, false, nil
		}
		return inboundEvent{
			Kind:      kindUserMessage,
			ThreadID:  strings.TrimSpace(event.ThreadTS),
			ChannelID: strings.TrimSpace(event.Channel),
			UserID:    userID,
			Text:      event.Text,
			EventID:   strings.TrimSpace(payload.EventID),
		}, true, nil
	default:
		return inboundEvent{}, false, nil
	}
}

type interactivePayload struct {
	Type string `json:"type,omitempty"`
	User struct {
		ID string `json:"id,omitempty"`
	} `json:"user,omitempty"`
	Channel struct {
		ID string `json:"id,omitempty"`
	} `json:"channel,omitempty"`
	Team struct {
		ID string `json:"id,omitempty"`
	} `json:"team,omitempty"`
	Message struct {
		TS string `json:"ts,omitempty"`
	} `json:"message,omitempty"`
	Actions []struct {
		ActionID string `json:"action_id,omitempty"`
		Value    string `json:"value,omitempty"`
	} `json:"actions,omitempty"`
}

// parseFeedbackPayload maps an interactive envelope with block_actions to
// the feedback payload. Validation happens in the handler.
func parseFeedbackPayload(envelope socketEnvelope) (assistant.FeedbackPayload, bool, error) {
	if strings.TrimSpace(envelope.Type) != "interactive" || len(envelope.Payload) == 0 {
		return assistant.FeedbackPayload{}, false, nil
	}
	var payload interactivePayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return assistant.FeedbackPayload{}, false, err
	}
	if strings.TrimSpace(payload.Type) != "block_actions" {
		return assistant.FeedbackPayload{}, false, nil
	}
	actions := make([]assistant.BlockAction, 0, len(payload.Actions))
	for _, a := range payload.Actions {
		actions = append(actions, assistant.BlockAction{
			ActionID: strings.TrimSpace(a.ActionID),
			Value:    a.Value,
		})
	}
	return assistant.FeedbackPayload{
		Actions:    actions,
		UserID:     strings.TrimSpace(payload.User.ID),
		ChannelID:  strings.TrimSpace(payload.Channel.ID),
		ResponseTS: strings.TrimSpace(payload.Message.TS),
		TeamID:     strings.TrimSpace(payload.Team.ID),
	}, true, nil
}
