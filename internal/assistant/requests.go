package assistant

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest marks inbound payloads missing required fields. Never
// retried; handlers log a warning and stop.
var ErrInvalidRequest = errors.New("invalid request")

// ThreadStartedRequest is a validated assistant_thread_started event.
type ThreadStartedRequest struct {
	ThreadID  string
	ChannelID string
	UserID    string
}

func NewThreadStartedRequest(threadID, channelID, userID string) (ThreadStartedRequest, error) {
	threadID = strings.TrimSpace(threadID)
	channelID = strings.TrimSpace(channelID)
	if threadID == "" || channelID == "" {
		return ThreadStartedRequest{}, fmt.Errorf("%w: assistant_thread_id and channel_id are required", ErrInvalidRequest)
	}
	return ThreadStartedRequest{
		ThreadID:  threadID,
		ChannelID: channelID,
		UserID:    strings.TrimSpace(userID),
	}, nil
}

// UserMessageRequest is a validated assistant user message event.
type UserMessageRequest struct {
	ThreadID    string
	ChannelID   string
	UserMessage string
}

func NewUserMessageRequest(threadID, channelID, text string) (UserMessageRequest, error) {
	threadID = strings.TrimSpace(threadID)
	channelID = strings.TrimSpace(channelID)
	if threadID == "" || channelID == "" {
		return UserMessageRequest{}, fmt.Errorf("%w: assistant_thread_id and channel_id are required", ErrInvalidRequest)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return UserMessageRequest{}, fmt.Errorf("%w: user message is empty", ErrInvalidRequest)
	}
	return UserMessageRequest{
		ThreadID:    threadID,
		ChannelID:   channelID,
		UserMessage: text,
	}, nil
}

const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// feedbackPositiveValue is the button value mapped to positive feedback;
// every other non-empty value counts as negative.
const feedbackPositiveValue = "feedback_thumbs_up"

// BlockAction is one entry of a block_actions payload.
type BlockAction struct {
	ActionID string
	Value    string
}

// FeedbackPayload is the raw button-click payload handed in by the
// transport.
type FeedbackPayload struct {
	Actions    []BlockAction
	UserID     string
	ChannelID  string
	ResponseTS string
	TeamID     string
}

// FeedbackRequest is a validated feedback action.
type FeedbackRequest struct {
	FeedbackType string
	UserID       string
	ChannelID    string
	ResponseTS   string
	TeamID       string
}

func NewFeedbackRequest(payload FeedbackPayload) (FeedbackRequest, error) {
	if len(payload.Actions) == 0 {
		return FeedbackRequest{}, fmt.Errorf("%w: no actions in feedback payload", ErrInvalidRequest)
	}
	value := strings.TrimSpace(payload.Actions[0].Value)
	userID := strings.TrimSpace(payload.UserID)
	if value == "" || userID == "" {
		return FeedbackRequest{}, fmt.Errorf("%w: action value and user_id are required", ErrInvalidRequest)
	}
	feedbackType := FeedbackNegative
	if value == feedbackPositiveValue {
		feedbackType = FeedbackPositive
	}
	return FeedbackRequest{
		FeedbackType: feedbackType,
		UserID:       userID,
		ChannelID:    strings.TrimSpace(payload.ChannelID),
		ResponseTS:   strings.TrimSpace(payload.ResponseTS),
		TeamID:       strings.TrimSpace(payload.TeamID),
	}, nil
}
