// Package assistant orchestrates assistant-thread events: validate the
// inbound payload, gather conversation context from Slack, call the LLM
// with a bounded context, and map failures into user-visible states. No
// retries; every handler acks first and never lets an error escape.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lsimons/slackassist/internal/conversation"
	"github.com/lsimons/slackassist/internal/llm"
	"github.com/lsimons/slackassist/internal/prompt"
	"github.com/lsimons/slackassist/internal/slackapi"
)

// SlackClient is the subset of the Slack API the handlers touch.
type SlackClient interface {
	ConversationsInfo(ctx context.Context, channelID string) (slackapi.ChannelInfo, error)
	ConversationsReplies(ctx context.Context, channelID, threadTS string) ([]slackapi.ReplyMessage, error)
	SetThreadStatus(ctx context.Context, channelID, threadID string, status slackapi.ThreadStatus) error
	SetSuggestedPrompts(ctx context.Context, channelID, threadID string, prompts []slackapi.SuggestedPrompt) error
	SetThreadTitle(ctx context.Context, channelID, threadID, title string) error
	PostMessage(ctx context.Context, channelID, text, threadTS string) error
	PostEphemeral(ctx context.Context, channelID, userID, text, threadTS string) error
}

// Completer produces one complete response for a chat completion request.
type Completer interface {
	GetCompletion(ctx context.Context, req llm.Request) (string, error)
}

// AckFunc acknowledges the inbound event to the platform. Handlers invoke
// it exactly once, before any other work; its failure is logged, never
// fatal.
type AckFunc func() error

// Fixed user-visible texts per error kind.
const (
	msgWelcome       = ":wave: Hi, how can I help you today?"
	msgSlackDown     = "Slack is temporarily unavailable. Please try again."
	msgConfiguration = "Configuration error. Please check LiteLLM settings."
	msgLLMFailed     = "I encountered an error processing your message. Please try again."
	msgEmptyResponse = "I couldn't generate a response. Please try again."
	msgFeedbackThank = "Thank you for your feedback! We use this to improve the assistant."
)

// Config tunes the user-message pipeline.
type Config struct {
	Model        string
	SystemPrompt string
	// MaxContextTokens bounds the history passed to the model. Zero falls
	// back to 4000.
	MaxContextTokens int
	Temperature      float64
}

type Options struct {
	Slack  SlackClient
	LLM    Completer
	Logger *slog.Logger
	Config Config
}

type Handler struct {
	slack  SlackClient
	llm    Completer
	logger *slog.Logger
	cfg    Config
}

func New(opts Options) (*Handler, error) {
	if opts.Slack == nil {
		return nil, errors.New("slack client is required")
	}
	if opts.LLM == nil {
		return nil, errors.New("llm completer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model is required")
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = 4000
	}
	return &Handler{
		slack:  opts.Slack,
		llm:    opts.LLM,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// HandleThreadStarted greets a freshly opened assistant thread and installs
// topic-aware suggested prompts.
func (h *Handler) HandleThreadStarted(ctx context.Context, ack AckFunc, threadID, channelID, userID string) {
	h.callAck(ack, "assistant_thread_started")

	req, err := NewThreadStartedRequest(threadID, channelID, userID)
	if err != nil {
		h.logger.Warn("assistant_thread_started_invalid", "error", err.Error())
		return
	}
	h.logger.Info("assistant_thread_started",
		"thread_id", req.ThreadID,
		"channel_id", req.ChannelID,
		"user_id", req.UserID,
	)

	if err := h.slack.PostMessage(ctx, req.ChannelID, msgWelcome, req.ThreadID); err != nil {
		h.logger.Warn("assistant_welcome_error", "channel_id", req.ChannelID, "error", err.Error())
	}

	info, err := h.slack.ConversationsInfo(ctx, req.ChannelID)
	if err != nil {
		h.logger.Error("assistant_channel_info_error", "channel_id", req.ChannelID, "error", err.Error())
		return
	}

	if err := h.slack.SetThreadStatus(ctx, req.ChannelID, req.ThreadID, slackapi.StatusRunning); err != nil {
		h.logger.Error("assistant_status_error", "thread_id", req.ThreadID, "status", string(slackapi.StatusRunning), "error", err.Error())
		return
	}

	suggestions := prompt.SuggestedPrompts(info.Topic)
	if err := h.slack.SetSuggestedPrompts(ctx, req.ChannelID, req.ThreadID, toSuggestedPrompts(suggestions)); err != nil {
		// Suggestions are cosmetic; the thread still works without them.
		h.logger.Warn("assistant_prompts_error", "thread_id", req.ThreadID, "error", err.Error())
		return
	}
	h.logger.Info("assistant_prompts_set", "thread_id", req.ThreadID, "count", len(suggestions))
}

// HandleUserMessage relays one user message through the LLM and posts the
// reply into the thread.
func (h *Handler) HandleUserMessage(ctx context.Context, ack AckFunc, threadID, channelID, text string) {
	h.callAck(ack, "assistant_user_message")

	req, err := NewUserMessageRequest(threadID, channelID, text)
	if err != nil {
		h.logger.Warn("assistant_user_message_invalid", "error", err.Error())
		return
	}
	h.logger.Info("assistant_user_message",
		"thread_id", req.ThreadID,
		"channel_id", req.ChannelID,
		"text_len", len(req.UserMessage),
	)

	if err := h.slack.SetThreadTitle(ctx, req.ChannelID, req.ThreadID, req.UserMessage); err != nil {
		h.logger.Warn("assistant_title_error", "thread_id", req.ThreadID, "error", err.Error())
	}

	if err := h.slack.SetThreadStatus(ctx, req.ChannelID, req.ThreadID, slackapi.StatusRunning); err != nil {
		h.failUserMessage(ctx, req, "assistant_status_error", msgSlackDown, err)
		return
	}

	info, err := h.slack.ConversationsInfo(ctx, req.ChannelID)
	if err != nil {
		h.failUserMessage(ctx, req, "assistant_channel_info_error", msgSlackDown, err)
		return
	}
	channelName := info.Name
	if channelName == "" {
		channelName = req.ChannelID
	}

	replies, err := h.slack.ConversationsReplies(ctx, req.ChannelID, req.ThreadID)
	if err != nil {
		h.failUserMessage(ctx, req, "assistant_history_error", msgSlackDown, err)
		return
	}
	messages := conversation.FromReplies(replies)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.UserMessage})
	messages = prompt.TrimMessagesForContext(messages, h.cfg.MaxContextTokens)

	systemPrompt := prompt.BuildSystemPrompt(
		h.cfg.SystemPrompt,
		prompt.FormatThreadContext(channelName, info.Topic),
	)

	h.logger.Info("assistant_llm_call", "model", h.cfg.Model, "messages", len(messages))
	response, err := h.llm.GetCompletion(ctx, llm.Request{
		Model:        h.cfg.Model,
		Messages:     messages,
		Temperature:  h.cfg.Temperature,
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		h.failUserMessage(ctx, req, "assistant_llm_error", userTextForLLMError(err), err)
		return
	}
	if strings.TrimSpace(response) == "" {
		h.failUserMessage(ctx, req, "assistant_llm_empty_response", msgEmptyResponse, llm.ErrAPI)
		return
	}

	if err := h.slack.PostMessage(ctx, req.ChannelID, prompt.FormatForSlack(response), req.ThreadID); err != nil {
		h.failUserMessage(ctx, req, "assistant_reply_post_error", msgSlackDown, err)
		return
	}
	h.logger.Info("assistant_reply_posted", "thread_id", req.ThreadID, "response_len", len(response))

	if err := h.slack.SetThreadStatus(ctx, req.ChannelID, req.ThreadID, slackapi.StatusWaitingOnUser); err != nil {
		// Terminal step; the reply is already delivered.
		h.logger.Warn("assistant_status_error", "thread_id", req.ThreadID, "status", string(slackapi.StatusWaitingOnUser), "error", err.Error())
	}
}

// failUserMessage emits the single error log line, shows the fixed
// user-visible text, and best-effort resets the thread status so the user
// can retry manually.
func (h *Handler) failUserMessage(ctx context.Context, req UserMessageRequest, event, userText string, cause error) {
	h.logger.Error(event, "thread_id", req.ThreadID, "channel_id", req.ChannelID, "error", cause.Error())
	if userText != "" {
		if err := h.slack.PostMessage(ctx, req.ChannelID, userText, req.ThreadID); err != nil {
			h.logger.Warn("assistant_error_post_error", "thread_id", req.ThreadID, "error", err.Error())
		}
	}
	if err := h.slack.SetThreadStatus(ctx, req.ChannelID, req.ThreadID, slackapi.StatusWaitingOnUser); err != nil {
		h.logger.Warn("assistant_status_reset_error", "thread_id", req.ThreadID, "error", err.Error())
	}
}

func userTextForLLMError(err error) string {
	if errors.Is(err, llm.ErrConfiguration) {
		return msgConfiguration
	}
	return msgLLMFailed
}

func (h *Handler) callAck(ack AckFunc, event string) {
	if ack == nil {
		return
	}
	if err := ack(); err != nil {
		h.logger.Warn("event_ack_error", "event", event, "error", err.Error())
	}
}

func toSuggestedPrompts(suggestions []prompt.Suggestion) []slackapi.SuggestedPrompt {
	out := make([]slackapi.SuggestedPrompt, 0, len(suggestions))
	for _, s := range suggestions {
		message := s.Prompt
		if message == "" {
			message = s.Description
		}
		out = append(out, slackapi.SuggestedPrompt{Title: s.Title, Message: message})
	}
	return out
}
