package slackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ThreadStatus is the visible state indicator on an assistant thread.
type ThreadStatus string

const (
	StatusRunning       ThreadStatus = "running"
	StatusWaitingOnUser ThreadStatus = "waiting_on_user"
)

// SuggestedPrompt is the wire shape of one clickable suggestion.
type SuggestedPrompt struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type setStatusRequest struct {
	ChannelID string `json:"channel_id"`
	ThreadTS  string `json:"thread_ts"`
	Status    string `json:"status"`
}

// SetThreadStatus updates the assistant thread's visible status indicator.
// Failures wrap ErrThread. Not retried.
func (c *Client) SetThreadStatus(ctx context.Context, channelID, threadID string, status ThreadStatus) error {
	channelID = strings.TrimSpace(channelID)
	threadID = strings.TrimSpace(threadID)
	if channelID == "" || threadID == "" {
		return fmt.Errorf("%w: channel_id and thread_id are required", ErrThread)
	}
	return c.assistantCall(ctx, "/assistant.threads.setStatus", setStatusRequest{
		ChannelID: channelID,
		ThreadTS:  threadID,
		Status:    string(status),
	})
}

type setSuggestedPromptsRequest struct {
	ChannelID string            `json:"channel_id"`
	ThreadTS  string            `json:"thread_ts"`
	Prompts   []SuggestedPrompt `json:"prompts"`
}

// SetSuggestedPrompts replaces the thread's suggested prompts. Failures wrap
// ErrThread; callers treat this call as cosmetic.
func (c *Client) SetSuggestedPrompts(ctx context.Context, channelID, threadID string, prompts []SuggestedPrompt) error {
	channelID = strings.TrimSpace(channelID)
	threadID = strings.TrimSpace(threadID)
	if channelID == "" || threadID == "" {
		return fmt.Errorf("%w: channel_id and thread_id are required", ErrThread)
	}
	if len(prompts) == 0 {
		return fmt.Errorf("%w: prompts are required", ErrThread)
	}
	return c.assistantCall(ctx, "/assistant.threads.setSuggestedPrompts", setSuggestedPromptsRequest{
		ChannelID: channelID,
		ThreadTS:  threadID,
		Prompts:   prompts,
	})
}

type setTitleRequest struct {
	ChannelID string `json:"channel_id"`
	ThreadTS  string `json:"thread_ts"`
	Title     string `json:"title"`
}

// SetThreadTitle sets the assistant thread title shown in the sidebar.
// Failures wrap ErrThread; cosmetic.
func (c *Client) SetThreadTitle(ctx context.Context, channelID, threadID, title string) error {
	channelID = strings.TrimSpace(channelID)
	threadID = strings.TrimSpace(threadID)
	title = strings.TrimSpace(title)
	if channelID == "" || threadID == "" || title == "" {
		return fmt.Errorf("%w: channel_id, thread_id and title are required", ErrThread)
	}
	return c.assistantCall(ctx, "/assistant.threads.setTitle", setTitleRequest{
		ChannelID: channelID,
		ThreadTS:  threadID,
		Title:     title,
	})
}

func (c *Client) assistantCall(ctx context.Context, path string, payload any) error {
	body, status, _, err := c.postAuthJSON(ctx, c.botToken, path, payload)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrThread, path, err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: %s http %d", ErrThread, path, status)
	}
	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrThread, path, err)
	}
	if !out.OK {
		return fmt.Errorf("%w: %s failed: %s", ErrThread, path, errorCode(out.Error))
	}
	return nil
}
