package slackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type postMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

// PostMessage posts text into a channel, threaded when threadTS is set.
// Transient failures (429, 5xx) are retried up to three attempts honoring
// Retry-After.
func (c *Client) PostMessage(ctx context.Context, channelID, text, threadTS string) error {
	channelID = strings.TrimSpace(channelID)
	text = strings.TrimSpace(text)
	threadTS = strings.TrimSpace(threadTS)
	if channelID == "" {
		return fmt.Errorf("%w: channel_id is required", ErrThread)
	}
	if text == "" {
		return fmt.Errorf("%w: text is required", ErrThread)
	}
	const maxAttempts = 3
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, status, headers, err := c.postAuthJSON(ctx, c.botToken, "/chat.postMessage", postMessageRequest{
			Channel:  channelID,
			Text:     text,
			ThreadTS: threadTS,
		})
		if err != nil {
			lastErr = fmt.Errorf("%w: chat.postMessage: %w", ErrThread, err)
		} else {
			var out postMessageResponse
			if parseErr := json.Unmarshal(body, &out); parseErr != nil {
				lastErr = fmt.Errorf("%w: chat.postMessage: %w", ErrThread, parseErr)
			} else if status < 200 || status >= 300 {
				lastErr = fmt.Errorf("%w: chat.postMessage http %d", ErrThread, status)
			} else if out.OK {
				return nil
			} else {
				lastErr = fmt.Errorf("%w: chat.postMessage failed: %s", ErrThread, errorCode(out.Error))
			}
		}

		if attempt >= maxAttempts {
			break
		}
		wait, retryable := retryDelay(status, headers, attempt)
		if !retryable {
			break
		}
		if err := sleepWithContext(ctx, wait); err != nil {
			return fmt.Errorf("%w: chat.postMessage: %w", ErrThread, err)
		}
	}
	return lastErr
}

type postEphemeralRequest struct {
	Channel  string `json:"channel"`
	User     string `json:"user"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// PostEphemeral sends a message visible only to one user, threaded when
// threadTS is set.
func (c *Client) PostEphemeral(ctx context.Context, channelID, userID, text, threadTS string) error {
	channelID = strings.TrimSpace(channelID)
	userID = strings.TrimSpace(userID)
	text = strings.TrimSpace(text)
	if channelID == "" || userID == "" {
		return fmt.Errorf("%w: channel_id and user are required", ErrThread)
	}
	if text == "" {
		return fmt.Errorf("%w: text is required", ErrThread)
	}
	body, status, _, err := c.postAuthJSON(ctx, c.botToken, "/chat.postEphemeral", postEphemeralRequest{
		Channel:  channelID,
		User:     userID,
		Text:     text,
		ThreadTS: strings.TrimSpace(threadTS),
	})
	if err != nil {
		return fmt.Errorf("%w: chat.postEphemeral: %w", ErrThread, err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: chat.postEphemeral http %d", ErrThread, status)
	}
	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("%w: chat.postEphemeral: %w", ErrThread, err)
	}
	if !out.OK {
		return fmt.Errorf("%w: chat.postEphemeral failed: %s", ErrThread, errorCode(out.Error))
	}
	return nil
}
