package slackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ChannelInfo is the metadata the handlers care about. Fetched fresh per
// request, never cached.
type ChannelInfo struct {
	ID        string
	Name      string
	Topic     string
	IsPrivate bool
}

type conversationsInfoResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Channel struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		IsPrivate bool   `json:"is_private"`
		Topic     struct {
			Value string `json:"value"`
		} `json:"topic"`
	} `json:"channel"`
}

// ConversationsInfo fetches channel metadata. Failures wrap ErrChannel.
func (c *Client) ConversationsInfo(ctx context.Context, channelID string) (ChannelInfo, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return ChannelInfo{}, fmt.Errorf("%w: channel_id is required", ErrChannel)
	}
	query := url.Values{}
	query.Set("channel", channelID)
	body, status, _, err := c.getAuth(ctx, c.botToken, "/conversations.info", query)
	if err != nil {
		return ChannelInfo{}, fmt.Errorf("%w: conversations.info: %w", ErrChannel, err)
	}
	if status < 200 || status >= 300 {
		return ChannelInfo{}, fmt.Errorf("%w: conversations.info http %d", ErrChannel, status)
	}
	var out conversationsInfoResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return ChannelInfo{}, fmt.Errorf("%w: conversations.info: %w", ErrChannel, err)
	}
	if !out.OK {
		return ChannelInfo{}, fmt.Errorf("%w: conversations.info failed: %s", ErrChannel, errorCode(out.Error))
	}
	return ChannelInfo{
		ID:        strings.TrimSpace(out.Channel.ID),
		Name:      strings.TrimSpace(out.Channel.Name),
		Topic:     strings.TrimSpace(out.Channel.Topic.Value),
		IsPrivate: out.Channel.IsPrivate,
	}, nil
}

// ReplyMessage is one raw message from conversations.replies, carrying just
// the fields the history extractor classifies on.
type ReplyMessage struct {
	Type       string          `json:"type,omitempty"`
	Subtype    string          `json:"subtype,omitempty"`
	User       string          `json:"user,omitempty"`
	BotID      string          `json:"bot_id,omitempty"`
	BotProfile json.RawMessage `json:"bot_profile,omitempty"`
	Text       string          `json:"text,omitempty"`
	TS         string          `json:"ts,omitempty"`
	ThreadTS   string          `json:"thread_ts,omitempty"`
}

type conversationsRepliesResponse struct {
	OK               bool           `json:"ok"`
	Error            string         `json:"error,omitempty"`
	Messages         []ReplyMessage `json:"messages,omitempty"`
	HasMore          bool           `json:"has_more,omitempty"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor,omitempty"`
	} `json:"response_metadata,omitempty"`
}

const (
	repliesPageLimit = 200
	repliesMaxPages  = 10
)

// ConversationsReplies fetches every reply under the thread root, following
// the pagination cursor up to repliesMaxPages pages. Failures wrap
// ErrThread.
func (c *Client) ConversationsReplies(ctx context.Context, channelID, threadTS string) ([]ReplyMessage, error) {
	channelID = strings.TrimSpace(channelID)
	threadTS = strings.TrimSpace(threadTS)
	if channelID == "" || threadTS == "" {
		return nil, fmt.Errorf("%w: channel_id and thread ts are required", ErrThread)
	}

	var messages []ReplyMessage
	cursor := ""
	for page := 0; page < repliesMaxPages; page++ {
		query := url.Values{}
		query.Set("channel", channelID)
		query.Set("ts", threadTS)
		query.Set("limit", fmt.Sprintf("%d", repliesPageLimit))
		if cursor != "" {
			query.Set("cursor", cursor)
		}
		body, status, _, err := c.getAuth(ctx, c.botToken, "/conversations.replies", query)
		if err != nil {
			return nil, fmt.Errorf("%w: conversations.replies: %w", ErrThread, err)
		}
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("%w: conversations.replies http %d", ErrThread, status)
		}
		var out conversationsRepliesResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("%w: conversations.replies: %w", ErrThread, err)
		}
		if !out.OK {
			return nil, fmt.Errorf("%w: conversations.replies failed: %s", ErrThread, errorCode(out.Error))
		}
		messages = append(messages, out.Messages...)
		cursor = strings.TrimSpace(out.ResponseMetadata.NextCursor)
		if !out.HasMore || cursor == "" {
			break
		}
	}
	return messages, nil
}
