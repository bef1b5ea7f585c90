package slackapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthTest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth.test" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer xoxb-test" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true, "team_id": "T1", "user_id": "UBOT", "bot_id": "B1", "team": "acme",
		})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	got, err := c.AuthTest(context.Background())
	if err != nil {
		t.Fatalf("AuthTest() error = %v", err)
	}
	if got.UserID != "UBOT" || got.TeamID != "T1" || got.Team != "acme" {
		t.Fatalf("AuthTest() = %+v", got)
	}
}

func TestAuthTestAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "invalid_auth"})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-bad", "xapp-test")
	if _, err := c.AuthTest(context.Background()); err == nil {
		t.Fatalf("AuthTest() error = nil, want invalid_auth")
	}
}

func TestConversationsInfo(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		if got := r.URL.Query().Get("channel"); got != "C1" {
			t.Errorf("channel = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"channel": map[string]any{
				"id": "C1", "name": "general", "is_private": false,
				"topic": map[string]any{"value": "release planning"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	got, err := c.ConversationsInfo(context.Background(), "C1")
	if err != nil {
		t.Fatalf("ConversationsInfo() error = %v", err)
	}
	if got.Name != "general" || got.Topic != "release planning" {
		t.Fatalf("ConversationsInfo() = %+v", got)
	}
}

func TestConversationsInfoNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	_, err := c.ConversationsInfo(context.Background(), "C404")
	if !errors.Is(err, ErrChannel) {
		t.Fatalf("error = %v, want ErrChannel", err)
	}
}

func TestConversationsRepliesPagination(t *testing.T) {
	t.Parallel()

	var pages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if got := r.URL.Query().Get("ts"); got != "123.456" {
			t.Errorf("ts = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "200" {
			t.Errorf("limit = %q", got)
		}
		cursor := r.URL.Query().Get("cursor")
		switch cursor {
		case "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":                true,
				"messages":          []map[string]any{{"user": "U1", "text": "one", "ts": "1"}},
				"has_more":          true,
				"response_metadata": map[string]any{"next_cursor": "page2"},
			})
		case "page2":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":       true,
				"messages": []map[string]any{{"bot_id": "B1", "text": "two", "ts": "2"}},
				"has_more": false,
			})
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	got, err := c.ConversationsReplies(context.Background(), "C1", "123.456")
	if err != nil {
		t.Fatalf("ConversationsReplies() error = %v", err)
	}
	if pages != 2 {
		t.Fatalf("pages fetched = %d, want 2", pages)
	}
	if len(got) != 2 || got[0].Text != "one" || got[1].Text != "two" {
		t.Fatalf("ConversationsReplies() = %+v", got)
	}
}

func TestConversationsRepliesThreadError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "thread_not_found"})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	_, err := c.ConversationsReplies(context.Background(), "C1", "123.456")
	if !errors.Is(err, ErrThread) {
		t.Fatalf("error = %v, want ErrThread", err)
	}
}

func TestSetThreadStatus(t *testing.T) {
	t.Parallel()

	var got setStatusRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assistant.threads.setStatus" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	if err := c.SetThreadStatus(context.Background(), "C1", "123.456", StatusRunning); err != nil {
		t.Fatalf("SetThreadStatus() error = %v", err)
	}
	if got.ChannelID != "C1" || got.ThreadTS != "123.456" || got.Status != "running" {
		t.Fatalf("request = %+v", got)
	}
}

func TestSetSuggestedPrompts(t *testing.T) {
	t.Parallel()

	var got setSuggestedPromptsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	prompts := []SuggestedPrompt{{Title: "Summarize", Message: "Please summarize."}}
	if err := c.SetSuggestedPrompts(context.Background(), "C1", "123.456", prompts); err != nil {
		t.Fatalf("SetSuggestedPrompts() error = %v", err)
	}
	if len(got.Prompts) != 1 || got.Prompts[0].Message != "Please summarize." {
		t.Fatalf("request = %+v", got)
	}

	if err := c.SetSuggestedPrompts(context.Background(), "C1", "123.456", nil); !errors.Is(err, ErrThread) {
		t.Fatalf("empty prompts: error = %v, want ErrThread", err)
	}
}

func TestPostMessageRetriesOn429(t *testing.T) {
	t.Parallel()

	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "rate_limited"})
			return
		}
		var req postMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ThreadTS != "123.456" {
			t.Errorf("thread_ts = %q", req.ThreadTS)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "999.000"})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	if err := c.PostMessage(context.Background(), "C1", "hello", "123.456"); err != nil {
		t.Fatalf("PostMessage() error = %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestPostMessageNonRetryableError(t *testing.T) {
	t.Parallel()

	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	err := c.PostMessage(context.Background(), "C1", "hello", "")
	if !errors.Is(err, ErrThread) {
		t.Fatalf("error = %v, want ErrThread", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 for non-retryable failure", attempts)
	}
}

func TestPostEphemeral(t *testing.T) {
	t.Parallel()

	var got postEphemeralRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postEphemeral" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "xoxb-test", "xapp-test")
	if err := c.PostEphemeral(context.Background(), "C1", "U1", "thanks", "123.456"); err != nil {
		t.Fatalf("PostEphemeral() error = %v", err)
	}
	if got.Channel != "C1" || got.User != "U1" || got.ThreadTS != "123.456" {
		t.Fatalf("request = %+v", got)
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	if d, ok := retryDelay(http.StatusTooManyRequests, http.Header{"Retry-After": []string{"7"}}, 1); !ok || d != 7*time.Second {
		t.Fatalf("429 with Retry-After: d=%v ok=%v", d, ok)
	}
	if d, ok := retryDelay(http.StatusTooManyRequests, http.Header{}, 1); !ok || d != 1*time.Second {
		t.Fatalf("429 without Retry-After: d=%v ok=%v", d, ok)
	}
	if _, ok := retryDelay(http.StatusBadRequest, http.Header{}, 1); ok {
		t.Fatalf("400 retryable")
	}
	if d, ok := retryDelay(http.StatusInternalServerError, http.Header{}, 2); !ok || d != 1*time.Second {
		t.Fatalf("500 attempt 2: d=%v ok=%v", d, ok)
	}
}

func TestErrorCode(t *testing.T) {
	t.Parallel()

	if got := errorCode("  "); got != "unknown_error" {
		t.Fatalf("blank: got %q", got)
	}
	if got := errorCode("ratelimited"); got != "ratelimited" {
		t.Fatalf("got %q", got)
	}
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	c := New(nil, "", "xoxb-test", "xapp-test")
	ctx := context.Background()

	if _, err := c.ConversationsInfo(ctx, " "); !errors.Is(err, ErrChannel) {
		t.Fatalf("blank channel: %v", err)
	}
	if _, err := c.ConversationsReplies(ctx, "C1", ""); !errors.Is(err, ErrThread) {
		t.Fatalf("blank ts: %v", err)
	}
	if err := c.SetThreadStatus(ctx, "", "123", StatusRunning); !errors.Is(err, ErrThread) {
		t.Fatalf("blank channel for status: %v", err)
	}
	if err := c.SetThreadTitle(ctx, "C1", "123", " "); !errors.Is(err, ErrThread) {
		t.Fatalf("blank title: %v", err)
	}
	if err := c.PostMessage(ctx, "C1", "  ", ""); !errors.Is(err, ErrThread) {
		t.Fatalf("blank text: %v", err)
	}
	if err := c.PostEphemeral(ctx, "C1", "", "hi", ""); !errors.Is(err, ErrThread) {
		t.Fatalf("blank user: %v", err)
	}
}

func TestRetryDelayServerErrorFirstAttempt(t *testing.T) {
	t.Parallel()

	d, ok := retryDelay(http.StatusBadGateway, http.Header{}, 1)
	if !ok {
		t.Fatalf("502 not retryable")
	}
	if d != 300*time.Millisecond {
		t.Fatalf("d = %v, want 300ms", d)
	}
}
