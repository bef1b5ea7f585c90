package servecmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lsimons/slackassist/internal/assistant"
	"github.com/lsimons/slackassist/internal/configutil"
	"github.com/lsimons/slackassist/internal/llm"
	"github.com/lsimons/slackassist/internal/slackapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Slack assistant bot with Socket Mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			botToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-bot-token", "slack.bot_token"))
			appToken := strings.TrimSpace(configutil.FlagOrViperString(cmd, "slack-app-token", "slack.app_token"))
			apiKey := strings.TrimSpace(configutil.FlagOrViperString(cmd, "llm-api-key", "llm.api_key"))
			var missing []string
			if botToken == "" {
				missing = append(missing, "SLACK_BOT_TOKEN")
			}
			if appToken == "" {
				missing = append(missing, "SLACK_APP_TOKEN")
			}
			if apiKey == "" {
				missing = append(missing, "LITELLM_API_KEY")
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
			}

			logger, err := loggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			httpClient := &http.Client{Timeout: 30 * time.Second}
			api := slackapi.New(httpClient, viper.GetString("slack.base_url"), botToken, appToken)
			auth, err := api.AuthTest(cmd.Context())
			if err != nil {
				return fmt.Errorf("slack auth.test: %w", err)
			}
			botUserID := strings.TrimSpace(auth.UserID)
			if botUserID == "" {
				return fmt.Errorf("slack auth.test returned empty user_id")
			}

			llmClient, err := llm.NewClient(llm.Config{
				APIKey:  apiKey,
				BaseURL: configutil.FlagOrViperString(cmd, "llm-base-url", "llm.base_url"),
				Timeout: viper.GetDuration("llm.request_timeout"),
			})
			if err != nil {
				return err
			}
			defer llmClient.Close()

			handler, err := assistant.New(assistant.Options{
				Slack:  api,
				LLM:    llmClient,
				Logger: logger,
				Config: assistant.Config{
					Model:            configutil.FlagOrViperString(cmd, "model", "assistant.model"),
					SystemPrompt:     viper.GetString("assistant.system_prompt"),
					MaxContextTokens: viper.GetInt("assistant.max_context_tokens"),
					Temperature:      viper.GetFloat64("assistant.temperature"),
				},
			})
			if err != nil {
				return err
			}

			taskTimeout := configutil.FlagOrViperDuration(cmd, "task-timeout", "assistant.task_timeout")
			if taskTimeout <= 0 {
				taskTimeout = 2 * time.Minute
			}

			logger.Info("assistant_start",
				"bot_user_id", botUserID,
				"team", auth.Team,
				"model", viper.GetString("assistant.model"),
				"task_timeout", taskTimeout.String(),
			)

			var wg sync.WaitGroup
			defer wg.Wait()

			for {
				if cmd.Context().Err() != nil {
					logger.Info("assistant_stop", "reason", "context_canceled")
					return nil
				}
				conn, err := api.ConnectSocket(cmd.Context())
				if err != nil {
					if cmd.Context().Err() != nil {
						logger.Info("assistant_stop", "reason", "context_canceled")
						return nil
					}
					logger.Warn("slack_socket_connect_error", "error", err.Error())
					if err := sleepWithContext(cmd.Context(), 2*time.Second); err != nil {
						return nil
					}
					continue
				}
				logger.Info("slack_socket_connected")
				readErr := consumeSocket(cmd.Context(), conn, func(envelope socketEnvelope, ack assistant.AckFunc) {
					wg.Add(1)
					go func() {
						defer wg.Done()
						ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
						defer cancel()
						dispatchEnvelope(ctx, logger, handler, botUserID, envelope, ack)
					}()
				})
				_ = conn.Close()
				if readErr != nil && !errors.Is(readErr, context.Canceled) && !errors.Is(readErr, context.DeadlineExceeded) {
					logger.Warn("slack_socket_read_error", "error", readErr.Error())
				}
			}
		},
	}

	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-...).")
	cmd.Flags().String("slack-app-token", "", "Slack app-level token for Socket Mode (xapp-...).")
	cmd.Flags().String("llm-api-key", "", "LiteLLM proxy API key.")
	cmd.Flags().String("llm-base-url", "", "LiteLLM proxy base URL.")
	cmd.Flags().String("model", "", "Model name sent to the proxy.")
	cmd.Flags().Duration("task-timeout", 0, "Per-event processing timeout.")

	return cmd
}

// consumeSocket reads Socket Mode envelopes and hands routable ones to
// onEnvelope with a once-only ack bound to this connection. Envelopes that
// never reach a handler are acked here so Slack does not redeliver them.
func consumeSocket(ctx context.Context, conn *websocket.Conn, onEnvelope func(envelope socketEnvelope, ack assistant.AckFunc)) error {
	if conn == nil {
		return fmt.Errorf("slack websocket connection is nil")
	}
	var writeMu sync.Mutex
	ackFor := func(envelopeID string) assistant.AckFunc {
		var once sync.Once
		return func() error {
			var err error
			once.Do(func() {
				writeMu.Lock()
				defer writeMu.Unlock()
				err = conn.WriteJSON(map[string]string{"envelope_id": envelopeID})
			})
			return err
		}
	}
	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var envelope socketEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			continue
		}
		envelopeID := strings.TrimSpace(envelope.EnvelopeID)
		if envelopeID == "" {
			continue
		}
		if !isRoutableEnvelope(envelope) {
			writeMu.Lock()
			writeErr := conn.WriteJSON(map[string]string{"envelope_id": envelopeID})
			writeMu.Unlock()
			if writeErr != nil {
				return writeErr
			}
			continue
		}
		if onEnvelope != nil {
			onEnvelope(envelope, ackFor(envelopeID))
		}
	}
}

func isRoutableEnvelope(envelope socketEnvelope) bool {
	switch strings.TrimSpace(envelope.Type) {
	case "events_api", "interactive":
		return len(envelope.Payload) > 0
	default:
		return false
	}
}

// dispatchEnvelope routes one acked-by-handler envelope to the matching
// assistant handler. Handlers own all error reporting; nothing propagates
// back to the socket loop.
func dispatchEnvelope(ctx context.Context, logger *slog.Logger, handler *assistant.Handler, botUserID string, envelope socketEnvelope, ack assistant.AckFunc) {
	switch strings.TrimSpace(envelope.Type) {
	case "events_api":
		event, ok, err := parseInboundEvent(envelope, botUserID)
		if err != nil {
			_ = ack()
			logger.Warn("slack_event_parse_error", "error", err.Error())
			return
		}
		if !ok {
			_ = ack()
			return
		}
		switch event.Kind {
		case kindThreadStarted:
			handler.HandleThreadStarted(ctx, ack, event.ThreadID, event.ChannelID, event.UserID)
		case kindUserMessage:
			handler.HandleUserMessage(ctx, ack, event.ThreadID, event.ChannelID, event.Text)
		}
	case "interactive":
		payload, ok, err := parseFeedbackPayload(envelope)
		if err != nil {
			_ = ack()
			logger.Warn("slack_interactive_parse_error", "error", err.Error())
			return
		}
		if !ok {
			_ = ack()
			return
		}
		handler.HandleFeedback(ctx, ack, payload)
	default:
		_ = ack()
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
