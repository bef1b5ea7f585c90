package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lsimons/slackassist/cmd/slackassist/configcmd"
	"github.com/lsimons/slackassist/cmd/slackassist/servecmd"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()
	initViper()

	root := &cobra.Command{
		Use:          "slackassist",
		Short:        "Slack assistant bot relaying thread messages to an LLM proxy",
		SilenceUsage: true,
	}
	root.AddCommand(servecmd.NewCommand(servecmd.Dependencies{
		LoggerFromViper: loggerFromViper,
	}))
	root.AddCommand(configcmd.NewCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("SLACKASSIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Canonical env names shared with the original deployment.
	_ = viper.BindEnv("slack.bot_token", "SLACKASSIST_SLACK_BOT_TOKEN", "SLACK_BOT_TOKEN")
	_ = viper.BindEnv("slack.app_token", "SLACKASSIST_SLACK_APP_TOKEN", "SLACK_APP_TOKEN")
	_ = viper.BindEnv("llm.api_key", "SLACKASSIST_LLM_API_KEY", "LITELLM_API_KEY")
	_ = viper.BindEnv("llm.base_url", "SLACKASSIST_LLM_BASE_URL", "LITELLM_API_BASE")
	_ = viper.BindEnv("assistant.model", "SLACKASSIST_ASSISTANT_MODEL", "ASSISTANT_MODEL")
	_ = viper.BindEnv("assistant.system_prompt", "SLACKASSIST_ASSISTANT_SYSTEM_PROMPT", "ASSISTANT_SYSTEM_PROMPT")

	viper.SetDefault("llm.request_timeout", 60*time.Second)
	viper.SetDefault("assistant.model", "azure/gpt-5-mini")
	viper.SetDefault("assistant.max_context_tokens", 4000)
	viper.SetDefault("assistant.task_timeout", 2*time.Minute)
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.level", "info")
}

func loggerFromViper() (*slog.Logger, error) {
	level, err := parseLogLevel(viper.GetString("log.level"))
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(strings.TrimSpace(viper.GetString("log.format"))) {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log.format %q (want text or json)", viper.GetString("log.format"))
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log.level %q", raw)
	}
}
