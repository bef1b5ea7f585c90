// Package configcmd prints the resolved runtime configuration, with secret
// values redacted, mainly for debugging deployment environments.
package configcmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(newShowCmd())
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(resolvedConfig())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func resolvedConfig() map[string]any {
	return map[string]any{
		"slack": map[string]any{
			"bot_token": redact(viper.GetString("slack.bot_token")),
			"app_token": redact(viper.GetString("slack.app_token")),
			"base_url":  viper.GetString("slack.base_url"),
		},
		"llm": map[string]any{
			"api_key":         redact(viper.GetString("llm.api_key")),
			"base_url":        viper.GetString("llm.base_url"),
			"request_timeout": durationString(viper.GetDuration("llm.request_timeout")),
		},
		"assistant": map[string]any{
			"model":              viper.GetString("assistant.model"),
			"system_prompt_set":  strings.TrimSpace(viper.GetString("assistant.system_prompt")) != "",
			"max_context_tokens": viper.GetInt("assistant.max_context_tokens"),
			"temperature":        viper.GetFloat64("assistant.temperature"),
			"task_timeout":       durationString(viper.GetDuration("assistant.task_timeout")),
		},
		"log": map[string]any{
			"format": viper.GetString("log.format"),
			"level":  viper.GetString("log.level"),
		},
	}
}

// redact keeps just enough of a secret to tell two credentials apart.
func redact(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func durationString(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.String()
}
