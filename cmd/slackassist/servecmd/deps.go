package servecmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// Dependencies carries the wiring the root command owns, so this package
// stays testable without viper globals.
type Dependencies struct {
	LoggerFromViper func() (*slog.Logger, error)
}

var deps Dependencies

func NewCommand(d Dependencies) *cobra.Command {
	deps = d
	return newServeCmd()
}

func loggerFromViper() (*slog.Logger, error) {
	if deps.LoggerFromViper == nil {
		return nil, fmt.Errorf("LoggerFromViper dependency missing")
	}
	return deps.LoggerFromViper()
}
