// README: Root dispatch command: serve, sweep and ocr subcommands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dishbee/internal/infra"
)

// NewRootCommand builds the dispatch CLI.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dispatch",
		Short:         "Food delivery dispatch coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newOCRCmd())
	return root
}

// Execute runs the CLI; a non-nil error means a nonzero exit.
func Execute(ctx context.Context) error {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

// cliLogger is the logger for the one-shot commands, configured from the same env as serve.
func cliLogger() *zap.Logger {
	log, err := infra.NewLogger(os.Getenv("LOG_LEVEL"), envOr("LOG_ENCODING", "console"))
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
