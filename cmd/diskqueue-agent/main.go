// Command diskqueue-agent is the operational front door for a disk-backed
// queue directory: it can run the admin/introspection gRPC server, or act as
// a one-shot producer or consumer probe against an existing ring.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanet-platform/diskqueue/internal/cfg"
	"github.com/yanet-platform/diskqueue/internal/telemetry"
)

// rootFlags holds the flags shared by every subcommand.
type rootFlags struct {
	ConfigPath string
}

var flags rootFlags

var rootCmd = &cobra.Command{
	Use:   "diskqueue-agent",
	Short: "Operate a disk-backed shared-memory message queue",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "Path to the YAML configuration file (required)")
	rootCmd.MarkPersistentFlagRequired("config")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newProduceCmd())
	rootCmd.AddCommand(newConsumeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var interrupted interrupted
		if errors.As(err, &interrupted) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// interrupted signals a clean shutdown via SIGINT/SIGTERM; main treats it as
// a non-error exit rather than printing a stack of "context canceled".
type interrupted struct{ os.Signal }

func (i interrupted) Error() string { return i.String() }

// waitForShutdown blocks until SIGINT/SIGTERM arrives or ctx is done,
// whichever first, returning an interrupted error in the signal case.
func waitForShutdown(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		return interrupted{Signal: s}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loadConfig parses the configured YAML file and builds its logger.
func loadConfig() (*cfg.Config, *zap.SugaredLogger, error) {
	config, err := cfg.Load(flags.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, _, err := telemetry.NewLogger(config.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	return config, log, nil
}
