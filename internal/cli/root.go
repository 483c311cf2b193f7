// Package cli defines the Cobra command surface of the ellie client.
// This file holds the root command, which runs the interactive chat
// loop, and the shared wiring used by every subcommand.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/elliehq/ellie/internal/api"
	"github.com/elliehq/ellie/internal/config"
	"github.com/elliehq/ellie/internal/service/conversation"
	"github.com/elliehq/ellie/internal/store"
)

var (
	verbose bool
	version = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "ellie",
	Short: "Chat with Ellie from the terminal",
	Long: `Ellie is a conversational assistant. Running the command without a
subcommand starts an interactive chat; your session and login survive
restarts, so a conversation picks up where it left off.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), svc)
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log client activity to stderr")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// newService builds an initialized conversation service from the
// environment. Every subcommand goes through here so they all share the
// same configuration, durable state and startup sequence.
func newService(ctx context.Context) (*conversation.Service, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	st, err := store.New(cfg.Client.StateDir)
	if err != nil {
		return nil, fmt.Errorf("opening state directory: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	client := api.New(cfg.Client.BaseURL, cfg.Client.Timeout)
	svc := conversation.New(client, st, logger)

	if err := svc.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("cannot reach the gateway at %s: %w", cfg.Client.BaseURL, err)
	}
	return svc, nil
}
