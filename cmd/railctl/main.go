// Command railctl is the operator CLI for railinspect: migrations,
// reconciliation, rendering and signup approval against the database.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command.
type options struct {
	databaseURL string
	verbose     bool

	logger *slog.Logger
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr, os.Getenv).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer, getenv func(string) string) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "railctl",
		Short: "Operate a railinspect deployment",
		Long: `railctl runs maintenance tasks against the railinspect database.

The connection string is read from --database-url or DATABASE_URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", getenv("DATABASE_URL"), "PostgreSQL connection string")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newMigrateCmd(opts),
		newReconcileCmd(opts),
		newRenderCmd(opts),
		newApproveUserCmd(opts),
		newPruneAuditCmd(opts),
	)
	return rootCmd
}

// openPool connects to the database named by the flags.
func (o *options) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if o.databaseURL == "" {
		return nil, fmt.Errorf("no database configured: set --database-url or DATABASE_URL")
	}
	pool, err := pgxpool.New(ctx, o.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
