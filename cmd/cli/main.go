package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"guildkit/internal/config"
	"guildkit/internal/logging"
	"guildkit/internal/storage"

	"github.com/spf13/cobra"
)

// rootOptions holds global flags and the state shared by subcommands.
type rootOptions struct {
	Format string
	Level  string

	cfg   *config.Config
	store *storage.Storage
}

var validFormats = []string{"text", "json"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "guildkit-cli",
		Short: "Operator tools for a guildkit bot",
		Long: `Inspect and maintain the state of a guildkit bot.

The CLI reads the same environment (and .env file) as the bot itself.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != validFormats[0] && opts.Format != validFormats[1] {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			logging.InitWriter(os.Stderr, opts.Level, true)
			cfg, err := config.New()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			kv, err := storage.Open(cmd.Context(), cfg.StorageDriver, cfg.StoragePathOrDSN())
			if err != nil {
				return err
			}
			opts.store = storage.New(kv)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.store.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Level, "log-level", "warn", "log level")

	cmd.AddCommand(newErrorsCommand(opts))
	cmd.AddCommand(newStoreCommand(opts))
	cmd.AddCommand(newSlashCommand(opts))
	cmd.AddCommand(newDocsCommand())

	return cmd
}

func (o *rootOptions) requireStore() error {
	if !o.store.Enabled() {
		return fmt.Errorf("storage driver %q keeps no data", o.cfg.StorageDriver)
	}
	return nil
}

// print writes v as indented JSON in json mode and calls text otherwise.
func (o *rootOptions) print(w io.Writer, v any, text func(w io.Writer)) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
