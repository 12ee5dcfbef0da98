package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"guildkit/internal/ledger"

	"github.com/spf13/cobra"
)

func newErrorsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Inspect the error ledger",
	}
	open := func() (*ledger.Ledger, error) {
		if err := opts.requireStore(); err != nil {
			return nil, err
		}
		return ledger.New(opts.store, nil), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recorded errors, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			led, err := open()
			if err != nil {
				return err
			}
			recs, err := led.List(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), recs, func(w io.Writer) {
				if len(recs) == 0 {
					fmt.Fprintln(w, "No errors recorded.")
					return
				}
				for _, r := range recs {
					name := string(r.Type)
					if r.Command != nil {
						name = r.Command.Name
					}
					fmt.Fprintf(w, "%s  %s  %-12s %s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), name, firstLine(r.Error.Message))
				}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one error record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			led, err := open()
			if err != nil {
				return err
			}
			rec, err := led.Get(cmd.Context(), args[0])
			if errors.Is(err, ledger.ErrNotFound) {
				return fmt.Errorf("no error with id %s", args[0])
			}
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), rec, func(w io.Writer) {
				fmt.Fprintf(w, "ID:      %s\nType:    %s\nCreated: %s\n", rec.ID, orDash(string(rec.Type)), rec.CreatedAt.Format("2006-01-02 15:04:05"))
				if rec.Command != nil {
					fmt.Fprintf(w, "Command: %s\n", rec.Command.Name)
				}
				if s := rec.Context; s != nil {
					fmt.Fprintf(w, "Guild:   %s (%s)\nChannel: %s (%s)\nUser:    %s (%s)\n",
						orDash(s.GuildName), orDash(s.GuildID), orDash(s.ChannelName), orDash(s.ChannelID), orDash(s.AuthorName), orDash(s.AuthorID))
					if s.Content != "" {
						fmt.Fprintf(w, "Content: %s\n", s.Content)
					}
				}
				fmt.Fprintf(w, "\n%s: %s\n", rec.Error.Name, rec.Error.Message)
				if rec.Error.Stack != "" {
					fmt.Fprintf(w, "\n%s\n", rec.Error.Stack)
				}
			})
		},
	})

	var keepMessage bool
	remove := &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove error records and their report messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			led, err := open()
			if err != nil {
				return err
			}
			for _, id := range args {
				ok, err := led.Remove(cmd.Context(), id, keepMessage)
				if err != nil {
					return fmt.Errorf("remove %s: %w", id, err)
				}
				if !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "no error with id %s\n", id)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
			}
			return nil
		},
	}
	remove.Flags().BoolVar(&keepMessage, "keep-message", true, "leave report messages in the log channel")
	cmd.AddCommand(remove)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every error record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			led, err := open()
			if err != nil {
				return err
			}
			n, err := led.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d records\n", n)
			return nil
		},
	})

	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
