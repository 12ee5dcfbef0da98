package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newStoreCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Read the bot's key-value store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "keys [prefix]",
		Short: "List stored keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireStore(); err != nil {
				return err
			}
			keys, err := opts.store.Keys(cmd.Context(), prefixArg(args))
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), keys, func(w io.Writer) {
				for _, k := range keys {
					fmt.Fprintln(w, k)
				}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dump [prefix]",
		Short: "Print stored values as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireStore(); err != nil {
				return err
			}
			ctx := cmd.Context()
			keys, err := opts.store.Keys(ctx, prefixArg(args))
			if err != nil {
				return err
			}
			out := make(map[string]json.RawMessage, len(keys))
			for _, k := range keys {
				var v json.RawMessage
				if _, err := opts.store.Load(ctx, k, &v); err != nil {
					return fmt.Errorf("load %s: %w", k, err)
				}
				out[k] = v
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	})

	return cmd
}

func prefixArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
