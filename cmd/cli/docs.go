package main

import (
	"fmt"
	"os"

	"guildkit/internal/command"
	"guildkit/internal/commands/core"
	"guildkit/internal/docs"
	"guildkit/internal/ledger"

	"github.com/spf13/cobra"
)

func newDocsCommand() *cobra.Command {
	var tmplPath, prefix string

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Print a markdown reference of the built-in commands",
		Args:  cobra.NoArgs,
		// Needs neither configuration nor storage.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var tmpl string
			if tmplPath != "" {
				b, err := os.ReadFile(tmplPath)
				if err != nil {
					return fmt.Errorf("read template: %w", err)
				}
				tmpl = string(b)
			}
			reg := command.NewRegistry()
			if err := reg.RegisterAll(core.Commands(reg, ledger.New(nil, nil))...); err != nil {
				return err
			}
			return docs.Render(cmd.OutOrStdout(), tmpl, reg.All(), prefix)
		},
	}
	cmd.Flags().StringVar(&tmplPath, "template", "", "text/template file with a {{ .CommandSections }} placeholder")
	cmd.Flags().StringVar(&prefix, "prefix", ".", "prefix shown in usage lines")
	return cmd
}
