package main

import (
	"fmt"

	"github.com/spf13/cobra"

	t "archigen/internal/types"
)

func newCountriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List the supported jurisdictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def := t.DefaultRequirements().Country
			for _, c := range t.Countries {
				if c == def {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", c, styleMuted.Render("(default)"))
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}
