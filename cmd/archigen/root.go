package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "archigen",
		Short: "ArchiGen - AI floor plan generator",
		Long: `ArchiGen turns a handful of housing requirements into a floor plan.

A run makes three model calls in order:
  1. analysis     room schedule, distribution logic and efficiency score
  2. image        a 2D architectural blueprint rendered from the analysis
  3. compliance   a review of the rendered blueprint against local bylaws

Commands:
  generate    Run the pipeline once and save the blueprint
  countries   List the supported jurisdictions
  serve       Start the RPC gateway`,
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCmd(), newCountriesCmd(), newServeCmd())
	return root
}
