package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/scopeiq/internal/classifier"
)

func newClassifyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <query>",
		Short: "Show how a query would be routed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent := classifier.Default().Classify(args[0])
			if asJSON {
				return printJSON(cmd, intentView(intent))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "generic:          %v %s\n", intent.IsGeneric, terms(intent.GenericTerms))
			fmt.Fprintf(out, "project-specific: %v %s\n", intent.IsProjectSpecific, terms(intent.ProjectTerms))
			fmt.Fprintf(out, "ambiguous:        %v\n", intent.IsAmbiguous())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output the intent as JSON")
	return cmd
}

func terms(t []string) string {
	if len(t) == 0 {
		return ""
	}
	return "(" + strings.Join(t, ", ") + ")"
}
