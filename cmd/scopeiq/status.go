package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show partition contents and database size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openComponents(root)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			status, err := c.router.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}

			if asJSON {
				return printJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Schema %s, build mode %s, %.2f MB\n", status.SchemaVersion, status.BuildMode, status.SizeMB)
			if len(status.Namespaces) == 0 {
				fmt.Fprintln(out, "No partitions.")
				return nil
			}
			for _, ns := range status.Namespaces {
				fmt.Fprintf(out, "  %-40s %6d vectors %4d documents\n", ns.Namespace, ns.Vectors, ns.Documents)
			}
			fmt.Fprintf(out, "Total: %d vectors\n", status.TotalVectors)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output status as JSON")
	return cmd
}
