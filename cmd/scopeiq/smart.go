package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/scopeiq/internal/searcher"
)

type smartOptions struct {
	project      string
	document     string
	limit        int
	commonWeight float64
	hybrid       bool
	json         bool
}

func newSmartCmd(root *rootOptions) *cobra.Command {
	opts := &smartOptions{}

	cmd := &cobra.Command{
		Use:   "smart <query>",
		Short: "Classify a query and route it to the matching partitions",
		Long: `Classifies the query as generic or project-specific. Generic-only queries
search the common partitions, project-only queries search the project
partition, and everything else fuses both sides. --hybrid skips routing and
always fuses.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmart(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "project ID (required)")
	cmd.Flags().StringVarP(&opts.document, "doc", "d", "", "restrict project results to one document")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().Float64Var(&opts.commonWeight, "common-weight", searcher.DefaultCommonWeight, "share of hybrid results drawn from common partitions")
	cmd.Flags().BoolVar(&opts.hybrid, "hybrid", false, "always fuse project and common results")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output results as JSON")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func runSmart(cmd *cobra.Command, root *rootOptions, opts *smartOptions, query string) error {
	req := searcher.SmartRequest{
		ProjectID:  opts.project,
		Query:      query,
		TopK:       opts.limit,
		DocumentID: opts.document,
	}
	if cmd.Flags().Changed("common-weight") {
		w := opts.commonWeight
		req.CommonWeight = &w
	}

	c, err := openComponents(root)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	run := c.engine.SmartQuery
	if opts.hybrid {
		run = c.engine.HybridQuery
	}
	resp, err := run(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if opts.json {
		out := map[string]any{
			"results":     resultsView(resp.Results),
			"strategy":    resp.Strategy,
			"project_k":   resp.ProjectK,
			"common_k":    resp.CommonK,
			"duration_ms": resp.Duration.Milliseconds(),
		}
		if resp.Intent != nil {
			out["intent"] = intentView(*resp.Intent)
		}
		return printJSON(cmd, out)
	}

	printResults(cmd, resp.Strategy, resp.Results)
	return nil
}
