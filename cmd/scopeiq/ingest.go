package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/scopeiq/internal/indexer"
	"github.com/dshills/scopeiq/internal/partition"
)

type ingestOptions struct {
	project  string
	category string
	id       string
	name     string
	force    bool
	json     bool
}

func newIngestCmd(root *rootOptions) *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest extracted document text",
		Long: `Chunks, embeds and stores plain-text documents in a project partition
(--project) or a shared reference partition (--category).

Each file becomes one document whose ID defaults to the file name without its
extension. A document whose content is unchanged since its last successful
ingestion is skipped unless --force is given.`,
		Example: `  scopeiq ingest --project tower-a specs/division-08.txt
  scopeiq ingest --category building_codes ibc-2021-ch10.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "target project ID")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "target common category ("+categoryList()+")")
	cmd.Flags().StringVar(&opts.id, "id", "", "document ID (single file only)")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name (single file only)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "re-ingest unchanged documents")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output the report as JSON")
	cmd.MarkFlagsMutuallyExclusive("project", "category")
	cmd.MarkFlagsOneRequired("project", "category")
	return cmd
}

func runIngest(cmd *cobra.Command, root *rootOptions, opts *ingestOptions, files []string) error {
	if len(files) > 1 && (opts.id != "" || opts.name != "") {
		return errors.New("--id and --name require exactly one file")
	}

	target, err := opts.partition()
	if err != nil {
		return err
	}

	docs := make([]indexer.Document, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		base := filepath.Base(path)
		doc := indexer.Document{
			ID:        strings.TrimSuffix(base, filepath.Ext(base)),
			Name:      base,
			Content:   string(data),
			Partition: target,
			Extra:     map[string]string{"source_file": base},
		}
		if opts.id != "" {
			doc.ID = opts.id
		}
		if opts.name != "" {
			doc.Name = opts.name
		}
		docs = append(docs, doc)
	}

	c, err := openComponents(root)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	summary, err := c.indexer.IngestDocuments(cmd.Context(), docs, &indexer.Options{Force: opts.force})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if opts.json {
		if err := printJSON(cmd, summaryView(summary)); err != nil {
			return err
		}
	} else {
		printSummary(cmd, summary)
	}

	if len(summary.Errors) > 0 {
		return fmt.Errorf("%d of %d documents failed", len(summary.Errors), len(docs))
	}
	return nil
}

func (o *ingestOptions) partition() (partition.Partition, error) {
	if o.category != "" {
		category, err := partition.ParseCategory(o.category)
		if err != nil {
			return partition.Partition{}, err
		}
		return partition.ForCategory(category)
	}
	return partition.ForProject(o.project)
}

func categoryList() string {
	names := make([]string, 0, len(partition.Categories()))
	for _, c := range partition.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func printSummary(cmd *cobra.Command, summary *indexer.Summary) {
	out := cmd.OutOrStdout()
	for _, r := range summary.Reports {
		fmt.Fprintf(out, "%s -> %s: %d chunks, %d succeeded, %d skipped, %d failed (%s)\n",
			r.DocumentID, r.Namespace, r.Total, r.Succeeded, r.Skipped, r.Failed, r.Duration.Round(time.Millisecond))
		for _, f := range r.Failures {
			fmt.Fprintf(out, "  chunk %d (%s): %v\n", f.ChunkIndex, f.ChunkID, f.Err)
		}
	}
	for _, e := range summary.Errors {
		fmt.Fprintf(out, "%s: %v\n", e.DocumentID, e.Err)
	}
}
