package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sha1n/mcp-vocab-server/internal/app"
	"github.com/sha1n/mcp-vocab-server/internal/config"
	"github.com/sha1n/mcp-vocab-server/internal/search"
	"github.com/sha1n/mcp-vocab-server/internal/vocab"
	"github.com/spf13/cobra"
)

// newService loads the vocabulary settings from the command flags and creates
// a service that logs to the command's stderr.
func newService(cmd *cobra.Command) (*vocab.Service, error) {
	settings, err := config.LoadSettingsWithFlags(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateVocabularySettings(&settings.Vocabularies); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := config.NewLogger(cmd.ErrOrStderr(), settings.LogLevel)
	return vocab.NewService(&settings.Vocabularies, vocab.WithLogger(logger))
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Sync all vocabulary sources once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if err := svc.Initialize(cmd.Context()); err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), svc.Status())
		},
	}
	app.RegisterVocabularyFlags(cmd.Flags())
	return cmd
}

// printStatus writes one line per source and fails when any source has an
// error.
func printStatus(w io.Writer, statuses []vocab.SourceStatus) error {
	failed := 0
	for _, st := range statuses {
		fmt.Fprintf(w, "%s\n", st.Source.Path)
		if st.State.Error != "" {
			failed++
			fmt.Fprintf(w, "  error: %s\n", st.State.Error)
		}
		if !st.Indexed {
			fmt.Fprintf(w, "  not indexed\n")
			continue
		}
		fmt.Fprintf(w, "  %d files, %d vocabularies, %d terms, indexed %s\n",
			st.State.FileCount, st.State.VocabularyCount, st.State.TermCount, st.State.LastIndexed.Format(time.RFC3339))
	}
	if failed > 0 {
		return fmt.Errorf("%d source(s) failed to index", failed)
	}
	return nil
}

func newSearchCmd() *cobra.Command {
	var (
		req    vocab.SearchRequest
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the existing indexes without syncing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if err := svc.Open(); err != nil {
				return err
			}

			req.Query = args[0]
			agg, err := svc.Search(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), agg)
			}
			fmt.Fprintln(cmd.OutOrStdout(), vocab.FormatResults(agg, req.Query))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Vocabulary, "vocabulary", "", "restrict results to a vocabulary IRI")
	cmd.Flags().StringVar(&req.Kind, "kind", "", "restrict results to 'term' or 'vocabulary'")
	cmd.Flags().IntVarP(&req.Limit, "limit", "n", 0, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the aggregation as JSON")
	app.RegisterVocabularyFlags(cmd.Flags())
	return cmd
}

func newAggregateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate a JSON array of raw search hits",
		Long: `Reads raw per-field search hits as a JSON array from stdin or --file,
merges them per asset and prints the ranked results with the maximum score.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open hits file: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			hits, err := search.DecodeHits(in)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), search.Aggregate(hits))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read hits from this file instead of stdin")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
