package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/config"
	"github.com/pdiddy/evidence-engine/internal/generate"
	"github.com/pdiddy/evidence-engine/internal/index"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the evidence index, filling it from Semantic Scholar when sparse",
	Long: `Search queries the local index for papers matching the query. When
fewer than half of the requested results come back, it searches Semantic
Scholar for the query, indexes what it finds under the query as topic,
and searches the index again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	k, _ := cmd.Flags().GetInt("k")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	query := strings.Join(args, " ")

	eng, err := openEngine(logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.store.Query(ctx, query, k)
	if err != nil {
		return err
	}

	if res.Len() < max(1, k/2) {
		if res, err = fillSparse(ctx, eng, query, k, res); err != nil {
			return err
		}
	}

	if jsonOutput {
		return writeJSON(os.Stdout, res.Hits())
	}
	if res.Len() == 0 {
		fmt.Println("No results. Try a more specific query.")
		return nil
	}
	printHits(os.Stdout, res.Hits())
	return nil
}

// fillSparse indexes provider results for query and queries again. Provider
// failures, including a missing key, are logged and the current hits kept.
func fillSparse(ctx context.Context, eng *engine, query string, k int, res index.QueryResult) (index.QueryResult, error) {
	if err := eng.withProvider(); err != nil {
		logger.Warn().Err(err).Msg("index is sparse and the provider is unavailable")
		return res, nil
	}
	n, err := eng.syncer.IndexTopic(ctx, query, appConfig.Scholar.SearchLimit)
	if err != nil {
		logger.Warn().Err(err).Str("query", query).Msg("provider search failed")
		return res, nil
	}
	logger.Info().Int("indexed", n).Msg("index was sparse, added provider results")
	return eng.store.Query(ctx, query, k)
}

var sumCmd = &cobra.Command{
	Use:   "sum <query or paperId>",
	Short: "Summarize indexed papers for a query, or one paper by id",
	Long: `Sum asks the text generator for a literature summary. A single argument
without spaces is treated as a Semantic Scholar paper id and indexed if
needed; anything else is a query against the index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSum,
}

func runSum(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	k, _ := cmd.Flags().GetInt("k")

	if err := config.RequireGeneratorKey(appConfig); err != nil {
		return err
	}
	gen, err := newGenerator(ctx)
	if err != nil {
		return err
	}

	eng, err := openEngine(logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	query := strings.Join(args, " ")
	var hits []index.Hit
	if len(args) == 1 && !strings.ContainsAny(args[0], " \t") {
		if err := eng.withProvider(); err != nil {
			return err
		}
		if _, err := eng.syncer.EnsureIndexed(ctx, args); err != nil {
			return err
		}
		got, err := eng.store.Get(ctx, args)
		if err != nil {
			return err
		}
		for _, r := range got.Records() {
			hits = append(hits, index.Hit{ID: r.ID, Document: r.Document, Metadata: r.Metadata})
		}
	} else {
		res, err := eng.store.Query(ctx, query, k)
		if err != nil {
			return err
		}
		hits = res.Hits()
	}

	prompt, err := generate.SummaryPrompt(query, evidencePapers(hits))
	if err != nil {
		return err
	}
	opts := generateOptions()
	opts.Temperature = 0.2
	text, err := gen.Generate(ctx, prompt, opts)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func init() {
	searchCmd.Flags().Int("k", 5, "number of results")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	sumCmd.Flags().Int("k", 5, "number of papers to summarize for a query")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(sumCmd)
}
