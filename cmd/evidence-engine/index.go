// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/index"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultAuditSample   = 20
	defaultRehydrateMax  = 200
	rehydrateQueryResult = 50
	auditSnippetLen      = 240
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and maintain the local evidence index",
	Long: `Index commands audit abstract coverage, backfill records from Semantic
Scholar, add topics, look up records, and export the index.`,
}

var indexAuditCmd = &cobra.Command{
	Use:   "audit [N | paperId]",
	Short: "Count records with and without abstracts, or show one record",
	Long: `Audit scans the index and reports how many records carry an abstract,
listing up to N ids that do not (default 20). Given a paper id instead of a
number, it prints that record's fields and a document snippet.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndexAudit,
}

func runIndexAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, err := openEngine(logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	sample := defaultAuditSample
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return auditOne(cmd, eng, args[0])
		}
		sample = n
	}

	report, err := eng.store.Audit(ctx, sample)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, report)
}

func auditOne(cmd *cobra.Command, eng *engine, id string) error {
	got, err := eng.store.Get(cmd.Context(), []string{id})
	if err != nil {
		return err
	}
	records := got.Records()
	if len(records) == 0 {
		fmt.Println("not found")
		return nil
	}
	r := records[0]
	fmt.Printf("paperId: %s\n", r.ID)
	fmt.Printf("title: %s\n", r.Metadata.String(types.MetaTitle))
	fmt.Printf("year: %s\n", r.Metadata.Display(types.MetaYear))
	fmt.Printf("url: %s\n", r.Metadata.String(types.MetaURL))
	fmt.Printf("has_abstract_in_meta: %t\n", r.Metadata.String(types.MetaAbstract) != "")
	fmt.Printf("document_snippet: %s\n", truncate(r.Document, auditSnippetLen))
	return nil
}

var indexRehydrateCmd = &cobra.Command{
	Use:   "rehydrate [N | paperId...]",
	Short: "Refetch papers from Semantic Scholar to backfill missing abstracts",
	Long: `Rehydrate refetches papers and rewrites those that now have an abstract.

With no arguments or a number N, it backfills up to N records lacking an
abstract (default 200). With paper ids it refetches exactly those. With
--query it refetches the top index matches for the query text.`,
	RunE: runIndexRehydrate,
}

func runIndexRehydrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query, _ := cmd.Flags().GetString("query")

	eng, err := openEngine(logger)
	if err != nil {
		return err
	}
	defer eng.Close()
	if err := eng.withProvider(); err != nil {
		return err
	}

	var summary index.RehydrateSummary
	switch {
	case strings.TrimSpace(query) != "":
		res, err := eng.store.Query(ctx, query, rehydrateQueryResult)
		if err != nil {
			return err
		}
		summary, err = eng.syncer.Rehydrate(ctx, res.IDs[0])
		if err != nil {
			return err
		}
	case len(args) == 1 && isCount(args[0]):
		n, _ := strconv.Atoi(args[0])
		if summary, err = eng.syncer.RehydrateMissing(ctx, n); err != nil {
			return err
		}
	case len(args) > 0:
		if summary, err = eng.syncer.Rehydrate(ctx, args); err != nil {
			return err
		}
	default:
		if summary, err = eng.syncer.RehydrateMissing(ctx, defaultRehydrateMax); err != nil {
			return err
		}
	}

	fmt.Printf("Backfill: requested=%d fetched=%d updated=%d\n", summary.Requested, summary.Fetched, summary.Updated)
	return nil
}

func isCount(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

var indexAddCmd = &cobra.Command{
	Use:   "add <topic>",
	Short: "Search Semantic Scholar for a topic and index the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = appConfig.Scholar.SearchLimit
		}
		topic := strings.Join(args, " ")

		eng, err := openEngine(logger)
		if err != nil {
			return err
		}
		defer eng.Close()
		if err := eng.withProvider(); err != nil {
			return err
		}

		n, err := eng.syncer.IndexTopic(cmd.Context(), topic, limit)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d papers for %q\n", n, topic)
		return nil
	},
}

var indexGetCmd = &cobra.Command{
	Use:   "get <paperId>...",
	Short: "Print index records by id as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		got, err := eng.store.Get(cmd.Context(), args)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, got)
	},
}

var indexQueryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Query the index without contacting Semantic Scholar",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _ := cmd.Flags().GetInt("k")

		eng, err := openEngine(logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		res, err := eng.store.Query(cmd.Context(), strings.Join(args, " "), k)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, res)
	},
}

var indexCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of records in the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		n, err := eng.store.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every index record to a YAML or JSON file in the index directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		eng, err := openEngine(logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		path, err := eng.store.Export(cmd.Context(), format)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	indexRehydrateCmd.Flags().String("query", "", "rehydrate the top index matches for this text")
	indexAddCmd.Flags().Int("limit", 0, "maximum papers to fetch (0 = config default)")
	indexQueryCmd.Flags().Int("k", 5, "number of results")
	indexExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	indexCmd.AddCommand(indexAuditCmd)
	indexCmd.AddCommand(indexRehydrateCmd)
	indexCmd.AddCommand(indexAddCmd)
	indexCmd.AddCommand(indexGetCmd)
	indexCmd.AddCommand(indexQueryCmd)
	indexCmd.AddCommand(indexCountCmd)
	indexCmd.AddCommand(indexExportCmd)
	rootCmd.AddCommand(indexCmd)
}
