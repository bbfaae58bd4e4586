// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/config"
	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/internal/generate"
	"github.com/pdiddy/evidence-engine/internal/index"
	"github.com/pdiddy/evidence-engine/internal/logging"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var factPaperCmd = &cobra.Command{
	Use:   "factpaper <paperId or title>",
	Short: "Extract the main claims of one paper and fact-check each",
	Long: `Factpaper resolves a paper by id, or by querying the index with a title,
asks the text generator for up to three core claims and a one-sentence
intent, gathers evidence from the paper's references, and produces a
verdict for every claim.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFactPaper,
}

// claimCheck is one claim and the verdict reached for it.
type claimCheck struct {
	Claim    string            `json:"claim"`
	Ranked   []index.Hit       `json:"ranked"`
	Verdict  *generate.Verdict `json:"verdict,omitempty"`
	Response string            `json:"response"`
}

// paperReport is the result of checking one paper's claims.
type paperReport struct {
	RequestID string       `json:"request_id"`
	PaperID   string       `json:"paper_id"`
	Title     string       `json:"title"`
	Year      string       `json:"year,omitempty"`
	URL       string       `json:"url,omitempty"`
	Intent    string       `json:"intent,omitempty"`
	Evidence  []string     `json:"evidence"`
	Checks    []claimCheck `json:"checks"`
}

func runFactPaper(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	target := strings.TrimSpace(strings.Join(args, " "))
	k, _ := cmd.Flags().GetInt("k")
	if k <= 0 {
		k = appConfig.Evidence.RankK
	}
	maxRefs, _ := cmd.Flags().GetInt("max-refs")
	if maxRefs <= 0 {
		maxRefs = appConfig.Evidence.MaxRefs
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if err := config.RequireGeneratorKey(appConfig); err != nil {
		return err
	}
	gen, err := newGenerator(ctx)
	if err != nil {
		return err
	}

	requestID := uuid.NewString()
	log := logging.WithRequest(logger, requestID, "factpaper")
	eng, err := openEngine(log)
	if err != nil {
		return err
	}
	defer eng.Close()
	if err := eng.withProvider(); err != nil {
		return err
	}

	rec, found, err := resolvePaper(ctx, eng, target)
	if err != nil {
		return err
	}
	if !found {
		fmt.Println("Paper not found in the index. Try a more specific title.")
		return nil
	}

	report, err := checkPaper(ctx, gen, eng.expander(), eng.ranker(), rec, k, maxRefs)
	if err != nil {
		return err
	}
	report.RequestID = requestID
	if len(report.Checks) == 0 {
		fmt.Println("No extractable claims from the paper's abstract.")
		return nil
	}
	if jsonOutput {
		return writeJSON(os.Stdout, report)
	}
	printPaperReport(os.Stdout, report)
	return nil
}

// resolvePaper finds the index record for an id or a title query. An id
// that is not yet indexed is fetched first.
func resolvePaper(ctx context.Context, eng *engine, target string) (types.IndexRecord, bool, error) {
	id := target
	if strings.ContainsAny(target, " \t") {
		res, err := eng.store.Query(ctx, target, 1)
		if err != nil {
			return types.IndexRecord{}, false, err
		}
		if res.Len() == 0 {
			return types.IndexRecord{}, false, nil
		}
		id = res.IDs[0][0]
	} else if _, err := eng.syncer.EnsureIndexed(ctx, []string{id}); err != nil {
		eng.log.Warn().Err(err).Str("paper_id", id).Msg("indexing paper failed")
	}

	got, err := eng.store.Get(ctx, []string{id})
	if err != nil {
		return types.IndexRecord{}, false, err
	}
	records := got.Records()
	if len(records) == 0 {
		return types.IndexRecord{}, false, nil
	}
	return records[0], true, nil
}

// checkPaper extracts claims and intent from rec, expands evidence from
// its references, and judges every claim. Checks is empty when the
// generator found no claims; expansion is skipped in that case.
func checkPaper(ctx context.Context, gen generate.Generator, exp *evidence.Expander, rk *evidence.Ranker, rec types.IndexRecord, k, maxRefs int) (paperReport, error) {
	paper := generate.EvidenceFromMetadata(rec.Metadata)
	if paper.PaperID == "" {
		paper.PaperID = rec.ID
	}
	report := paperReport{
		PaperID:  rec.ID,
		Title:    paper.Title,
		Year:     rec.Metadata.Display(types.MetaYear),
		URL:      paper.URL,
		Evidence: []string{},
		Checks:   []claimCheck{},
	}

	claims, err := generate.ExtractClaims(ctx, gen, paper, rec.Document, generate.MaxClaims)
	if err != nil {
		return report, err
	}
	if len(claims) == 0 {
		return report, nil
	}
	if report.Intent, err = generate.ExtractIntent(ctx, gen, paper, rec.Document); err != nil {
		return report, err
	}

	if report.Evidence, err = exp.Expand(ctx, []string{rec.ID}, maxRefs); err != nil {
		return report, err
	}

	for _, claim := range claims {
		ranked, err := rk.Rank(ctx, claim, report.Evidence, k)
		if err != nil {
			return report, err
		}
		check := claimCheck{Claim: claim, Ranked: ranked.Hits()}
		prompt, err := generate.VerdictPrompt(claim, evidencePapers(check.Ranked))
		if err != nil {
			return report, err
		}
		if check.Response, err = gen.Generate(ctx, prompt, generateOptions()); err != nil {
			return report, err
		}
		if v, ok := generate.ParseVerdict(check.Response); ok {
			check.Verdict = &v
		}
		report.Checks = append(report.Checks, check)
	}
	return report, nil
}

func printPaperReport(w io.Writer, r paperReport) {
	if r.Year != "" {
		fmt.Fprintf(w, "Paper: %s (%s)\n", r.Title, r.Year)
	} else {
		fmt.Fprintf(w, "Paper: %s\n", r.Title)
	}
	if r.URL != "" {
		fmt.Fprintf(w, "Link: %s\n", r.URL)
	}
	if r.Intent != "" {
		fmt.Fprintf(w, "Intent: %s\n", r.Intent)
	}
	fmt.Fprintln(w, "Claims:")
	for i, c := range r.Checks {
		fmt.Fprintf(w, "%d. %s\n", i+1, c.Claim)
	}
	for _, c := range r.Checks {
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(c.Response))
	}
}

func init() {
	factPaperCmd.Flags().Int("k", 0, "number of ranked evidence records per claim (0 = config default)")
	factPaperCmd.Flags().Int("max-refs", 0, "reference budget feeding the hop caps (0 = config default)")
	factPaperCmd.Flags().Bool("json", false, "output the full report as JSON")

	rootCmd.AddCommand(factPaperCmd)
}
