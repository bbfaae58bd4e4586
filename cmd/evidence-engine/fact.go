// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/generate"
	"github.com/pdiddy/evidence-engine/internal/index"
	"github.com/pdiddy/evidence-engine/internal/logging"
)

// seedQueryK is the number of index hits used as seeds when none are given.
const seedQueryK = 5

var factCmd = &cobra.Command{
	Use:   "fact <claim>",
	Short: "Fact-check a claim against papers gathered from the citation graph",
	Long: `Fact resolves seed papers, expands them through their references,
ranks the indexed evidence against the claim, and asks the text generator
for a verdict.

Seeds come from --context: a value without spaces is a paper id, anything
else is a query against the index. Without --context the claim itself is
queried. When no generator key is configured the ranked evidence is
printed as JSON instead of a verdict.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFact,
}

// factReport is the JSON form of a fact-check run.
type factReport struct {
	RequestID string            `json:"request_id"`
	Claim     string            `json:"claim"`
	Seeds     []string          `json:"seeds"`
	Evidence  []string          `json:"evidence"`
	Ranked    []index.Hit       `json:"ranked"`
	Verdict   *generate.Verdict `json:"verdict,omitempty"`
	Response  string            `json:"response,omitempty"`
}

func runFact(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	claim := strings.TrimSpace(strings.Join(args, " "))
	factContext, _ := cmd.Flags().GetString("context")
	k, _ := cmd.Flags().GetInt("k")
	if k <= 0 {
		k = appConfig.Evidence.RankK
	}
	maxRefs, _ := cmd.Flags().GetInt("max-refs")
	if maxRefs <= 0 {
		maxRefs = appConfig.Evidence.MaxRefs
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	report := factReport{RequestID: uuid.NewString(), Claim: claim}
	log := logging.WithRequest(logger, report.RequestID, "fact")

	eng, err := openEngine(log)
	if err != nil {
		return err
	}
	defer eng.Close()
	if err := eng.withProvider(); err != nil {
		return err
	}

	seeds, err := resolveSeeds(ctx, eng, claim, strings.TrimSpace(factContext))
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		fmt.Println("No seed papers found to fact-check this claim. Try adding --context.")
		return nil
	}
	report.Seeds = seeds
	log.Info().Strs("seeds", seeds).Msg("resolved seed papers")

	report.Evidence, err = eng.expander().Expand(ctx, seeds, maxRefs)
	if err != nil {
		return err
	}

	ranked, err := eng.ranker().Rank(ctx, claim, report.Evidence, k)
	if err != nil {
		return err
	}
	report.Ranked = ranked.Hits()

	gen, err := newGenerator(ctx)
	if err != nil {
		return err
	}
	if gen == nil {
		log.Info().Msg("no generator key configured, printing ranked evidence")
		return writeJSON(os.Stdout, report)
	}

	if err := judge(ctx, gen, log, &report); err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(os.Stdout, report)
	}
	fmt.Println(report.Response)
	return nil
}

// resolveSeeds picks the papers the evidence walk starts from.
func resolveSeeds(ctx context.Context, eng *engine, claim, factContext string) ([]string, error) {
	if factContext != "" && !strings.ContainsAny(factContext, " \t") {
		seeds := []string{factContext}
		if _, err := eng.syncer.EnsureIndexed(ctx, seeds); err != nil {
			eng.log.Warn().Err(err).Str("paper_id", factContext).Msg("indexing context paper failed")
		}
		return seeds, nil
	}

	query := claim
	if factContext != "" {
		query = factContext
	}
	res, err := eng.store.Query(ctx, query, seedQueryK)
	if err != nil {
		return nil, err
	}
	var seeds []string
	for _, id := range res.IDs[0] {
		if id != "" {
			seeds = append(seeds, id)
		}
	}
	return seeds, nil
}

func judge(ctx context.Context, gen generate.Generator, log zerolog.Logger, report *factReport) error {
	prompt, err := generate.VerdictPrompt(report.Claim, evidencePapers(report.Ranked))
	if err != nil {
		return err
	}
	text, err := gen.Generate(ctx, prompt, generateOptions())
	if err != nil {
		return err
	}
	report.Response = text
	if v, ok := generate.ParseVerdict(text); ok {
		report.Verdict = &v
		log.Info().Str("verdict", v.Label).Int("confidence", v.Confidence).Msg("fact-check complete")
	} else {
		log.Warn().Msg("generator response has no verdict line")
	}
	return nil
}

func init() {
	factCmd.Flags().String("context", "", "seed paper id, or a query selecting seed papers from the index")
	factCmd.Flags().Int("k", 0, "number of ranked evidence records (0 = config default)")
	factCmd.Flags().Int("max-refs", 0, "reference budget feeding the hop caps (0 = config default)")
	factCmd.Flags().Bool("json", false, "output the full report as JSON")

	rootCmd.AddCommand(factCmd)
}
