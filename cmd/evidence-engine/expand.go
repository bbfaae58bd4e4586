// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/evidence"
)

var expandCmd = &cobra.Command{
	Use:   "expand <seed paperId>...",
	Short: "Walk references two hops out from seed papers",
	Long: `Expand follows the references of up to five seed papers, then the
references of those references, within caps derived from --max-refs. The
papers found are indexed if missing and their ids printed in discovery
order. Seeds are never part of the result.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExpand,
}

func runExpand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	maxRefs, _ := cmd.Flags().GetInt("max-refs")
	if maxRefs <= 0 {
		maxRefs = appConfig.Evidence.MaxRefs
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	eng, err := openEngine(logger)
	if err != nil {
		return err
	}
	defer eng.Close()
	if err := eng.withProvider(); err != nil {
		return err
	}

	ids, err := eng.expander().Expand(ctx, args, maxRefs)
	if err != nil {
		return err
	}

	caps := evidence.CapsFor(maxRefs)
	if jsonOutput {
		return writeJSON(os.Stdout, struct {
			Seeds    []string      `json:"seeds"`
			Caps     evidence.Caps `json:"caps"`
			Evidence []string      `json:"evidence"`
		}{args, caps, ids})
	}

	fmt.Printf("caps: hop1=%d hop2_total=%d hop2_per_seed=%d\n", caps.Hop1, caps.Hop2Total, caps.Hop2PerSeed)
	for _, id := range ids {
		fmt.Println(id)
	}
	fmt.Printf("\n%d evidence papers\n", len(ids))
	return nil
}

func init() {
	expandCmd.Flags().Int("max-refs", 0, "reference budget feeding the hop caps (0 = config default)")
	expandCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(expandCmd)
}
