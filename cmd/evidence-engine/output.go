// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pdiddy/evidence-engine/internal/generate"
	"github.com/pdiddy/evidence-engine/internal/index"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printHits lists ranked records as numbered title, year, and url lines.
func printHits(w io.Writer, hits []index.Hit) {
	for i, h := range hits {
		title := h.Metadata.String(types.MetaTitle)
		if title == "" {
			title = types.UntitledPlaceholder
		}
		if year := h.Metadata.Display(types.MetaYear); year != "" {
			fmt.Fprintf(w, "%d. %s (%s)\n", i+1, title, year)
		} else {
			fmt.Fprintf(w, "%d. %s\n", i+1, title)
		}
		fmt.Fprintf(w, "   %s\n", h.Metadata.String(types.MetaURL))
	}
}

func evidencePapers(hits []index.Hit) []generate.EvidencePaper {
	out := make([]generate.EvidencePaper, len(hits))
	for i, h := range hits {
		out[i] = generate.EvidenceFromMetadata(h.Metadata)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
