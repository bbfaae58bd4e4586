// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Key returns the identity used to collapse duplicates: the paper id when
// present, otherwise a fingerprint of the lowercased, trimmed title and url.
func Key(p types.Paper) string {
	if id := strings.TrimSpace(p.ID); id != "" {
		return id
	}
	return "fp:" + fold(p.Title) + "\x00" + fold(p.URL)
}

// Dedup returns papers with duplicates removed, keeping the first occurrence
// of each Key and preserving input order. It stops after topK unique papers;
// topK <= 0 means no cap.
func Dedup(papers []types.Paper, topK int) []types.Paper {
	seen := make(map[string]bool, len(papers))
	out := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		if topK > 0 && len(out) >= topK {
			break
		}
		k := Key(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
