// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/normalize"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// AuditReport summarizes abstract coverage across the index.
// WithAbstract + WithoutAbstract always equals Total.
type AuditReport struct {
	Total           int      `json:"total" yaml:"total"`
	WithAbstract    int      `json:"with_abstract" yaml:"with_abstract"`
	WithoutAbstract int      `json:"without_abstract" yaml:"without_abstract"`
	MissingIDs      []string `json:"missing_ids" yaml:"missing_ids"`
}

// HasAbstract reports whether r carries an abstract, either in metadata or
// as the middle part of its document. Documents are title, abstract, url
// joined by the record separator with empty parts dropped, so the abstract
// is present when there are three or more parts ending in a url, or two or
// more parts whose second is not a url.
func HasAbstract(r types.IndexRecord) bool {
	if r.Metadata.String(types.MetaAbstract) != "" {
		return true
	}

	var parts []string
	for _, p := range strings.Split(r.Document, normalize.RecordSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	switch {
	case len(parts) >= 3 && isURL(parts[len(parts)-1]):
		return true
	case len(parts) >= 2 && !isURL(parts[1]):
		return true
	default:
		return false
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Audit scans every record and counts abstract coverage. MissingIDs holds
// up to sampleSize ids lacking an abstract, in insertion order.
func (s *Store) Audit(ctx context.Context, sampleSize int) (AuditReport, error) {
	report := AuditReport{MissingIDs: []string{}}
	sampleSize = max(0, sampleSize)

	err := s.each(ctx, func(r types.IndexRecord) bool {
		report.Total++
		if HasAbstract(r) {
			report.WithAbstract++
			return true
		}
		if len(report.MissingIDs) < sampleSize {
			report.MissingIDs = append(report.MissingIDs, r.ID)
		}
		return true
	})
	if err != nil {
		return AuditReport{MissingIDs: []string{}}, err
	}
	report.WithoutAbstract = report.Total - report.WithAbstract
	return report, nil
}

// FindMissingAbstractIDs returns up to maxIDs ids lacking an abstract, in
// insertion order. maxIDs is floored at 1. The scan stops at the cap.
func (s *Store) FindMissingAbstractIDs(ctx context.Context, maxIDs int) ([]string, error) {
	limit := max(1, maxIDs)
	ids := []string{}
	err := s.each(ctx, func(r types.IndexRecord) bool {
		if !HasAbstract(r) {
			ids = append(ids, r.ID)
		}
		return len(ids) < limit
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
