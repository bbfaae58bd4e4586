// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts provider papers into index records and removes
// duplicate papers from result lists.
package normalize

import (
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// RecordSeparator joins the parts of an index document.
const RecordSeparator = "\n\n"

// SourceName is stored in every record's source metadata field.
const SourceName = "Semantic Scholar"

// Normalize returns the index document and metadata for p. Topic is recorded
// in metadata when non-empty.
func Normalize(p types.Paper, topic string) (string, types.Metadata) {
	return Document(p), Metadata(p, topic)
}

// Document joins the non-empty title, abstract, and url of p with
// RecordSeparator. A paper with none of the three yields "".
func Document(p types.Paper) string {
	var parts []string
	for _, s := range []string{p.Title, p.Abstract, p.URL} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, RecordSeparator)
}

// Metadata returns the structured fields of p. Absent values are omitted
// rather than stored as nil or "".
func Metadata(p types.Paper, topic string) types.Metadata {
	m := types.Metadata{}
	putString(m, types.MetaPaperID, p.ID)
	putString(m, types.MetaTitle, p.Title)
	putString(m, types.MetaURL, p.URL)
	putString(m, types.MetaAbstract, p.Abstract)
	putString(m, types.MetaAuthors, joinAuthors(p.Authors))
	putInt(m, types.MetaYear, p.Year)
	putString(m, types.MetaVenue, p.Venue)
	putInt(m, types.MetaReferenceCount, p.ReferenceCount)
	putInt(m, types.MetaCitationCount, p.CitationCount)
	putString(m, types.MetaTopic, topic)
	putString(m, types.MetaSource, SourceName)
	return m
}

// Record builds the IndexRecord for p.
func Record(p types.Paper, topic string) types.IndexRecord {
	doc, meta := Normalize(p, topic)
	return types.IndexRecord{ID: p.ID, Document: doc, Metadata: meta}
}

func putString(m types.Metadata, key, v string) {
	if v = strings.TrimSpace(v); v != "" {
		m[key] = v
	}
}

func putInt(m types.Metadata, key string, v *int) {
	if v != nil {
		m[key] = *v
	}
}

func joinAuthors(authors []string) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	return strings.Join(names, ", ")
}
