// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// QueryResult holds ranked matches grouped per query text. The store runs
// one query text at a time, so each field has exactly one group.
type QueryResult struct {
	IDs       [][]string         `json:"ids" yaml:"ids"`
	Distances [][]float64        `json:"distances" yaml:"distances"`
	Metadatas [][]types.Metadata `json:"metadatas" yaml:"metadatas"`
	Documents [][]string         `json:"documents" yaml:"documents"`
}

// EmptyQueryResult returns a result with one empty group per field.
func EmptyQueryResult() QueryResult {
	return QueryResult{
		IDs:       [][]string{{}},
		Distances: [][]float64{{}},
		Metadatas: [][]types.Metadata{{}},
		Documents: [][]string{{}},
	}
}

// Hit is one ranked match.
type Hit struct {
	ID       string         `json:"id" yaml:"id"`
	Distance float64        `json:"distance" yaml:"distance"`
	Document string         `json:"document" yaml:"document"`
	Metadata types.Metadata `json:"metadata" yaml:"metadata"`
}

// Hits flattens the first group into a slice.
func (r QueryResult) Hits() []Hit {
	if len(r.IDs) == 0 {
		return nil
	}
	hits := make([]Hit, len(r.IDs[0]))
	for i, id := range r.IDs[0] {
		hits[i] = Hit{ID: id}
		if len(r.Distances) > 0 && i < len(r.Distances[0]) {
			hits[i].Distance = r.Distances[0][i]
		}
		if len(r.Documents) > 0 && i < len(r.Documents[0]) {
			hits[i].Document = r.Documents[0][i]
		}
		if len(r.Metadatas) > 0 && i < len(r.Metadatas[0]) {
			hits[i].Metadata = r.Metadatas[0][i]
		}
	}
	return hits
}

// Len returns the number of matches in the first group.
func (r QueryResult) Len() int {
	if len(r.IDs) == 0 {
		return 0
	}
	return len(r.IDs[0])
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// matchExpr turns free text into an FTS5 expression that matches any of
// its terms. Each term is quoted so FTS operators in user text are inert.
func matchExpr(text string) string {
	seen := map[string]bool{}
	var terms []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, `"`+tok+`"`)
	}
	return strings.Join(terms, " OR ")
}

// Query returns up to k records nearest to text, closest first. Distance is
// 1/(1+s) for BM25 relevance s, so it falls in (0, 1] and shrinks as
// relevance grows. Blank text returns EmptyQueryResult without reading the
// store. A non-positive k uses the configured default.
func (s *Store) Query(ctx context.Context, text string, k int) (QueryResult, error) {
	expr := matchExpr(text)
	if expr == "" {
		return EmptyQueryResult(), nil
	}
	if k <= 0 {
		k = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.document, r.metadata, bm25(records_fts) AS score
		FROM records_fts
		JOIN records r ON r.rowid = records_fts.rowid
		WHERE records_fts MATCH ?
		ORDER BY score
		LIMIT ?`, expr, k)
	if err != nil {
		return QueryResult{}, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	res := EmptyQueryResult()
	for rows.Next() {
		var (
			id, doc, metaJSON string
			score             float64
		)
		if err := rows.Scan(&id, &doc, &metaJSON, &score); err != nil {
			return QueryResult{}, fmt.Errorf("scanning query row: %w", err)
		}
		res.IDs[0] = append(res.IDs[0], id)
		res.Documents[0] = append(res.Documents[0], doc)
		res.Metadatas[0] = append(res.Metadatas[0], decodeMetadata(metaJSON))
		res.Distances[0] = append(res.Distances[0], 1/(1+max(0, -score)))
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("iterating query rows: %w", err)
	}
	return res, nil
}

// GetResult holds records fetched by id.
type GetResult struct {
	IDs       []string         `json:"ids" yaml:"ids"`
	Documents []string         `json:"documents" yaml:"documents"`
	Metadatas []types.Metadata `json:"metadatas" yaml:"metadatas"`
}

// Records zips the result into IndexRecords.
func (g GetResult) Records() []types.IndexRecord {
	out := make([]types.IndexRecord, len(g.IDs))
	for i, id := range g.IDs {
		out[i] = types.IndexRecord{ID: id, Document: g.Documents[i], Metadata: g.Metadatas[i]}
	}
	return out
}

// Get returns the records for ids in request order. Unknown ids are
// omitted. Empty input returns an empty result without reading the store.
func (s *Store) Get(ctx context.Context, ids []string) (GetResult, error) {
	res := GetResult{IDs: []string{}, Documents: []string{}, Metadatas: []types.Metadata{}}

	var want []string
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		want = append(want, id)
	}
	if len(want) == 0 {
		return res, nil
	}

	found := make(map[string]types.IndexRecord, len(want))
	for start := 0; start < len(want); start += getChunkSize {
		chunk := want[start:min(start+getChunkSize, len(want))]
		if err := s.getChunk(ctx, chunk, found); err != nil {
			return GetResult{}, err
		}
	}

	for _, id := range want {
		r, ok := found[id]
		if !ok {
			continue
		}
		res.IDs = append(res.IDs, r.ID)
		res.Documents = append(res.Documents, r.Document)
		res.Metadatas = append(res.Metadatas, r.Metadata)
	}
	return res, nil
}

func (s *Store) getChunk(ctx context.Context, ids []string, into map[string]types.IndexRecord) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document, metadata FROM records WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("getting records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return err
		}
		into[r.ID] = r
	}
	return rows.Err()
}

// Missing returns the ids from ids that are not in the index, in order.
func (s *Store) Missing(ctx context.Context, ids []string) ([]string, error) {
	got, err := s.Get(ctx, ids)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(got.IDs))
	for _, id := range got.IDs {
		present[id] = true
	}

	var missing []string
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || present[id] || seen[id] {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	return missing, nil
}
