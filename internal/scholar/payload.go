// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Semantic Scholar API JSON structures. Every field is optional and read
// through json.RawMessage, so a value of the wrong shape degrades to a zero
// field. Search records are decoded one at a time; a record that is not an
// object is dropped and the rest of the page is kept.
type searchResponse struct {
	Total  flexInt           `json:"total"`
	Offset flexInt           `json:"offset"`
	Data   []json.RawMessage `json:"data"`
}

type rawPaper struct {
	PaperID          string
	LegacyPaperID    string
	Title            string
	Abstract         string
	URL              string
	Year             flexInt
	Venue            string
	PublicationVenue json.RawMessage
	Authors          []json.RawMessage
	ReferenceCount   flexInt
	CitationCount    flexInt
	OpenAccessPDF    string
	References       []rawReference
}

// UnmarshalJSON fails only when b is not a JSON object.
func (r *rawPaper) UnmarshalJSON(b []byte) error {
	var f map[string]json.RawMessage
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = rawPaper{
		PaperID:          stringField(f["paperId"]),
		LegacyPaperID:    stringField(f["paper_id"]),
		Title:            stringField(f["title"]),
		Abstract:         stringField(f["abstract"]),
		URL:              stringField(f["url"]),
		Year:             intField(f["year"]),
		Venue:            stringField(f["venue"]),
		PublicationVenue: f["publicationVenue"],
		Authors:          listField(f["authors"]),
		ReferenceCount:   intField(f["referenceCount"]),
		CitationCount:    intField(f["citationCount"]),
		OpenAccessPDF:    urlField(f["openAccessPdf"]),
	}
	for _, item := range listField(f["references"]) {
		var ref rawReference
		if json.Unmarshal(item, &ref) == nil {
			r.References = append(r.References, ref)
		}
	}
	return nil
}

type rawReference struct {
	PaperID string
	Title   string
	URL     string
	Year    flexInt
}

func (r *rawReference) UnmarshalJSON(b []byte) error {
	var f map[string]json.RawMessage
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = rawReference{
		PaperID: stringField(f["paperId"]),
		Title:   stringField(f["title"]),
		URL:     stringField(f["url"]),
		Year:    intField(f["year"]),
	}
	return nil
}

// decodePapers decodes each record on its own and reports how many were
// skipped because they were not objects.
func decodePapers(data []json.RawMessage) (papers []types.Paper, skipped int) {
	papers = make([]types.Paper, 0, len(data))
	for _, raw := range data {
		var rp rawPaper
		if err := json.Unmarshal(raw, &rp); err != nil {
			skipped++
			continue
		}
		papers = append(papers, rp.toPaper())
	}
	return papers, skipped
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func intField(raw json.RawMessage) flexInt {
	var f flexInt
	if len(raw) > 0 {
		f.UnmarshalJSON(raw)
	}
	return f
}

func listField(raw json.RawMessage) []json.RawMessage {
	var list []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &list) != nil {
		return nil
	}
	return list
}

// urlField reads openAccessPdf, an object with a url field or a bare string.
func urlField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj struct {
		URL json.RawMessage `json:"url"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return stringField(obj.URL)
	}
	return stringField(raw)
}

// flexInt accepts a JSON number, a numeric string, or null.
type flexInt struct {
	v *int
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var n json.Number
	if b[0] == '"' {
		var s string
		if json.Unmarshal(b, &s) != nil {
			return nil
		}
		n = json.Number(strings.TrimSpace(s))
	} else {
		n = json.Number(b)
	}
	if i, err := strconv.Atoi(n.String()); err == nil {
		f.v = &i
		return nil
	}
	if fl, err := n.Float64(); err == nil && fl == float64(int(fl)) {
		i := int(fl)
		f.v = &i
	}
	return nil
}

// toPaper converts the wire form into a types.Paper.
func (r rawPaper) toPaper() types.Paper {
	p := types.Paper{
		ID:             firstNonEmpty(r.PaperID, r.LegacyPaperID),
		Title:          strings.TrimSpace(r.Title),
		Abstract:       strings.TrimSpace(r.Abstract),
		Year:           r.Year.v,
		Venue:          firstNonEmpty(venueName(r.PublicationVenue), r.Venue),
		Authors:        authorNames(r.Authors),
		ReferenceCount: r.ReferenceCount.v,
		CitationCount:  r.CitationCount.v,
		URL:            strings.TrimSpace(r.URL),
	}
	if p.URL == "" {
		p.URL = strings.TrimSpace(r.OpenAccessPDF)
	}
	for _, ref := range r.References {
		p.References = append(p.References, types.Reference{
			ID:    strings.TrimSpace(ref.PaperID),
			Title: strings.TrimSpace(ref.Title),
			URL:   strings.TrimSpace(ref.URL),
			Year:  ref.Year.v,
		})
	}
	return p
}

// venueName reads publicationVenue, which is an object with name or
// displayName on most endpoints and a bare string on some.
func venueName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) == nil {
		return firstNonEmpty(stringField(obj["name"]), stringField(obj["displayName"]))
	}
	return strings.TrimSpace(stringField(raw))
}

// authorNames accepts author objects with a name field or plain strings.
func authorNames(raw []json.RawMessage) []string {
	var names []string
	for _, a := range raw {
		var obj map[string]json.RawMessage
		var name string
		if json.Unmarshal(a, &obj) == nil {
			name = stringField(obj["name"])
		} else {
			name = stringField(a)
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
