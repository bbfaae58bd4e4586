// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// UntitledPlaceholder is rendered wherever a paper has an empty title.
const UntitledPlaceholder = "(untitled)"

// Paper holds the normalized metadata for a paper returned by the literature
// provider. A Paper with an empty ID is never written to the index.
type Paper struct {
	// ID is the provider-assigned paper identifier (Semantic Scholar paperId).
	ID string `json:"paper_id" yaml:"paper_id"`

	// Title is the paper title. May be empty.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract. Providers sometimes omit it.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Year is the publication year, nil when unknown.
	Year *int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal or conference name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Authors lists author names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// ReferenceCount is the number of outgoing references reported by the provider.
	ReferenceCount *int `json:"reference_count,omitempty" yaml:"reference_count,omitempty"`

	// CitationCount is the number of incoming citations reported by the provider.
	CitationCount *int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// URL is the paper landing page, or the open access PDF when no landing page is given.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// References holds the outgoing reference edges when the paper was fetched by id.
	References []Reference `json:"references,omitempty" yaml:"references,omitempty"`
}

// DisplayTitle returns the title, or UntitledPlaceholder when it is empty.
func (p Paper) DisplayTitle() string {
	if p.Title == "" {
		return UntitledPlaceholder
	}
	return p.Title
}

// Reference is a directed edge from a paper to a paper it cites. It carries a
// snapshot of the target taken at traversal time, not the full record.
type Reference struct {
	ID    string `json:"paper_id" yaml:"paper_id"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Year  *int   `json:"year,omitempty" yaml:"year,omitempty"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
