// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Metadata keys written by the normalizer.
const (
	MetaPaperID        = "paperId"
	MetaTitle          = "title"
	MetaURL            = "url"
	MetaAbstract       = "abstract"
	MetaAuthors        = "authors"
	MetaYear           = "year"
	MetaVenue          = "venue"
	MetaReferenceCount = "referenceCount"
	MetaCitationCount  = "citationCount"
	MetaTopic          = "topic"
	MetaSource         = "source"
)

// Metadata is the structured half of an IndexRecord. Values are strings or
// numbers; nil and empty-string values are never stored.
type Metadata map[string]any

// String returns the trimmed string value for key, or "" when absent or not
// a string.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, ok := m[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Int returns the integer value for key. Values decoded from JSON arrive as
// float64 and are converted; numeric strings are parsed.
func (m Metadata) Int(key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.Trunc(v) != v {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Display renders the value for key as text for CLI output.
func (m Metadata) Display(key string) string {
	if n, ok := m.Int(key); ok {
		return strconv.Itoa(n)
	}
	if v, ok := m[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// IndexRecord is the persisted unit of the semantic index. ID always equals
// the owning Paper's ID.
type IndexRecord struct {
	ID       string   `json:"id" yaml:"id"`
	Document string   `json:"document" yaml:"document"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}
