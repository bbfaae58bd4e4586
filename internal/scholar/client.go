// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scholar is the Semantic Scholar adapter: topic search, paper
// lookup with inline references, and the memoization cache the evidence
// walk reads through.
package scholar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/internal/normalize"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// defaultBaseURL is the Semantic Scholar Graph API root. Declared as a var
// so tests can substitute an httptest server.
var defaultBaseURL = "https://api.semanticscholar.org/graph/v1"

const (
	searchFields = "title,url,abstract,authors,year,publicationVenue,paperId,externalIds," +
		"referenceCount,citationCount,openAccessPdf"
	paperFields = searchFields +
		",references.paperId,references.title,references.url,references.year"

	// DefaultSearchLimit is used when a caller passes a non-positive limit.
	DefaultSearchLimit = 10

	// maxSearchLimit is the largest page the search endpoint accepts.
	maxSearchLimit = 100
)

// ErrEmptyTopic is returned when a search is requested without a topic.
var ErrEmptyTopic = errors.New("empty search topic")

// Client queries the Semantic Scholar Graph API through a rate-limited
// Fetcher. It is safe for concurrent use.
type Client struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Fetcher   *httputil.Fetcher
	Logger    zerolog.Logger
}

// NewClient builds a Client from cfg. A nil fetcher gets a default Fetcher
// limited to cfg.RateLimit requests per second.
func NewClient(cfg types.ScholarConfig, fetcher *httputil.Fetcher, logger zerolog.Logger) *Client {
	if fetcher == nil {
		fetcher = httputil.NewFetcher(&http.Client{Timeout: cfg.Timeout},
			httputil.WithRateLimiter(httputil.NewRateLimiter(cfg.RateLimit, cfg.Burst)),
			httputil.WithLogger(logger))
	}
	return &Client{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
		Fetcher:   fetcher,
		Logger:    logger,
	}
}

// Search returns up to limit papers matching topic, deduplicated. Any
// failure is logged and yields an empty slice.
func (c *Client) Search(ctx context.Context, topic string, limit int) []types.Paper {
	papers, err := c.SearchPapers(ctx, topic, limit)
	if err != nil {
		c.Logger.Error().Err(err).Str("topic", topic).Msg("paper search failed")
		return []types.Paper{}
	}
	return papers
}

// SearchPapers is Search with the failure reported to the caller. A
// response with total 0 yields an empty slice and no error.
func (c *Client) SearchPapers(ctx context.Context, topic string, limit int) ([]types.Paper, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	params := url.Values{
		"query":  {topic},
		"limit":  {strconv.Itoa(limit)},
		"fields": {searchFields},
	}

	var sr searchResponse
	if err := c.getJSON(ctx, "/paper/search", params, &sr); err != nil {
		return nil, fmt.Errorf("Semantic Scholar search: %w", err)
	}
	if sr.Total.v == nil || *sr.Total.v == 0 {
		c.Logger.Info().Str("topic", topic).Msg("no papers found for topic")
		return []types.Paper{}, nil
	}

	papers, skipped := decodePapers(sr.Data)
	if skipped > 0 {
		c.Logger.Warn().Int("skipped", skipped).Str("topic", topic).Msg("dropped malformed search records")
	}
	return normalize.Dedup(papers, limit), nil
}

// FetchPaper returns one paper by id with its references inline.
func (c *Client) FetchPaper(ctx context.Context, id string) (*types.Paper, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("empty paper id")
	}

	var rp rawPaper
	params := url.Values{"fields": {paperFields}}
	if err := c.getJSON(ctx, "/paper/"+url.PathEscape(id), params, &rp); err != nil {
		return nil, fmt.Errorf("fetching paper %s: %w", id, err)
	}

	p := rp.toPaper()
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	reqURL := strings.TrimRight(base, "/") + path + "?" + params.Encode()

	h := http.Header{}
	if c.UserAgent != "" {
		h.Set("User-Agent", c.UserAgent)
	}
	if c.APIKey != "" {
		h.Set("X-API-KEY", c.APIKey)
	}

	fetcher := c.Fetcher
	if fetcher == nil {
		fetcher = httputil.NewFetcher(nil)
	}
	resp, err := fetcher.Get(ctx, reqURL, h)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	return nil
}
