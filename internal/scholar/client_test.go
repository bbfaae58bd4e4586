// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/httputil"
)

func init() {
	httputil.InitialBackoff = time.Millisecond
	httputil.MaxBackoff = 2 * time.Millisecond
}

func newTestClient(ts *httptest.Server) *Client {
	return &Client{
		BaseURL: ts.URL,
		APIKey:  "test-key",
		Fetcher: httputil.NewFetcher(ts.Client()),
		Logger:  zerolog.Nop(),
	}
}

const searchBody = `{
  "total": 4,
  "offset": 0,
  "data": [
    {"paperId": "P1", "title": "Sleep and memory", "abstract": "We study sleep.",
     "url": "https://s2/P1", "year": 2020,
     "publicationVenue": {"name": "Nature"},
     "authors": [{"authorId": "1", "name": "Ada"}, "Grace"],
     "referenceCount": 12, "citationCount": 40},
    {"paperId": "P1", "title": "Sleep and memory (dup)"},
    {"paperId": null, "paper_id": "P2", "title": "Legacy id", "year": "2019",
     "publicationVenue": "ICML", "openAccessPdf": {"url": "https://pdf/P2"}},
    {"paperId": "P3", "title": null, "venue": "Arxiv", "publicationVenue": null, "year": null}
  ]
}`

func TestSearchPapers_RequestAndDecode(t *testing.T) {
	var captured *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchBody)
	}))
	defer ts.Close()

	papers, err := newTestClient(ts).SearchPapers(context.Background(), "  sleep  ", 5)
	require.NoError(t, err)

	assert.Equal(t, "/paper/search", captured.URL.Path)
	q := captured.URL.Query()
	assert.Equal(t, "sleep", q.Get("query"))
	assert.Equal(t, "5", q.Get("limit"))
	assert.Contains(t, q.Get("fields"), "publicationVenue")
	assert.Equal(t, "test-key", captured.Header.Get("X-API-KEY"))

	require.Len(t, papers, 3)

	p1 := papers[0]
	assert.Equal(t, "P1", p1.ID)
	assert.Equal(t, "Sleep and memory", p1.Title)
	assert.Equal(t, "Nature", p1.Venue)
	assert.Equal(t, []string{"Ada", "Grace"}, p1.Authors)
	require.NotNil(t, p1.Year)
	assert.Equal(t, 2020, *p1.Year)
	require.NotNil(t, p1.CitationCount)
	assert.Equal(t, 40, *p1.CitationCount)

	p2 := papers[1]
	assert.Equal(t, "P2", p2.ID)
	assert.Equal(t, "ICML", p2.Venue)
	assert.Equal(t, "https://pdf/P2", p2.URL)
	require.NotNil(t, p2.Year)
	assert.Equal(t, 2019, *p2.Year)

	p3 := papers[2]
	assert.Equal(t, "", p3.Title)
	assert.Equal(t, "(untitled)", p3.DisplayTitle())
	assert.Equal(t, "Arxiv", p3.Venue)
	assert.Nil(t, p3.Year)
}

func TestSearchPapers_MalformedRecordKeepsRest(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"authors string", `{"paperId":"P2","authors":"Ada"}`},
		{"openAccessPdf string", `{"paperId":"P2","openAccessPdf":"https://x"}`},
		{"title number", `{"paperId":"P2","title":123}`},
		{"references object", `{"paperId":"P2","references":{"paperId":"R"}}`},
		{"venue number", `{"paperId":"P2","publicationVenue":{"name":7}}`},
		{"record not an object", `"P2"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprintf(w, `{"total":2,"data":[{"paperId":"P1","title":"Good"},%s]}`, tt.bad)
			}))
			defer ts.Close()

			papers, err := newTestClient(ts).SearchPapers(context.Background(), "sleep", 10)
			require.NoError(t, err)
			require.NotEmpty(t, papers)
			assert.Equal(t, "P1", papers[0].ID)
			assert.Equal(t, "Good", papers[0].Title)
			for _, p := range papers[1:] {
				assert.Equal(t, "P2", p.ID)
			}
		})
	}
}

func TestSearchPapers_LenientFieldShapes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total":"1","data":[{"paperId":"P2","title":123,"authors":"Ada",
			"openAccessPdf":"https://pdf/P2","year":{"v":1},"citationCount":"7"}]}`)
	}))
	defer ts.Close()

	papers, err := newTestClient(ts).SearchPapers(context.Background(), "sleep", 10)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	assert.Equal(t, "", p.Title)
	assert.Empty(t, p.Authors)
	assert.Equal(t, "https://pdf/P2", p.URL)
	assert.Nil(t, p.Year)
	require.NotNil(t, p.CitationCount)
	assert.Equal(t, 7, *p.CitationCount)
}

func TestSearchPapers_TotalZero(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"total":0,"offset":0}`)
	}))
	defer ts.Close()

	papers, err := newTestClient(ts).SearchPapers(context.Background(), "nothing", 10)
	require.NoError(t, err)
	assert.NotNil(t, papers)
	assert.Empty(t, papers)
}

func TestSearchPapers_EmptyTopic(t *testing.T) {
	c := &Client{Logger: zerolog.Nop()}
	_, err := c.SearchPapers(context.Background(), "   ", 10)
	assert.ErrorIs(t, err, ErrEmptyTopic)
	assert.Empty(t, c.Search(context.Background(), "", 10))
}

func TestSearch_DegradesToEmptyOnFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := newTestClient(ts)
	papers := c.Search(context.Background(), "sleep", 10)
	assert.NotNil(t, papers)
	assert.Empty(t, papers)

	_, err := c.SearchPapers(context.Background(), "sleep", 10)
	assert.True(t, errors.Is(err, httputil.ErrRetriesExhausted))
}

func TestSearchPapers_LimitClamped(t *testing.T) {
	var limit string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit = r.URL.Query().Get("limit")
		fmt.Fprint(w, `{"total":0}`)
	}))
	defer ts.Close()

	c := newTestClient(ts)
	_, err := c.SearchPapers(context.Background(), "x", 0)
	require.NoError(t, err)
	assert.Equal(t, "10", limit)

	_, err = c.SearchPapers(context.Background(), "x", 500)
	require.NoError(t, err)
	assert.Equal(t, "100", limit)
}

func TestFetchPaper_WithReferences(t *testing.T) {
	var fields string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fields = r.URL.Query().Get("fields")
		assert.Equal(t, "/paper/S1", r.URL.Path)
		fmt.Fprint(w, `{"paperId":"S1","title":"Seed","references":[
			{"paperId":"R1","title":"Ref one","url":"https://s2/R1","year":2001},
			{"paperId":null,"title":"Unresolved"},
			{"paperId":"R2","title":"Ref two"}]}`)
	}))
	defer ts.Close()

	p, err := newTestClient(ts).FetchPaper(context.Background(), "S1")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(fields, "references.paperId,references.title,references.url,references.year"))
	assert.Equal(t, "S1", p.ID)
	require.Len(t, p.References, 3)
	assert.Equal(t, "R1", p.References[0].ID)
	require.NotNil(t, p.References[0].Year)
	assert.Equal(t, 2001, *p.References[0].Year)
	assert.Equal(t, "", p.References[1].ID)
}

func TestFetchPaper_MalformedFieldsDegrade(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"paperId":"S1","authors":{"name":"Ada"},"references":[
			{"paperId":"R1"}, 42, {"paperId":["R2"],"title":"Bad id"}]}`)
	}))
	defer ts.Close()

	p, err := newTestClient(ts).FetchPaper(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "S1", p.ID)
	assert.Empty(t, p.Authors)
	require.Len(t, p.References, 2)
	assert.Equal(t, "R1", p.References[0].ID)
	assert.Equal(t, "", p.References[1].ID)
	assert.Equal(t, "Bad id", p.References[1].Title)
}

func TestFetchPaper_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := newTestClient(ts).FetchPaper(context.Background(), "missing")
	var se *httputil.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestFetchPaper_FallsBackToRequestedID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"title":"No id in body"}`)
	}))
	defer ts.Close()

	p, err := newTestClient(ts).FetchPaper(context.Background(), "X9")
	require.NoError(t, err)
	assert.Equal(t, "X9", p.ID)
}

func TestDefaultBaseURLUsedWhenUnset(t *testing.T) {
	var hit bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
		fmt.Fprint(w, `{"paperId":"A"}`)
	}))
	defer ts.Close()

	old := defaultBaseURL
	defaultBaseURL = ts.URL
	defer func() { defaultBaseURL = old }()

	c := &Client{Fetcher: httputil.NewFetcher(ts.Client()), Logger: zerolog.Nop()}
	_, err := c.FetchPaper(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, hit)
}
