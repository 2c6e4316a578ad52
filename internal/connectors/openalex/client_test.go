package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
)

func TestNewClient_RequiresEmail(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmailRequired)
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(Config{Email: "researcher@example.org"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, "openalex", client.Name())
}

// testWork builds an OpenAlex work JSON object with an inverted-index
// abstract.
func testWork(title string, words ...string) map[string]any {
	inverted := make(map[string][]int)
	for i, w := range words {
		inverted[w] = append(inverted[w], i)
	}
	return map[string]any{
		"title":                   title,
		"doi":                     "https://doi.org/10.1234/" + title,
		"publication_year":        2021,
		"abstract_inverted_index": inverted,
		"best_oa_location": map[string]any{
			"landing_page_url": "https://example.org/" + title,
			"pdf_url":          "https://example.org/" + title + ".pdf",
			"is_oa":            true,
		},
	}
}

func collect(t *testing.T, refs <-chan domain.Reference, errs <-chan error) ([]domain.Reference, error) {
	t.Helper()
	var out []domain.Reference
	for ref := range refs {
		out = append(out, ref)
	}
	return out, <-errs
}

func TestFetch_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "parenting", r.URL.Query().Get("search"))
		assert.Equal(t, "cited_by_count:>4", r.URL.Query().Get("filter"))
		assert.Equal(t, "researcher@example.org", r.URL.Query().Get("mailto"))

		resp := map[string]any{
			"meta":    map[string]any{"count": 2, "next_cursor": ""},
			"results": []any{testWork("w1", "first", "abstract"), testWork("w2", "second", "abstract")},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Email: "researcher@example.org", BaseURL: srv.URL})
	require.NoError(t, err)

	refs, errs := client.Fetch(context.Background(), driven.SearchQuery{
		Term:         "parenting",
		MinCitations: ">4",
		MaxWorks:     100,
	})

	got, err := collect(t, refs, errs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "w1", got[0].Title)
	assert.Equal(t, "first abstract", got[0].Abstract)
	assert.Equal(t, "https://example.org/w1.pdf", got[0].PDFURL)
	assert.True(t, got[0].OpenAccess)
	assert.Equal(t, 2021, got[0].PublicationYear)
}

func TestFetch_CursorPagination(t *testing.T) {
	var pages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		cursor := r.URL.Query().Get("cursor")
		var resp map[string]any
		switch cursor {
		case "*":
			resp = map[string]any{
				"meta":    map[string]any{"count": 2, "next_cursor": "page2"},
				"results": []any{testWork("w1", "a", "b")},
			}
		case "page2":
			resp = map[string]any{
				"meta":    map[string]any{"count": 2, "next_cursor": ""},
				"results": []any{testWork("w2", "c", "d")},
			}
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Email: "r@example.org", BaseURL: srv.URL})
	require.NoError(t, err)

	refs, errs := client.Fetch(context.Background(), driven.SearchQuery{Term: "q"})
	got, err := collect(t, refs, errs)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, pages)
}

func TestFetch_MaxWorksCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := make([]any, 0, 5)
		for i := 0; i < 5; i++ {
			results = append(results, testWork(fmt.Sprintf("w%d", i), "some", "abstract"))
		}
		resp := map[string]any{
			"meta":    map[string]any{"count": 1000, "next_cursor": "more"},
			"results": results,
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Email: "r@example.org", BaseURL: srv.URL})
	require.NoError(t, err)

	refs, errs := client.Fetch(context.Background(), driven.SearchQuery{Term: "q", MaxWorks: 3})
	got, err := collect(t, refs, errs)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFetch_DropsWorksWithoutTitleOrAbstract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noAbstract := map[string]any{"title": "bare", "publication_year": 2020}
		noTitle := testWork("", "has", "abstract")
		resp := map[string]any{
			"meta":    map[string]any{"count": 3, "next_cursor": ""},
			"results": []any{noAbstract, noTitle, testWork("keep", "kept", "abstract")},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Email: "r@example.org", BaseURL: srv.URL})
	require.NoError(t, err)

	refs, errs := client.Fetch(context.Background(), driven.SearchQuery{Term: "q"})
	got, err := collect(t, refs, errs)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0].Title)
}

func TestFetch_RateLimitedExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderRetryAfter, "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(Config{Email: "r@example.org", BaseURL: srv.URL})
	require.NoError(t, err)

	refs, errs := client.Fetch(context.Background(), driven.SearchQuery{Term: "q"})
	_, err = collect(t, refs, errs)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestFetch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":"Invalid query"}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{Email: "r@example.org", BaseURL: srv.URL})
	require.NoError(t, err)

	refs, errs := client.Fetch(context.Background(), driven.SearchQuery{Term: "q"})
	_, err = collect(t, refs, errs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("per-page"))
		fmt.Fprint(w, `{"meta":{"count":0},"results":[]}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{Email: "r@example.org", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, client.Validate(context.Background()))
}

func TestPerPageFor(t *testing.T) {
	assert.Equal(t, PerPage, perPageFor(0, 0))
	assert.Equal(t, PerPage, perPageFor(500, 0))
	assert.Equal(t, 50, perPageFor(250, 200))
	assert.Equal(t, 1, perPageFor(10, 10))
}
