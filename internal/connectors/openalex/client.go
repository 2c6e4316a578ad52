package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dsp-labs/evidencer-cli/internal/core/domain"
	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
	"github.com/dsp-labs/evidencer-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.LiteratureSource = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// PerPage is the page size; 200 is the OpenAlex maximum.
	PerPage = 200

	// MaxRetries is the number of retries after a 429 before giving up.
	MaxRetries = 3

	// cursorStart is the initial cursor value for cursor pagination.
	cursorStart = "*"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// Email identifies the caller for OpenAlex polite pool access
	// (required).
	Email string

	// BaseURL is the API base URL (default: https://api.openalex.org).
	BaseURL string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// Client fetches works from the OpenAlex API.
type Client struct {
	client      *http.Client
	baseURL     string
	email       string
	rateLimiter *RateLimiter
}

// work is the subset of the OpenAlex work schema the pipeline uses.
type work struct {
	Title                 string           `json:"title"`
	DOI                   string           `json:"doi"`
	PublicationYear       int              `json:"publication_year"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	BestOALocation        *oaLocation      `json:"best_oa_location"`
}

// oaLocation is the open-access location schema.
type oaLocation struct {
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
	IsOA           bool   `json:"is_oa"`
}

// worksResponse is the /works list response schema.
type worksResponse struct {
	Meta struct {
		Count      int    `json:"count"`
		NextCursor string `json:"next_cursor"`
	} `json:"meta"`
	Results []work `json:"results"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewClient creates a new OpenAlex client. The email is required: it is
// sent as the mailto parameter so requests land in the polite pool.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Email == "" {
		return nil, domain.ErrEmailRequired
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		email:       cfg.Email,
		rateLimiter: NewRateLimiter(),
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "openalex"
}

// Validate checks the API is reachable with a minimal works request.
func (c *Client) Validate(ctx context.Context) error {
	params := url.Values{}
	params.Set("per-page", "1")
	params.Set("mailto", c.email)

	if _, err := c.get(ctx, "/works", params); err != nil {
		return fmt.Errorf("openalex: validate: %w", err)
	}
	return nil
}

// Fetch streams works matching the query, handling cursor pagination.
func (c *Client) Fetch(ctx context.Context, query driven.SearchQuery) (<-chan domain.Reference, <-chan error) {
	refs := make(chan domain.Reference)
	errs := make(chan error, 1)

	go func() {
		defer close(refs)
		defer close(errs)

		cursor := cursorStart
		fetched := 0
		dropped := 0

		for cursor != "" {
			params := url.Values{}
			params.Set("search", query.Term)
			if query.MinCitations != "" {
				params.Set("filter", "cited_by_count:"+query.MinCitations)
			}
			params.Set("per-page", fmt.Sprintf("%d", perPageFor(query.MaxWorks, fetched)))
			params.Set("cursor", cursor)
			params.Set("mailto", c.email)

			page, err := c.getWorks(ctx, params)
			if err != nil {
				errs <- fmt.Errorf("openalex: fetch page: %w", err)
				return
			}

			logger.Debug("OpenAlex page: %d works, %d total matches", len(page.Results), page.Meta.Count)

			for i := range page.Results {
				ref, ok := c.toReference(page.Results[i])
				if !ok {
					dropped++
					continue
				}

				select {
				case refs <- ref:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}

				fetched++
				if query.MaxWorks > 0 && fetched >= query.MaxWorks {
					logger.Debug("OpenAlex fetch capped at %d works (%d dropped)", fetched, dropped)
					return
				}
			}

			if len(page.Results) == 0 {
				break
			}
			cursor = page.Meta.NextCursor
		}

		logger.Debug("OpenAlex fetch complete: %d works kept, %d dropped", fetched, dropped)
	}()

	return refs, errs
}

// toReference converts an OpenAlex work into a domain Reference.
// Works without both title and abstract are dropped: they cannot be
// screened or used as extraction fallback.
func (c *Client) toReference(w work) (domain.Reference, bool) {
	abstract := ReconstructAbstract(w.AbstractInvertedIndex)
	if w.Title == "" || abstract == "" {
		return domain.Reference{}, false
	}

	ref := domain.Reference{
		Title:           w.Title,
		DOI:             w.DOI,
		PublicationYear: w.PublicationYear,
		Abstract:        abstract,
	}
	if w.BestOALocation != nil {
		ref.LandingPageURL = w.BestOALocation.LandingPageURL
		ref.PDFURL = w.BestOALocation.PDFURL
		ref.OpenAccess = w.BestOALocation.IsOA
	}
	return ref, true
}

// getWorks performs a /works request with rate limiting and 429 retry.
func (c *Client) getWorks(ctx context.Context, params url.Values) (*worksResponse, error) {
	for attempt := 0; ; attempt++ {
		body, retry, err := c.getOnce(ctx, "/works", params)
		if err != nil {
			return nil, err
		}
		if retry {
			if attempt >= MaxRetries {
				return nil, domain.ErrRateLimited
			}
			logger.Warn("OpenAlex rate limited, backing off until %s", c.rateLimiter.RetryAt().Format(time.TimeOnly))
			continue
		}

		var page worksResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if page.Error != "" {
			return nil, fmt.Errorf("openalex error: %s: %s", page.Error, page.Message)
		}
		return &page, nil
	}
}

// get performs a single rate-limited GET, retrying 429s like getWorks.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		body, retry, err := c.getOnce(ctx, path, params)
		if err != nil {
			return nil, err
		}
		if !retry {
			return body, nil
		}
		if attempt >= MaxRetries {
			return nil, domain.ErrRateLimited
		}
	}
}

// getOnce performs one GET. The second return value is true when the
// request was rate limited and should be retried after Wait.
func (c *Client) getOnce(ctx context.Context, path string, params url.Values) ([]byte, bool, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "evidencer (mailto:"+c.email+")")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if c.rateLimiter.UpdateFromResponse(resp) {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, true, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("openalex error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, false, nil
}

// perPageFor returns the page size for the next request, shrinking the
// final page when a MaxWorks cap would otherwise be overshot.
func perPageFor(maxWorks, fetched int) int {
	if maxWorks <= 0 {
		return PerPage
	}
	remaining := maxWorks - fetched
	if remaining < PerPage {
		if remaining < 1 {
			return 1
		}
		return remaining
	}
	return PerPage
}
