package movie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrMovieNotFound is returned when the catalog has no movie with the given ID.
var ErrMovieNotFound = errors.New("movie not found in catalog")

// DefaultCatalogTimeout is the per-request timeout for catalog lookups.
const DefaultCatalogTimeout = 10 * time.Second

// Catalog looks up movie metadata by catalog ID.
// The ranking engine never requires the catalog; it is used only to fill in
// missing display fields before an insertion begins.
type Catalog interface {
	Lookup(ctx context.Context, movieID int64) (*Movie, error)
}

// CatalogClient is an HTTP client for a TMDB-style movie catalog.
type CatalogClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewCatalogClient creates a catalog client for the given base URL and API key.
func NewCatalogClient(baseURL, apiKey string) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultCatalogTimeout,
		},
	}
}

// Lookup fetches metadata for a single movie by its catalog ID.
// Returns ErrMovieNotFound if the catalog responds with 404.
func (c *CatalogClient) Lookup(ctx context.Context, movieID int64) (*Movie, error) {
	endpoint := fmt.Sprintf("%s/movie/%d", c.baseURL, movieID)
	if c.apiKey != "" {
		endpoint += "?api_key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrMovieNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog returned unexpected status %d", resp.StatusCode)
	}

	var m Movie
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return &m, nil
}
