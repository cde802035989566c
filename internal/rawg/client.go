// Package rawg is a client for the RAWG video game database API. Requests go
// through the retrying HTTP client; payloads are parsed strictly at the
// boundary and flattened into the canonical catalog shape.
package rawg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/boda2004/game-catalog/internal/constants"
	"github.com/boda2004/game-catalog/internal/domain"
	"github.com/boda2004/game-catalog/internal/httpclient"
)

// Resolution failures the import loop needs to tell apart.
var (
	ErrSearchFailed = errors.New("search failed")
	ErrNotFound     = errors.New("game not found")
	ErrDetailFetch  = errors.New("failed to get details")
)

type Client struct {
	http    *httpclient.Client
	baseURL string
	apiKey  string
}

func NewClient(http *httpclient.Client, baseURL, apiKey string) *Client {
	return &Client{
		http:    http,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// HasAPIKey reports whether the client was configured with a credential.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// Search runs a free-text catalog search and returns up to pageSize summaries.
func (c *Client) Search(ctx context.Context, query string, pageSize int) ([]GameSummary, error) {
	u := fmt.Sprintf("%s/games?key=%s&search=%s&page_size=%d",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(query), pageSize)

	resp, err := c.http.FetchWithRetry(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: rawg returned status %d", ErrSearchFailed, resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrSearchFailed, err)
	}
	return result.Results, nil
}

// GetGameDetails fetches the full record for a RAWG id and normalizes it.
func (c *Client) GetGameDetails(ctx context.Context, rawgID int64) (*domain.CatalogGame, error) {
	u := fmt.Sprintf("%s/games/%d?key=%s", c.baseURL, rawgID, url.QueryEscape(c.apiKey))

	resp, err := c.http.FetchWithRetry(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetailFetch, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: rawg returned status %d", ErrDetailFetch, resp.StatusCode)
	}

	var raw apiGame
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrDetailFetch, err)
	}

	game := normalizeGame(raw)
	return &game, nil
}

// ResolveByName resolves a free-text name to one normalized catalog entry:
// search with page size 1, trust the API's relevance ranking for the best
// match, then fetch the full detail record.
func (c *Client) ResolveByName(ctx context.Context, name string) (*domain.CatalogGame, error) {
	results, err := c.Search(ctx, name, constants.BestMatchPageSize)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return c.GetGameDetails(ctx, results[0].ID)
}

type searchResponse struct {
	Results []GameSummary `json:"results"`
}

// GameSummary is the subset of a search hit surfaced to callers.
type GameSummary struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	BackgroundImage *string  `json:"background_image"`
	Released        *string  `json:"released"`
	Rating          optFloat `json:"rating"`
	Metacritic      optInt   `json:"metacritic"`
}
