// Package steam resolves Steam account identifiers and fetches owned games
// through the Steam Web API.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/boda2004/game-catalog/internal/constants"
)

var (
	ErrVanityNotResolved = errors.New("failed to resolve Steam vanity URL")
	ErrInvalidAccountID  = errors.New("could not parse Steam ID or profile URL")
)

var (
	profilesURLRe = regexp.MustCompile(`(?i)steamcommunity\.com/profiles/(\d{17})`)
	vanityURLRe   = regexp.MustCompile(`(?i)steamcommunity\.com/id/([^/?#]+)`)
	steamID64Re   = regexp.MustCompile(`^\d{17}$`)
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
	}
}

// HasAPIKey reports whether the client was configured with a credential.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// OwnedGame is one entry of an account's owned-games list.
type OwnedGame struct {
	AppID           int64  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeMinutes int64  `json:"playtime_forever"`
}

// ResolveAccountID turns a raw SteamID64, a /profiles/ URL, a /id/ vanity URL
// or a bare vanity name into a canonical 17-digit account id.
func (c *Client) ResolveAccountID(ctx context.Context, idOrURL string) (string, error) {
	trimmed := strings.TrimSpace(idOrURL)

	if m := profilesURLRe.FindStringSubmatch(trimmed); m != nil {
		return m[1], nil
	}

	if m := vanityURLRe.FindStringSubmatch(trimmed); m != nil {
		return c.resolveVanity(ctx, m[1])
	}

	if steamID64Re.MatchString(trimmed) {
		return trimmed, nil
	}

	// Last resort: treat the whole input as a vanity name.
	id, err := c.resolveVanity(ctx, trimmed)
	if err != nil {
		return "", ErrInvalidAccountID
	}
	return id, nil
}

func (c *Client) resolveVanity(ctx context.Context, vanity string) (string, error) {
	u := fmt.Sprintf("%s/ISteamUser/ResolveVanityURL/v0001/?key=%s&vanityurl=%s",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(vanity))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var result struct {
		Response struct {
			Success int    `json:"success"`
			SteamID string `json:"steamid"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Response.Success != 1 || result.Response.SteamID == "" {
		return "", ErrVanityNotResolved
	}
	return result.Response.SteamID, nil
}

// GetOwnedGames fetches the account's owned-games list with app names and
// playtime included.
func (c *Client) GetOwnedGames(ctx context.Context, steamID string) ([]OwnedGame, error) {
	u := fmt.Sprintf("%s/IPlayerService/GetOwnedGames/v0001/?key=%s&steamid=%s&include_appinfo=1&include_played_free_games=1&format=json",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(steamID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("steam returned status %d", resp.StatusCode)
	}

	var result struct {
		Response struct {
			Games []OwnedGame `json:"games"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Response.Games, nil
}

// SelectNames filters an owned-games list by minimum playtime, truncates it to
// limit when limit > 0, and de-duplicates by case-insensitive trimmed name.
// Source order is preserved.
func SelectNames(games []OwnedGame, minPlaytime time.Duration, limit int) []string {
	minMinutes := int64(minPlaytime / time.Minute)

	filtered := make([]OwnedGame, 0, len(games))
	for _, g := range games {
		if strings.TrimSpace(g.Name) == "" {
			continue
		}
		if minMinutes > 0 && g.PlaytimeMinutes < minMinutes {
			continue
		}
		filtered = append(filtered, g)
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	seen := make(map[string]struct{}, len(filtered))
	names := make([]string, 0, len(filtered))
	for _, g := range filtered {
		name := strings.TrimSpace(g.Name)
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}
