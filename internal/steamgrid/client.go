package steamgrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public SteamGridDB v2 API root
const DefaultBaseURL = "https://www.steamgriddb.com/api/v2"

// ErrNoResults is returned when a search or grid listing comes back empty
var ErrNoResults = errors.New("no results")

// Game is one autocomplete search match
type Game struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Types    []string `json:"types"`
	Verified bool     `json:"verified"`
}

// Grid is one cover image
type Grid struct {
	ID     int64  `json:"id"`
	URL    string `json:"url"`
	Thumb  string `json:"thumb"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Style  string `json:"style"`
	Mime   string `json:"mime"`
}

type envelope[T any] struct {
	Success bool     `json:"success"`
	Data    T        `json:"data"`
	Errors  []string `json:"errors"`
}

// GridFilter narrows a grid listing
type GridFilter struct {
	Width  int
	Height int
	Types  string // "static", "animated"
	NSFW   string // "true", "false", "any"
	Humor  string // "true", "false", "any"
}

// CoverFilter is the fixed preference used for cover art: the 600x900 grid
// aspect, static images only, no NSFW or humor filtering.
var CoverFilter = GridFilter{Width: 600, Height: 900, Types: "static", NSFW: "any", Humor: "any"}

func (f GridFilter) values() url.Values {
	params := url.Values{}
	if f.Width > 0 && f.Height > 0 {
		params.Set("dimensions", fmt.Sprintf("%dx%d", f.Width, f.Height))
	}
	if f.Types != "" {
		params.Set("types", f.Types)
	}
	if f.NSFW != "" {
		params.Set("nsfw", f.NSFW)
	}
	if f.Humor != "" {
		params.Set("humor", f.Humor)
	}
	return params
}

// Client talks to the SteamGridDB API
type Client struct {
	apiKey     string
	baseURL    string
	filter     GridFilter
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithGridFilter overrides CoverFilter
func WithGridFilter(f GridFilter) Option {
	return func(c *Client) {
		c.filter = f
	}
}

// New creates a client. An empty baseURL selects DefaultBaseURL.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("steamgrid api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		filter:     CoverFilter,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search runs an autocomplete search for term
func (c *Client) Search(ctx context.Context, term string) ([]Game, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.New("search term must not be empty")
	}
	var out envelope[[]Game]
	if err := c.get(ctx, "/search/autocomplete/"+url.PathEscape(term), nil, &out); err != nil {
		return nil, fmt.Errorf("search %q: %w", term, err)
	}
	return out.Data, nil
}

// Grids lists the grids for a game id filtered by f
func (c *Client) Grids(ctx context.Context, gameID int64, f GridFilter) ([]Grid, error) {
	var out envelope[[]Grid]
	path := "/grids/game/" + strconv.FormatInt(gameID, 10)
	if err := c.get(ctx, path, f.values(), &out); err != nil {
		return nil, fmt.Errorf("grids for %d: %w", gameID, err)
	}
	return out.Data, nil
}

// CoverURL resolves name to the first grid URL of the first search match
func (c *Client) CoverURL(ctx context.Context, name string) (string, error) {
	games, err := c.Search(ctx, name)
	if err != nil {
		return "", err
	}
	if len(games) == 0 {
		return "", fmt.Errorf("search %q: %w", name, ErrNoResults)
	}
	grids, err := c.Grids(ctx, games[0].ID, c.filter)
	if err != nil {
		return "", err
	}
	if len(grids) == 0 || strings.TrimSpace(grids[0].URL) == "" {
		return "", fmt.Errorf("grids for %q (%d): %w", name, games[0].ID, ErrNoResults)
	}
	return grids[0].URL, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{ ok() (bool, []string) }) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse steamgrid url: %w", err)
	}
	if len(params) > 0 {
		endpoint.RawQuery = params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoResults
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("steamgrid returned %d (latency=%v)", resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode steamgrid response: %w", err)
	}
	if success, errs := out.ok(); !success {
		return fmt.Errorf("steamgrid request failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (e *envelope[T]) ok() (bool, []string) {
	return e.Success, e.Errors
}
