package nasgame

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/0xADE/nas-game/internal/catalog"
	"github.com/0xADE/nas-game/internal/fetchindex"
)

// Client talks to a running nas-game server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// StatusError is returned for any non-200 answer
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

// NewClient creates a client for baseURL; an empty baseURL is resolved
// from NASGAME_SERVER_URL or the server settings file.
func NewClient(baseURL string) (*Client, error) {
	resolved, err := resolveBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    resolved,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// BaseURL returns the server root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return string(data), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) (string, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(buf))
}

// Ping checks that the server answers
func (c *Client) Ping(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodGet, "/", "", nil)
}

// Echo sends text and returns what the server sent back
func (c *Client) Echo(ctx context.Context, text string) (string, error) {
	return c.do(ctx, http.MethodPost, "/echo", "text/plain", strings.NewReader(text))
}

// AddDummy adds a placeholder entry and returns the catalog dump
func (c *Client) AddDummy(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodGet, "/add_dummy", "", nil)
}

// AddGames merges entries into the server catalog
func (c *Client) AddGames(ctx context.Context, entries []catalog.Entry) (string, error) {
	if entries == nil {
		entries = []catalog.Entry{}
	}
	return c.doJSON(ctx, http.MethodPost, "/games", entries)
}

// Games returns the server catalog
func (c *Client) Games(ctx context.Context) (catalog.Catalog, error) {
	body, err := c.do(ctx, http.MethodGet, "/games", "", nil)
	if err != nil {
		return catalog.Catalog{}, err
	}
	var cat catalog.Catalog
	if err := json.Unmarshal([]byte(body), &cat); err != nil {
		return catalog.Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	return cat, nil
}

// SaveLibrary asks the server to persist its catalog
func (c *Client) SaveLibrary(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodPost, "/save_library", "", nil)
}

// DownloadImages queues cover downloads for names
func (c *Client) DownloadImages(ctx context.Context, names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	return c.doJSON(ctx, http.MethodPost, "/download_images", map[string][]string{"games": names})
}

// OptimizeImages queues a transcode of the staging directory
func (c *Client) OptimizeImages(ctx context.Context) (string, error) {
	return c.do(ctx, http.MethodPost, "/optimize_images_server", "", nil)
}

// ImageStatus returns the recorded fetch outcome per name
func (c *Client) ImageStatus(ctx context.Context) (map[string]fetchindex.Record, error) {
	body, err := c.do(ctx, http.MethodGet, "/images/status", "", nil)
	if err != nil {
		return nil, err
	}
	var out map[string]fetchindex.Record
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("decode image status: %w", err)
	}
	return out, nil
}
