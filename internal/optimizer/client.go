package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when the optimizer answers 404.
var ErrNotFound = errors.New("optimizer: not found")

// ErrNotConfigured is returned by every call when no base URL is set.
var ErrNotConfigured = errors.New("optimizer: base url not configured")

// Client calls the optimizer service over JSON/HTTP.
type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewClient builds a client with the given request timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) post(ctx context.Context, path string, payload any) (Response, error) {
	if c == nil || c.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	cli := c.Client
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("post %s: %w", path, ErrNotFound)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out Response
	decodeErr := json.Unmarshal(data, &out)
	if resp.StatusCode >= 400 {
		// Failures that still carry a status are business failures for the caller to map.
		if decodeErr == nil && out["status"] != nil {
			return out, nil
		}
		return nil, fmt.Errorf("post %s status %s", path, resp.Status)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s: %w", path, decodeErr)
	}
	if out == nil {
		out = Response{}
	}
	return out, nil
}

func (c *Client) GetTenant(ctx context.Context, email string) (Response, error) {
	return c.post(ctx, "/api/getTenant", map[string]any{"email": email})
}

func (c *Client) TopTables(ctx context.Context, database string) (Response, error) {
	return c.post(ctx, "/api/topTables", map[string]any{"dbName": database})
}

func (c *Client) TableDetails(ctx context.Context, database, table string) (Response, error) {
	return c.post(ctx, "/api/tableDetails", map[string]any{"dbName": database, "tableName": table})
}

func (c *Client) QueryCompatibility(ctx context.Context, sourcePlatform, targetPlatform, query string) (Response, error) {
	return c.post(ctx, "/api/queryCompatibility", map[string]any{
		"sourcePlatform": sourcePlatform,
		"targetPlatform": targetPlatform,
		"query":          query,
	})
}

func (c *Client) QueryRisk(ctx context.Context, query any) (Response, error) {
	return c.post(ctx, "/api/queryRisk", map[string]any{"query": query})
}

func (c *Client) SimilarQueries(ctx context.Context, sourcePlatform string, query any) (Response, error) {
	return c.post(ctx, "/api/similarQueries", map[string]any{"sourcePlatform": sourcePlatform, "query": query})
}

func (c *Client) TopFilters(ctx context.Context, dbTables []string) (Response, error) {
	return c.post(ctx, "/api/topFilters", map[string]any{"dbTables": nonNil(dbTables)})
}

func (c *Client) TopJoins(ctx context.Context, dbTables []string) (Response, error) {
	return c.post(ctx, "/api/topJoins", map[string]any{"dbTables": nonNil(dbTables)})
}

func (c *Client) TopAggs(ctx context.Context, dbTables []string) (Response, error) {
	return c.post(ctx, "/api/topAggs", map[string]any{"dbTables": nonNil(dbTables)})
}

func (c *Client) TopColumns(ctx context.Context, dbTables []string) (Response, error) {
	return c.post(ctx, "/api/topColumns", map[string]any{"dbTables": nonNil(dbTables)})
}

func (c *Client) TopDatabases(ctx context.Context) (Response, error) {
	return c.post(ctx, "/api/topDatabases", map[string]any{})
}

func (c *Client) Upload(ctx context.Context, req UploadRequest) (Response, error) {
	if req.DataType == "" {
		return nil, errors.New("upload: data type required")
	}
	return c.post(ctx, "/api/upload", req)
}

func (c *Client) UploadStatus(ctx context.Context, workloadID string) (Response, error) {
	return c.post(ctx, "/api/uploadStatus", map[string]any{"workloadId": workloadID})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
