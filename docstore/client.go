package docstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/foomo/docserver/service/vo"
	json "github.com/goccy/go-json"
)

// Fetcher loads documentation metadata from the server.
type Fetcher interface {
	FetchIndex(ctx context.Context, version, language string, docType vo.DocType) ([]vo.IndexItem, error)
	FetchRecommendedItems(ctx context.Context, language string, docType vo.DocType) ([]vo.RecommendedItem, error)
	FetchRefresh(ctx context.Context, version, language string) (*vo.Refresh, error)
}

// Client talks to the documentation server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(segment)
	}
	return "/" + strings.Join(escaped, "/")
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("HTTP request %s failed with status: %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) FetchIndex(ctx context.Context, version, language string, docType vo.DocType) ([]vo.IndexItem, error) {
	var index []vo.IndexItem
	if err := c.getJSON(ctx, endpoint("getIndex", version, language, docType.String()), &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (c *Client) FetchRecommendedItems(ctx context.Context, language string, docType vo.DocType) ([]vo.RecommendedItem, error) {
	var items []vo.RecommendedItem
	if err := c.getJSON(ctx, endpoint("getRecommendedItems", language, docType.String()), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) FetchRefresh(ctx context.Context, version, language string) (*vo.Refresh, error) {
	var refresh vo.Refresh
	if err := c.getJSON(ctx, endpoint("refresh", version, language), &refresh); err != nil {
		return nil, err
	}
	return &refresh, nil
}
