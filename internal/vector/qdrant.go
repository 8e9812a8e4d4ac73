// File path: internal/vector/qdrant.go
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/reqlens/internal/common"
)

var (
	// ErrUnavailable is returned when the store cannot be reached after the
	// readiness retries.
	ErrUnavailable = errors.New("vector store unavailable")
	// ErrInvalidDimension is returned when an entry's vector length does not
	// match the collection dimension. Checked client-side before any upsert.
	ErrInvalidDimension = errors.New("vector dimension mismatch")

	errNotFound = errors.New("resource not found")
	errConflict = errors.New("resource conflict")
)

// Entry is one point destined for the collection: a stable id, its embedding,
// and the requirement payload stored alongside it.
type Entry struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]interface{}
}

// QueryOptions narrow a similarity query. MinScore drops results below the
// threshold server-side; Filter holds payload field equality constraints.
type QueryOptions struct {
	MinScore float32
	Filter   map[string]interface{}
}

type Store interface {
	Available() bool
	SetCollection(name string)
	Collection() string
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, limit int, opts QueryOptions) ([]SearchResult, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, limit int) ([]SearchResult, error)
	Health(ctx context.Context) error
}

// Client talks to Qdrant over its REST API.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport

	baseURL    string
	collection string
	available  bool
	dimension  int
	apiKey     string

	cfg Config

	mu sync.RWMutex
}

func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// New constructs a client using the provided configuration. A store that is
// unreachable at startup is returned anyway and retried on first use.
func New(ctx context.Context, cfg Config) (*Client, error) {
	baseURL := fmt.Sprintf("%s://%s:%s", cfg.Scheme, cfg.Host, cfg.Port)
	logger := common.Logger()
	logger.Info(
		"vector: initializing qdrant client",
		"host", cfg.Host,
		"port", cfg.Port,
		"collection", cfg.Collection,
		"timeout", cfg.Timeout,
	)

	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPMaxIdlePerHost,
		MaxConnsPerHost:     cfg.HTTPMaxConnsPerHost,
		IdleConnTimeout:     cfg.HTTPIdleConnTimeout,
	}

	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:  transport,
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
		cfg:        cfg,
	}

	if err := client.ensureReady(ctx); err != nil {
		logger.Warn("vector: qdrant initialization failed", "collection", cfg.Collection, "error", err)
		return client, nil
	}
	logger.Info("vector: qdrant connection established")
	return client, nil
}

func (c *Client) Available() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

func (c *Client) SetCollection(name string) {
	if c == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == c.Collection() {
		return
	}
	c.mu.Lock()
	c.collection = trimmed
	c.dimension = 0
	c.mu.Unlock()
}

func (c *Client) Collection() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection
}

func (c *Client) ensureReady(ctx context.Context) error {
	if c == nil {
		return errors.New("qdrant client not configured")
	}
	c.mu.RLock()
	available := c.available
	c.mu.RUnlock()
	if available {
		return nil
	}
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = c.Health(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			c.setAvailable(false)
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
		}
	}
	if err != nil {
		c.setAvailable(false)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.setAvailable(true)
	return nil
}

func (c *Client) setAvailable(v bool) {
	c.mu.Lock()
	c.available = v
	c.mu.Unlock()
}

// EnsureCollection creates the collection with a cosine-distance vector space
// of the given dimension if it does not already exist. An existing collection
// with a different dimension is rejected rather than silently reused.
func (c *Client) EnsureCollection(ctx context.Context, dim int) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrInvalidDimension, dim)
	}
	existing, err := c.collectionDimension(ctx)
	if err != nil && !errors.Is(err, errNotFound) {
		return err
	}
	if err == nil {
		// A zero reported size would disable the client-side dimension
		// check on upsert, so refuse it rather than guess.
		if existing <= 0 {
			return fmt.Errorf("%w: collection %q reports vector size %d", ErrInvalidDimension, c.Collection(), existing)
		}
		if existing != dim {
			return fmt.Errorf("%w: collection %q has dimension %d, want %d", ErrInvalidDimension, c.Collection(), existing, dim)
		}
		c.setDimension(existing)
		return nil
	}
	payload := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	endpoint := fmt.Sprintf("%s/collections/%s", c.baseURL, url.PathEscape(c.Collection()))
	if err := c.doRequest(ctx, http.MethodPut, endpoint, payload, nil); err != nil {
		if errors.Is(err, errConflict) {
			c.setDimension(dim)
			return nil
		}
		return err
	}
	common.Logger().Info("vector: collection created", "collection", c.Collection(), "dimension", dim)
	c.setDimension(dim)
	return nil
}

func (c *Client) setDimension(dim int) {
	c.mu.Lock()
	c.dimension = dim
	c.mu.Unlock()
}

func (c *Client) collectionDimension(ctx context.Context) (int, error) {
	endpoint := fmt.Sprintf("%s/collections/%s", c.baseURL, url.PathEscape(c.Collection()))
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Config.Params.Vectors.Size, nil
}

// Upsert writes all entries in a single call, so a batch either lands
// completely or not at all. Dimension is validated client-side first.
func (c *Client) Upsert(ctx context.Context, entries []Entry) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	c.mu.RLock()
	dim := c.dimension
	c.mu.RUnlock()
	points := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		if dim > 0 && len(entry.Vector) != dim {
			return fmt.Errorf("%w: entry %s has %d dimensions, want %d", ErrInvalidDimension, entry.ID, len(entry.Vector), dim)
		}
		points = append(points, map[string]interface{}{
			"id":      entry.ID,
			"vector":  entry.Vector,
			"payload": entry.Payload,
		})
	}
	endpoint := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, url.PathEscape(c.Collection()))
	if err := c.doRequest(ctx, http.MethodPut, endpoint, map[string]interface{}{"points": points}, nil); err != nil {
		return err
	}
	common.Logger().Debug("vector: upserted points", "collection", c.Collection(), "count", len(points))
	return nil
}

func (c *Client) Query(ctx context.Context, vector []float32, limit int, opts QueryOptions) ([]SearchResult, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if opts.MinScore > 0 {
		body["score_threshold"] = opts.MinScore
	}
	if filter := buildFilter(opts.Filter); filter != nil {
		body["filter"] = filter
	}
	endpoint := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, url.PathEscape(c.Collection()))
	var resp struct {
		Result []struct {
			ID      interface{}            `json:"id"`
			Score   float32                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(resp.Result))
	for _, hit := range resp.Result {
		results = append(results, SearchResult{
			ID:      fmt.Sprintf("%v", hit.ID),
			Score:   hit.Score,
			Payload: hit.Payload,
		})
	}
	return results, nil
}

func buildFilter(fields map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	must := make([]map[string]interface{}, 0, len(fields))
	for key, value := range fields {
		must = append(must, map[string]interface{}{
			"key":   key,
			"match": map[string]interface{}{"value": value},
		})
	}
	return map[string]interface{}{"must": must}
}

func (c *Client) Delete(ctx context.Context, ids []string) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	endpoint := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, url.PathEscape(c.Collection()))
	return c.doRequest(ctx, http.MethodPost, endpoint, map[string]interface{}{"points": ids}, nil)
}

func (c *Client) Count(ctx context.Context) (int, error) {
	if err := c.ensureReady(ctx); err != nil {
		return 0, err
	}
	endpoint := fmt.Sprintf("%s/collections/%s/points/count", c.baseURL, url.PathEscape(c.Collection()))
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := c.doRequest(ctx, http.MethodPost, endpoint, map[string]interface{}{"exact": true}, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return resp.Result.Count, nil
}

// List scrolls stored points without similarity ranking, up to limit.
func (c *Client) List(ctx context.Context, limit int) ([]SearchResult, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	endpoint := fmt.Sprintf("%s/collections/%s/points/scroll", c.baseURL, url.PathEscape(c.Collection()))
	var results []SearchResult
	var offset interface{}
	for len(results) < limit {
		body := map[string]interface{}{
			"limit":        limit - len(results),
			"with_payload": true,
		}
		if offset != nil {
			body["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					ID      interface{}            `json:"id"`
					Payload map[string]interface{} `json:"payload"`
				} `json:"points"`
				NextPageOffset interface{} `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
			if errors.Is(err, errNotFound) {
				return nil, nil
			}
			return nil, err
		}
		for _, point := range resp.Result.Points {
			results = append(results, SearchResult{
				ID:      fmt.Sprintf("%v", point.ID),
				Payload: point.Payload,
			})
		}
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			break
		}
		offset = resp.Result.NextPageOffset
	}
	return results, nil
}

func (c *Client) Health(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/healthz", c.baseURL)
	return c.doRequest(ctx, http.MethodGet, endpoint, nil, nil)
}

var _ Store = (*Client)(nil)

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	if c == nil {
		return errors.New("qdrant client not configured")
	}
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode == http.StatusConflict {
		return errConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	return decoder.Decode(out)
}

// Close releases pooled resources associated with the client.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}
