package concept

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBodySize limits the size of error response bodies.
const maxErrorBodySize = 4096

// HTTPResolver resolves concepts against a terminology service exposing
// GET {endpoint}/concepts/{key}.
type HTTPResolver struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPResolver creates a resolver for the given endpoint.
func NewHTTPResolver(endpoint string, timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPResolver{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup implements Resolver.
func (r *HTTPResolver) Lookup(ctx context.Context, key string) (Descriptor, error) {
	key = NormalizeKey(key)
	if key == "" {
		return Descriptor{}, fmt.Errorf("%w: empty key", ErrNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/concepts/"+url.PathEscape(key), nil)
	if err != nil {
		return Descriptor{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Descriptor{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return Descriptor{}, fmt.Errorf("terminology service returned %d: %s", resp.StatusCode, string(body))
	}

	var d Descriptor
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return Descriptor{}, fmt.Errorf("decode response: %w", err)
	}
	if d.Tag == "" {
		d.Tag = key
	}
	return d, nil
}
