// Package repository reads per-model version histories from the vendor
// model repository.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/c360studio/semweave/identifier"
)

// maxErrorBodySize limits the size of error response bodies.
const maxErrorBodySize = 4096

// ErrModelNotFound is returned when the repository does not know a model.
var ErrModelNotFound = errors.New("model not found in repository")

// Client is an HTTP client for the repository's version history endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// versionEntry is one item of the version history response.
type versionEntry struct {
	Version string    `json:"version"`
	Updated time.Time `json:"updated"`
	State   string    `json:"state,omitempty"`
}

// VersionHistory returns the published versions of a model in ascending
// timestamp order. Entries without a version are drafts and are skipped.
func (c *Client) VersionHistory(ctx context.Context, modelURI string) ([]identifier.ArtifactRef, error) {
	endpoint := fmt.Sprintf("%s/models/%s/versions", c.baseURL, url.PathEscape(modelURI))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelURI)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("repository returned %d: %s", resp.StatusCode, string(body))
	}

	var entries []versionEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode version history: %w", err)
	}

	history := make([]identifier.ArtifactRef, 0, len(entries))
	for _, e := range entries {
		if e.Version == "" {
			continue
		}
		history = append(history, identifier.ArtifactRef{
			ModelURI: modelURI,
			Version:  e.Version,
			Updated:  e.Updated,
		})
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Updated.Before(history[j].Updated)
	})
	return history, nil
}
