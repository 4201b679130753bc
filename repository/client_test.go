package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHistory(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"version": "1.1.0", "updated": "2024-02-01T00:00:00Z", "state": "published"},
			{"version": "", "updated": "2024-03-01T00:00:00Z", "state": "draft"},
			{"version": "1.0.0", "updated": "2024-01-01T00:00:00Z", "state": "published"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	history, err := c.VersionHistory(context.Background(), "http://vendor.example.com/models/m1")
	require.NoError(t, err)

	assert.Equal(t, "/models/http:%2F%2Fvendor.example.com%2Fmodels%2Fm1/versions", gotPath)
	require.Len(t, history, 2)
	assert.Equal(t, "1.0.0", history[0].Version)
	assert.Equal(t, "1.1.0", history[1].Version)
	assert.Equal(t, "http://vendor.example.com/models/m1", history[0].ModelURI)
}

func TestVersionHistoryNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).VersionHistory(context.Background(), "m1")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestVersionHistoryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).VersionHistory(context.Background(), "m1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "boom")
}
