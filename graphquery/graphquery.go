// Package graphquery defines the read-only query contract over the vendor's
// model graph and an HTTP SPARQL client for it.
//
// The graph only exposes the latest snapshot: one row per model with its
// current version, and the current import edges between models.
package graphquery

import (
	"context"
	"strings"
	"time"

	"github.com/c360studio/semweave/identifier"
)

// State is the publication state of a model.
type State string

// Publication states. StateAbsent marks rows with no recorded state.
const (
	StateAbsent          State = ""
	StatePublished       State = "published"
	StateDraft           State = "draft"
	StatePendingApproval State = "pending_approval"
)

// ParseState normalizes a vendor state label. Unknown labels map to
// StateAbsent.
func ParseState(s string) State {
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch State(norm) {
	case StatePublished, StateDraft, StatePendingApproval:
		return State(norm)
	default:
		return StateAbsent
	}
}

// ModelRow is one model of the latest snapshot. Fields are filled depending
// on the query shape.
type ModelRow struct {
	Model    string    `json:"model"`
	FileID   string    `json:"file_id,omitempty"`
	AssetID  string    `json:"asset_id,omitempty"`
	Version  string    `json:"version,omitempty"`
	State    State     `json:"state,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
	Name     string    `json:"name,omitempty"`
	Updated  time.Time `json:"updated"`
}

// Published reports whether the row carries a version.
func (r ModelRow) Published() bool {
	return r.Version != ""
}

// Notation returns the notation selected by the row's mimetype.
func (r ModelRow) Notation() identifier.Notation {
	return identifier.NotationFromMimeType(r.MimeType)
}

// Artifact returns the artifact reference of the row.
func (r ModelRow) Artifact() identifier.ArtifactRef {
	return identifier.ArtifactRef{ModelURI: r.Model, Version: r.Version, Updated: r.Updated}
}

// ImportEdge is a direct import from one model to another in the latest snapshot.
type ImportEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Querier answers the query shapes of the vendor model graph. There is no
// historical edge query: the graph only knows current edges.
type Querier interface {
	// PublishedModels returns every published model.
	PublishedModels(ctx context.Context) ([]ModelRow, error)
	// AllModels returns every model regardless of publication state.
	AllModels(ctx context.Context) ([]ModelRow, error)
	// ImportEdges returns the current direct import edges.
	ImportEdges(ctx context.Context) ([]ImportEdge, error)
}
