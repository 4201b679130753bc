// Package snapshot records a point-in-time copy of the vendor model graph
// and version histories in sqlite, and serves it back through the graph
// query and history contracts so resolution can run offline.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/semweave/graphquery"
	"github.com/c360studio/semweave/identifier"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrEmpty is returned when no snapshot has been stored yet.
var ErrEmpty = errors.New("snapshot is empty")

const (
	metaSnapshotID = "snapshot_id"
	metaCapturedAt = "captured_at"
)

// Store is a sqlite-backed snapshot.
type Store struct {
	db *sql.DB
}

// Open opens or creates the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping snapshot db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Info describes a stored snapshot.
type Info struct {
	ID         uuid.UUID `json:"id"`
	CapturedAt time.Time `json:"captured_at"`
	Models     int       `json:"models"`
	Published  int       `json:"published"`
	Imports    int       `json:"imports"`
	Versions   int       `json:"versions"`
}

// Data is the content of one snapshot.
type Data struct {
	CapturedAt time.Time
	Published  []graphquery.ModelRow
	All        []graphquery.ModelRow
	Imports    []graphquery.ImportEdge
	Histories  map[string][]identifier.ArtifactRef
}

// Replace atomically replaces the stored snapshot with data.
func (s *Store) Replace(ctx context.Context, data Data) (Info, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Info{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"meta", "models", "imports", "versions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return Info{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	info := Info{ID: uuid.New(), CapturedAt: data.CapturedAt.UTC()}
	for key, value := range map[string]string{
		metaSnapshotID: info.ID.String(),
		metaCapturedAt: info.CapturedAt.Format(time.RFC3339Nano),
	} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return Info{}, fmt.Errorf("insert meta %s: %w", key, err)
		}
	}

	position := 0
	insertModel := func(row graphquery.ModelRow, published bool) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO models (model, position, file_id, asset_id, version, state, mime_type, name, updated, published)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(model) DO UPDATE SET published = MAX(published, excluded.published)`,
			row.Model, position, row.FileID, row.AssetID, row.Version, string(row.State),
			row.MimeType, row.Name, toNanos(row.Updated), boolInt(published))
		position++
		return err
	}

	published := make(map[string]bool, len(data.Published))
	for _, row := range data.Published {
		published[row.Model] = true
	}
	for _, row := range data.All {
		if err := insertModel(row, published[row.Model]); err != nil {
			return Info{}, fmt.Errorf("insert model %s: %w", row.Model, err)
		}
	}
	for _, row := range data.Published {
		if err := insertModel(row, true); err != nil {
			return Info{}, fmt.Errorf("insert published model %s: %w", row.Model, err)
		}
	}

	for i, e := range data.Imports {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO imports (position, from_model, to_model) VALUES (?, ?, ?)`, i, e.From, e.To); err != nil {
			return Info{}, fmt.Errorf("insert import %s -> %s: %w", e.From, e.To, err)
		}
		info.Imports++
	}

	for model, history := range data.Histories {
		for _, v := range history {
			if !v.Published() {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO versions (model, version, updated) VALUES (?, ?, ?)`,
				model, v.Version, toNanos(v.Updated)); err != nil {
				return Info{}, fmt.Errorf("insert version %s@%s: %w", model, v.Version, err)
			}
			info.Versions++
		}
	}

	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM models`).Scan(&info.Models); err != nil {
		return Info{}, fmt.Errorf("count models: %w", err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM models WHERE published = 1`).Scan(&info.Published); err != nil {
		return Info{}, fmt.Errorf("count published models: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Info{}, fmt.Errorf("commit: %w", err)
	}
	return info, nil
}

// Info returns the description of the stored snapshot.
func (s *Store) Info(ctx context.Context) (Info, error) {
	var info Info
	var id, captured string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaSnapshotID).Scan(&id)
	if err == sql.ErrNoRows {
		return Info{}, ErrEmpty
	}
	if err != nil {
		return Info{}, fmt.Errorf("read snapshot id: %w", err)
	}
	if info.ID, err = uuid.Parse(id); err != nil {
		return Info{}, fmt.Errorf("parse snapshot id: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaCapturedAt).Scan(&captured); err != nil {
		return Info{}, fmt.Errorf("read capture time: %w", err)
	}
	if info.CapturedAt, err = time.Parse(time.RFC3339Nano, captured); err != nil {
		return Info{}, fmt.Errorf("parse capture time: %w", err)
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM models`, &info.Models},
		{`SELECT COUNT(*) FROM models WHERE published = 1`, &info.Published},
		{`SELECT COUNT(*) FROM imports`, &info.Imports},
		{`SELECT COUNT(*) FROM versions`, &info.Versions},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return Info{}, fmt.Errorf("count: %w", err)
		}
	}
	return info, nil
}

// PublishedModels implements graphquery.Querier.
func (s *Store) PublishedModels(ctx context.Context) ([]graphquery.ModelRow, error) {
	return s.models(ctx, `WHERE published = 1`)
}

// AllModels implements graphquery.Querier.
func (s *Store) AllModels(ctx context.Context) ([]graphquery.ModelRow, error) {
	return s.models(ctx, ``)
}

func (s *Store) models(ctx context.Context, where string) ([]graphquery.ModelRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, file_id, asset_id, version, state, mime_type, name, updated
		 FROM models `+where+` ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	var out []graphquery.ModelRow
	for rows.Next() {
		var r graphquery.ModelRow
		var state string
		var updated int64
		if err := rows.Scan(&r.Model, &r.FileID, &r.AssetID, &r.Version, &state, &r.MimeType, &r.Name, &updated); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		r.State = graphquery.State(state)
		r.Updated = fromNanos(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ImportEdges implements graphquery.Querier.
func (s *Store) ImportEdges(ctx context.Context) ([]graphquery.ImportEdge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT from_model, to_model FROM imports ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	var out []graphquery.ImportEdge
	for rows.Next() {
		var e graphquery.ImportEdge
		if err := rows.Scan(&e.From, &e.To); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// VersionHistory implements resolver.HistorySource.
func (s *Store) VersionHistory(ctx context.Context, modelURI string) ([]identifier.ArtifactRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, updated FROM versions WHERE model = ? ORDER BY updated, version`, modelURI)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var out []identifier.ArtifactRef
	for rows.Next() {
		var v identifier.ArtifactRef
		var updated int64
		if err := rows.Scan(&v.Version, &updated); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		v.ModelURI = modelURI
		v.Updated = fromNanos(updated)
		out = append(out, v)
	}
	return out, rows.Err()
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
