package snapshot

// Schema is the SQL schema of a snapshot database. Timestamps are stored as
// Unix nanoseconds so ordering is numeric.
const Schema = `
CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS models (
    model      TEXT PRIMARY KEY,
    position   INTEGER NOT NULL,
    file_id    TEXT NOT NULL DEFAULT '',
    asset_id   TEXT NOT NULL DEFAULT '',
    version    TEXT NOT NULL DEFAULT '',
    state      TEXT NOT NULL DEFAULT '',
    mime_type  TEXT NOT NULL DEFAULT '',
    name       TEXT NOT NULL DEFAULT '',
    updated    INTEGER NOT NULL DEFAULT 0,
    published  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS imports (
    position   INTEGER NOT NULL,
    from_model TEXT NOT NULL,
    to_model   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
    model    TEXT NOT NULL,
    version  TEXT NOT NULL,
    updated  INTEGER NOT NULL,
    PRIMARY KEY (model, version)
);

CREATE INDEX IF NOT EXISTS idx_models_published ON models(published, position);
CREATE INDEX IF NOT EXISTS idx_imports_position ON imports(position);
CREATE INDEX IF NOT EXISTS idx_versions_model ON versions(model, updated);
`
