package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
const Schema = `
CREATE TABLE IF NOT EXISTS orchestrations (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    duration_ns INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    served_by TEXT,
    phase TEXT NOT NULL,
    model TEXT
);

CREATE TABLE IF NOT EXISTS attempts (
    orchestration_id TEXT NOT NULL REFERENCES orchestrations(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    provider TEXT NOT NULL,
    pool TEXT NOT NULL,
    outcome TEXT NOT NULL,
    reason TEXT,
    duration_ns INTEGER NOT NULL,
    started_at INTEGER NOT NULL,
    PRIMARY KEY (orchestration_id, seq)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orchestrations_started_at ON orchestrations(started_at);
CREATE INDEX IF NOT EXISTS idx_orchestrations_request_id ON orchestrations(request_id);
CREATE INDEX IF NOT EXISTS idx_attempts_provider ON attempts(provider, started_at);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
