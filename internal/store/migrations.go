package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	account     TEXT NOT NULL,
	folder      TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	predicate   TEXT NOT NULL DEFAULT '',
	sort_keys   TEXT NOT NULL DEFAULT '',
	matches     INTEGER NOT NULL DEFAULT 0,
	marked_read INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE runs ADD COLUMN prefetch TEXT NOT NULL DEFAULT '';

CREATE INDEX IF NOT EXISTS idx_runs_account ON runs(account, folder);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
