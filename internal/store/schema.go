package store

// schema is applied by Migrate. Child rows cascade when a problem is
// replaced.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		host        TEXT NOT NULL,
		files       INTEGER NOT NULL,
		failures    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS problems (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		name               TEXT NOT NULL UNIQUE,
		kind               TEXT NOT NULL,
		type_raw           TEXT NOT NULL,
		comment            TEXT NOT NULL,
		dimension          INTEGER NOT NULL,
		capacity           INTEGER,
		edge_weight_type   TEXT NOT NULL,
		edge_weight_raw    TEXT NOT NULL DEFAULT '',
		edge_weight_format TEXT NOT NULL,
		edge_data_format   TEXT NOT NULL,
		node_coord_type    TEXT NOT NULL,
		display_data_type  TEXT NOT NULL,
		index_base         INTEGER NOT NULL,
		matrix_dimension   INTEGER,
		customer_only      INTEGER NOT NULL DEFAULT 0,
		source_path        TEXT NOT NULL,
		run_id             TEXT NOT NULL,
		ingested_at        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS problems_kind ON problems(kind)`,
	`CREATE TABLE IF NOT EXISTS nodes (
		problem_id INTEGER NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
		idx        INTEGER NOT NULL,
		x          REAL,
		y          REAL,
		z          REAL,
		dx         REAL,
		dy         REAL,
		demand     INTEGER NOT NULL DEFAULT 0,
		is_depot   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (problem_id, idx)
	)`,
	`CREATE TABLE IF NOT EXISTS weights (
		problem_id INTEGER PRIMARY KEY REFERENCES problems(id) ON DELETE CASCADE,
		format     TEXT NOT NULL,
		dimension  INTEGER NOT NULL,
		data       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tours (
		problem_id INTEGER NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		nodes      TEXT NOT NULL,
		PRIMARY KEY (problem_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS precedences (
		problem_id INTEGER NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
		before_idx INTEGER NOT NULL,
		after_idx  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS edges (
		problem_id INTEGER NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
		fixed      INTEGER NOT NULL,
		seq        INTEGER NOT NULL,
		from_idx   INTEGER NOT NULL,
		to_idx     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS quirks (
		problem_id INTEGER NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		detail     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extras (
		problem_id INTEGER NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		keyword    TEXT NOT NULL,
		value      TEXT NOT NULL,
		line       INTEGER NOT NULL,
		lines      TEXT NOT NULL
	)`,
}
