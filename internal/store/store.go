// Package store persists parsed records in a SQLite database.
//
// Explicit matrices are stored in their file layout (the flat backing
// sequence), never densified, so LoadRecord rebuilds an identical matrix.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/frederic-klein/tspingest/internal/problem"
)

var (
	// ErrNotFound is returned when no problem has the requested name.
	ErrNotFound = errors.New("store: problem not found")

	// ErrNoName is returned when a record has neither a NAME nor a source path.
	ErrNoName = errors.New("store: record has no name")
)

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
	}
	return nil
}

// Run is the manifest of one ingest run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Host       string
	Files      int
	Failures   int
}

// SaveRun inserts or replaces a run manifest. A missing ID is generated.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, started_at, finished_at, host, files, failures)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Host, run.Files, run.Failures)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// Runs returns the most recent runs first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, host, files, failures FROM runs
		 ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Host, &r.Files, &r.Failures); err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		r.StartedAt, _ = parseTime(started)
		r.FinishedAt, _ = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordName is the key a record is stored under: its NAME, or the source
// file's base name when NAME is empty.
func RecordName(rec *problem.Record, sourcePath string) string {
	if rec.Spec.Name != "" {
		return rec.Spec.Name
	}
	if sourcePath == "" {
		return ""
	}
	if idx := strings.LastIndexAny(sourcePath, `/\`); idx != -1 {
		sourcePath = sourcePath[idx+1:]
	}
	return sourcePath
}

// SaveRecord replaces any stored problem with the same name inside one
// transaction and returns the new row id.
func (s *Store) SaveRecord(ctx context.Context, rec *problem.Record, sourcePath, runID string) (int64, error) {
	name := RecordName(rec, sourcePath)
	if name == "" {
		return 0, ErrNoName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("saving %s: %w", name, err)
	}
	defer tx.Rollback()

	id, err := saveRecord(ctx, tx, name, rec, sourcePath, runID)
	if err != nil {
		return 0, fmt.Errorf("saving %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("saving %s: %w", name, err)
	}
	return id, nil
}

func saveRecord(ctx context.Context, tx *sql.Tx, name string, rec *problem.Record, sourcePath, runID string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM problems WHERE name = ?`, name); err != nil {
		return 0, err
	}

	spec := rec.Spec
	var capacity, matrixDim sql.NullInt64
	if spec.Capacity != nil {
		capacity = sql.NullInt64{Int64: int64(*spec.Capacity), Valid: true}
	}
	if rec.Matrix != nil {
		matrixDim = sql.NullInt64{Int64: int64(rec.Matrix.Dimension()), Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO problems (name, kind, type_raw, comment, dimension, capacity,
			edge_weight_type, edge_weight_raw, edge_weight_format, edge_data_format, node_coord_type, display_data_type,
			index_base, matrix_dimension, customer_only, source_path, run_id, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, string(spec.Kind), spec.TypeRaw, spec.Comment, spec.Dimension, capacity,
		string(spec.EdgeWeightType), spec.EdgeWeightTypeRaw, string(spec.EdgeWeightFormat), spec.EdgeDataFormat,
		spec.NodeCoordType, spec.DisplayDataType,
		rec.IndexBase, matrixDim, rec.MatrixOffset, sourcePath, runID, formatTime(time.Now()))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := saveNodes(ctx, tx, id, rec.Nodes); err != nil {
		return 0, err
	}

	if m := rec.Matrix; m != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO weights (problem_id, format, dimension, data) VALUES (?, ?, ?, ?)`,
			id, string(m.Format()), m.Dimension(), joinInts(m.Weights())); err != nil {
			return 0, err
		}
	}

	for seq, t := range rec.Tours {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tours (problem_id, seq, nodes) VALUES (?, ?, ?)`, id, seq, joinInts(t)); err != nil {
			return 0, err
		}
	}
	for _, p := range rec.Precedences {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO precedences (problem_id, before_idx, after_idx) VALUES (?, ?, ?)`,
			id, p.Before, p.After); err != nil {
			return 0, err
		}
	}
	if err := saveEdges(ctx, tx, id, false, rec.Edges); err != nil {
		return 0, err
	}
	if err := saveEdges(ctx, tx, id, true, rec.FixedEdges); err != nil {
		return 0, err
	}
	for seq, q := range rec.Quirks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quirks (problem_id, seq, kind, detail) VALUES (?, ?, ?, ?)`,
			id, seq, string(q.Kind), q.Detail); err != nil {
			return 0, err
		}
	}
	for seq, e := range rec.Extras {
		lines, err := json.Marshal(e.Lines)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO extras (problem_id, seq, keyword, value, line, lines) VALUES (?, ?, ?, ?, ?, ?)`,
			id, seq, e.Keyword, e.Value, e.Line, string(lines)); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func saveNodes(ctx context.Context, tx *sql.Tx, id int64, nodes []problem.Node) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (problem_id, idx, x, y, z, dx, dy, demand, is_depot) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range nodes {
		x, y, z := coord(n.Coords, 0), coord(n.Coords, 1), coord(n.Coords, 2)
		dx, dy := coord(n.Display, 0), coord(n.Display, 1)
		if _, err := stmt.ExecContext(ctx, id, n.Index, x, y, z, dx, dy, n.Demand, n.IsDepot); err != nil {
			return err
		}
	}
	return nil
}

func saveEdges(ctx context.Context, tx *sql.Tx, id int64, fixed bool, edges []problem.Edge) error {
	for seq, e := range edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (problem_id, fixed, seq, from_idx, to_idx) VALUES (?, ?, ?, ?, ?)`,
			id, fixed, seq, e.From, e.To); err != nil {
			return err
		}
	}
	return nil
}

func coord(values []float64, i int) sql.NullFloat64 {
	if i >= len(values) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: values[i], Valid: true}
}

func joinInts(values []int) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

func splitInts(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("corrupt integer list: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
