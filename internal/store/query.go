package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frederic-klein/tspingest/internal/matrix"
	"github.com/frederic-klein/tspingest/internal/problem"
)

// Summary is one row of List.
type Summary struct {
	Name           string    `json:"name" yaml:"name"`
	Kind           string    `json:"kind" yaml:"kind"`
	Dimension      int       `json:"dimension" yaml:"dimension"`
	EdgeWeightType string    `json:"edge_weight_type,omitempty" yaml:"edge_weight_type,omitempty"`
	Quirks         int       `json:"quirks" yaml:"quirks"`
	SourcePath     string    `json:"source_path" yaml:"source_path"`
	RunID          string    `json:"run_id" yaml:"run_id"`
	IngestedAt     time.Time `json:"ingested_at" yaml:"ingested_at"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Kind       problem.Kind
	NamePrefix string
	Limit      int
}

// List returns stored problems ordered by name.
func (s *Store) List(ctx context.Context, f Filter) ([]Summary, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "p.kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.NamePrefix != "" {
		where = append(where, "p.name LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(f.NamePrefix)+"%")
	}

	query := `SELECT p.name, p.kind, p.dimension, p.edge_weight_type, p.source_path, p.run_id, p.ingested_at,
		(SELECT COUNT(*) FROM quirks q WHERE q.problem_id = p.id)
		FROM problems p`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.name"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing problems: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum      Summary
			ingested string
		)
		if err := rows.Scan(&sum.Name, &sum.Kind, &sum.Dimension, &sum.EdgeWeightType,
			&sum.SourcePath, &sum.RunID, &ingested, &sum.Quirks); err != nil {
			return nil, fmt.Errorf("listing problems: %w", err)
		}
		sum.IngestedAt, _ = parseTime(ingested)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// LoadRecord rebuilds the record stored under name.
func (s *Store) LoadRecord(ctx context.Context, name string) (*problem.Record, error) {
	var (
		id       int64
		rec      problem.Record
		spec     = &rec.Spec
		kind     string
		ewt, ewf string
		capacity sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, kind, type_raw, comment, dimension, capacity, edge_weight_type, edge_weight_raw, edge_weight_format,
			edge_data_format, node_coord_type, display_data_type, index_base, customer_only
		 FROM problems WHERE name = ?`, name).
		Scan(&id, &spec.Name, &kind, &spec.TypeRaw, &spec.Comment, &spec.Dimension, &capacity, &ewt, &spec.EdgeWeightTypeRaw, &ewf,
			&spec.EdgeDataFormat, &spec.NodeCoordType, &spec.DisplayDataType, &rec.IndexBase, &rec.MatrixOffset)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}

	spec.Kind = problem.Kind(kind)
	spec.EdgeWeightType = problem.EdgeWeightType(ewt)
	spec.EdgeWeightFormat = matrix.Format(ewf)
	if capacity.Valid {
		c := int(capacity.Int64)
		spec.Capacity = &c
	}

	loaders := []func(context.Context, int64, *problem.Record) error{
		s.loadNodes,
		s.loadMatrix,
		s.loadTours,
		s.loadPrecedences,
		s.loadEdges,
		s.loadQuirks,
		s.loadExtras,
	}
	for _, load := range loaders {
		if err := load(ctx, id, &rec); err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
	}
	return &rec, nil
}

func (s *Store) loadNodes(ctx context.Context, id int64, rec *problem.Record) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, x, y, z, dx, dy, demand, is_depot FROM nodes WHERE problem_id = ? ORDER BY idx`, id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n               problem.Node
			x, y, z, dx, dy sql.NullFloat64
		)
		if err := rows.Scan(&n.Index, &x, &y, &z, &dx, &dy, &n.Demand, &n.IsDepot); err != nil {
			return err
		}
		n.Coords = coords(x, y, z)
		n.Display = coords(dx, dy)
		if n.IsDepot {
			rec.Depots = append(rec.Depots, n.Index)
		}
		rec.Nodes = append(rec.Nodes, n)
	}
	return rows.Err()
}

func coords(values ...sql.NullFloat64) []float64 {
	var out []float64
	for _, v := range values {
		if !v.Valid {
			break
		}
		out = append(out, v.Float64)
	}
	return out
}

func (s *Store) loadMatrix(ctx context.Context, id int64, rec *problem.Record) error {
	var (
		format string
		n      int
		data   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT format, dimension, data FROM weights WHERE problem_id = ?`, id).Scan(&format, &n, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	weights, err := splitInts(data)
	if err != nil {
		return err
	}
	m, err := matrix.New(matrix.Format(format), n, weights)
	if err != nil {
		return err
	}
	rec.Matrix = m
	return nil
}

func (s *Store) loadTours(ctx context.Context, id int64, rec *problem.Record) error {
	rows, err := s.db.QueryContext(ctx, `SELECT nodes FROM tours WHERE problem_id = ? ORDER BY seq`, id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return err
		}
		t, err := splitInts(data)
		if err != nil {
			return err
		}
		rec.Tours = append(rec.Tours, problem.Tour(t))
	}
	return rows.Err()
}

func (s *Store) loadPrecedences(ctx context.Context, id int64, rec *problem.Record) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT before_idx, after_idx FROM precedences WHERE problem_id = ? ORDER BY rowid`, id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p problem.PrecedencePair
		if err := rows.Scan(&p.Before, &p.After); err != nil {
			return err
		}
		rec.Precedences = append(rec.Precedences, p)
	}
	return rows.Err()
}

func (s *Store) loadEdges(ctx context.Context, id int64, rec *problem.Record) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fixed, from_idx, to_idx FROM edges WHERE problem_id = ? ORDER BY fixed, seq`, id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fixed bool
			e     problem.Edge
		)
		if err := rows.Scan(&fixed, &e.From, &e.To); err != nil {
			return err
		}
		if fixed {
			rec.FixedEdges = append(rec.FixedEdges, e)
		} else {
			rec.Edges = append(rec.Edges, e)
		}
	}
	return rows.Err()
}

func (s *Store) loadQuirks(ctx context.Context, id int64, rec *problem.Record) error {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, detail FROM quirks WHERE problem_id = ? ORDER BY seq`, id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind string
			q    problem.Quirk
		)
		if err := rows.Scan(&kind, &q.Detail); err != nil {
			return err
		}
		q.Kind = problem.QuirkKind(kind)
		rec.Quirks = append(rec.Quirks, q)
	}
	return rows.Err()
}

func (s *Store) loadExtras(ctx context.Context, id int64, rec *problem.Record) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, value, line, lines FROM extras WHERE problem_id = ? ORDER BY seq`, id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e     problem.Extra
			lines string
		)
		if err := rows.Scan(&e.Keyword, &e.Value, &e.Line, &lines); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(lines), &e.Lines); err != nil {
			return fmt.Errorf("corrupt extra lines: %w", err)
		}
		rec.Extras = append(rec.Extras, e)
	}
	return rows.Err()
}
