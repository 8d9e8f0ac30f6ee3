// Package emit serializes parsed records for output.
package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/tspingest/internal/problem"
)

// Format selects the output encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Emitter writes documents to w.
type Emitter struct {
	w      io.Writer
	format Format
	dense  bool
}

// NewEmitter creates a new emitter. With dense set, explicit matrices are
// written as rows instead of their stored sequence.
func NewEmitter(w io.Writer, format Format, dense bool) *Emitter {
	return &Emitter{w: w, format: format, dense: dense}
}

// Emit writes one record.
func (e *Emitter) Emit(rec *problem.Record) error {
	return e.Encode(FromRecord(rec, e.dense))
}

// EmitAll writes records as one list, sorted by name.
func (e *Emitter) EmitAll(recs []*problem.Record) error {
	sorted := make([]*problem.Record, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Spec.Name < sorted[j].Spec.Name
	})

	docs := make([]Document, len(sorted))
	for i, rec := range sorted {
		docs[i] = FromRecord(rec, e.dense)
	}
	return e.Encode(docs)
}

// Encode writes any value in the emitter's format.
func (e *Emitter) Encode(v any) error {
	switch e.format {
	case JSON:
		enc := json.NewEncoder(e.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(e.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", e.format)
}
