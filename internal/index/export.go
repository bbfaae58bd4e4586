// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Records returns every record in insertion order.
func (s *Store) Records(ctx context.Context) ([]types.IndexRecord, error) {
	records := []types.IndexRecord{}
	err := s.each(ctx, func(r types.IndexRecord) bool {
		records = append(records, r)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("reading records for export: %w", err)
	}
	return records, nil
}

// WriteYAML writes every record to w as a YAML sequence.
func (s *Store) WriteYAML(ctx context.Context, w io.Writer) error {
	records, err := s.Records(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// WriteJSON writes every record to w as an indented JSON array.
func (s *Store) WriteJSON(ctx context.Context, w io.Writer) error {
	records, err := s.Records(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

// Export writes the index to <dir>/export.yaml or <dir>/export.json and
// returns the path written.
func (s *Store) Export(ctx context.Context, format string) (string, error) {
	var write func(context.Context, io.Writer) error
	switch format {
	case "yaml", "":
		format, write = "yaml", s.WriteYAML
	case "json":
		write = s.WriteJSON
	default:
		return "", fmt.Errorf("unknown export format %q (want yaml or json)", format)
	}

	path := filepath.Join(s.dir, "export."+format)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := write(ctx, f); err != nil {
		return "", err
	}
	return path, f.Close()
}
