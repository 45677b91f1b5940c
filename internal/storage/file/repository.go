package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ceneo-opinions/internal/observability"
	"ceneo-opinions/internal/scraper"
	"ceneo-opinions/internal/stats"
	"ceneo-opinions/internal/storage"
)

const (
	opinionsDir = "opinions"
	productsDir = "products"
	indent      = "    "
)

// Repository keeps one JSON document per product under
// <dir>/opinions/<id>.json and <dir>/products/<id>.json.
type Repository struct {
	dir    string
	logger *observability.Logger
}

func NewRepository(dir string, logger *observability.Logger) (*Repository, error) {
	for _, sub := range []string{opinionsDir, productsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return &Repository{dir: dir, logger: logger}, nil
}

func (r *Repository) opinionsPath(productID string) string {
	return filepath.Join(r.dir, opinionsDir, productID+".json")
}

func (r *Repository) statsPath(productID string) string {
	return filepath.Join(r.dir, productsDir, productID+".json")
}

func (r *Repository) Save(ctx context.Context, productID string, records []scraper.Record, st *stats.ProductStats) error {
	if err := storage.ValidateProductID(productID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []scraper.Record{}
	}

	opinions, err := encode(records)
	if err != nil {
		return fmt.Errorf("failed to encode opinions: %w", err)
	}
	product, err := encode(st)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	if err := writeAtomic(r.opinionsPath(productID), opinions); err != nil {
		return err
	}
	if err := writeAtomic(r.statsPath(productID), product); err != nil {
		return err
	}

	r.logger.Debug("Product saved",
		"product_id", productID,
		"opinions", len(records),
		"bytes", len(opinions)+len(product),
	)
	return nil
}

func (r *Repository) Opinions(ctx context.Context, productID string) ([]scraper.Record, error) {
	if err := storage.ValidateProductID(productID); err != nil {
		return nil, err
	}
	var records []scraper.Record
	if err := readJSON(r.opinionsPath(productID), &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []scraper.Record{}
	}
	return records, nil
}

func (r *Repository) Stats(ctx context.Context, productID string) (*stats.ProductStats, error) {
	if err := storage.ValidateProductID(productID); err != nil {
		return nil, err
	}
	var st stats.ProductStats
	if err := readJSON(r.statsPath(productID), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *Repository) ListStats(ctx context.Context) ([]*stats.ProductStats, error) {
	entries, err := os.ReadDir(filepath.Join(r.dir, productsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*stats.ProductStats{}, nil
		}
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if storage.ValidateProductID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*stats.ProductStats, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st, err := r.Stats(ctx, id)
		if err != nil {
			r.logger.Warn("Skipping unreadable product", "product_id", id, "error", err)
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (r *Repository) Close() error { return nil }

// encode writes UTF-8 JSON with 4-space indentation and no HTML or
// non-ASCII escaping.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
