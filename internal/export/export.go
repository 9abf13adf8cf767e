// Package export writes registry snapshots to interchange formats. The
// output format is chosen by file extension: .parquet, .jsonl, .csv or
// .yaml.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/inventory-tools/scanreg/internal/models"
)

// row is the flat export schema shared by all formats.
type row struct {
	ID        string    `parquet:"id" json:"id" yaml:"id"`
	Code      string    `parquet:"code" json:"code" yaml:"code"`
	Name      string    `parquet:"name" json:"name" yaml:"name"`
	Price     float64   `parquet:"price" json:"price" yaml:"price"`
	CreatedAt time.Time `parquet:"created_at,timestamp" json:"created_at" yaml:"created_at"`
}

// snapshot is the YAML document shape: a small header plus the rows, in
// the style of the evals this tool's lineage produced.
type snapshot struct {
	ExportedAt time.Time `yaml:"exported_at"`
	Count      int       `yaml:"count"`
	TotalValue float64   `yaml:"total_value"`
	Products   []row     `yaml:"products"`
}

func toRows(products []models.Product) []row {
	rows := make([]row, 0, len(products))
	for _, p := range products {
		rows = append(rows, row{ID: p.ID, Code: p.Code, Name: p.Name, Price: p.Price, CreatedAt: p.CreatedAt})
	}
	return rows
}

// Write dumps the snapshot to path, picking the format from the
// extension.
func Write(path string, products []models.Product) error {
	ext := strings.ToLower(filepath.Ext(path))
	var err error
	switch ext {
	case ".parquet":
		err = writeParquet(path, products)
	case ".jsonl", ".json":
		err = writeJSONL(path, products)
	case ".csv":
		err = writeCSV(path, products)
	case ".yaml", ".yml":
		err = writeYAML(path, products)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: .parquet, .jsonl, .csv, .yaml)", ext)
	}
	if err != nil {
		return err
	}
	slog.Info("Exported registry snapshot", "path", path, "products", len(products))
	return nil
}

func writeParquet(path string, products []models.Product) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[row](file)
	if _, err := writer.Write(toRows(products)); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

func writeJSONL(path string, products []models.Product) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, r := range toRows(products) {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write JSONL row: %w", err)
		}
	}
	return nil
}

func writeCSV(path string, products []models.Product) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"id", "code", "name", "price", "created_at"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range toRows(products) {
		record := []string{
			r.ID,
			r.Code,
			r.Name,
			strconv.FormatFloat(r.Price, 'f', -1, 64),
			r.CreatedAt.Format(time.RFC3339Nano),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func writeYAML(path string, products []models.Product) error {
	doc := snapshot{
		ExportedAt: time.Now(),
		Count:      len(products),
		Products:   toRows(products),
	}
	for _, p := range products {
		doc.TotalValue += p.Price
	}
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
