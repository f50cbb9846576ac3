package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader reads labeled samples from a JSONL or Parquet file
type Loader struct {
	datasetPath string
}

// NewLoader creates a new dataset loader
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// Load loads every sample in the dataset
func (l *Loader) Load() ([]Sample, error) {
	return l.LoadSample(-1)
}

// LoadSample loads at most limit samples. A limit below one loads everything.
func (l *Loader) LoadSample(limit int) ([]Sample, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".parquet":
		return l.loadParquet(limit)
	case ".jsonl", ".json":
		return l.loadJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func full(records []Sample, limit int) bool {
	return limit > 0 && len(records) >= limit
}

// loadJSONL loads samples from a JSONL file
func (l *Loader) loadJSONL(limit int) ([]Sample, error) {
	slog.Debug("Opening JSONL file", "path", l.datasetPath, "limit", limit)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var records []Sample
	scanner := bufio.NewScanner(file)

	// Base64 images make for long lines
	const maxCapacity = 10 * 1024 * 1024 // 10MB per line
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for !full(records, limit) && scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		if len(line) == 0 {
			continue
		}

		var record Sample
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		if !record.Valid() {
			slog.Warn("Skipping sample without image or label", "line", lineNum, "id", record.ID)
			continue
		}
		if record.ID == "" {
			record.ID = fmt.Sprintf("line-%d", lineNum)
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_records", len(records), "total_lines", lineNum)

	return records, nil
}

// loadParquet loads samples from a Parquet file
func (l *Loader) loadParquet(limit int) ([]Sample, error) {
	slog.Debug("Opening Parquet file", "path", l.datasetPath, "limit", limit)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	slog.Debug("Parquet file stats", "size_bytes", info.Size(), "size_mb", info.Size()/1024/1024)

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Sample](pf)
	defer reader.Close()

	return readRows(reader, limit)
}

// rowReader is the subset of parquet.GenericReader used by readRows
type rowReader interface {
	Read(rows []Sample) (int, error)
}

// readRows drains reader in batches. Only io.EOF ends the read; any other
// error fails the load rather than returning a short dataset.
func readRows(reader rowReader, limit int) ([]Sample, error) {
	var records []Sample
	rows := make([]Sample, 128) // Read in batches

	batchNum := 0
	rowNum := 0
	for !full(records, limit) {
		n, err := reader.Read(rows)
		if n > 0 {
			batchNum++
			for _, row := range rows[:n] {
				rowNum++
				if !row.Valid() {
					slog.Warn("Skipping sample without image or label", "row", rowNum, "id", row.ID)
					continue
				}
				if row.ID == "" {
					row.ID = fmt.Sprintf("row-%d", rowNum)
				}
				records = append(records, row)
				if full(records, limit) {
					break
				}
			}
			slog.Debug("Read batch from Parquet", "batch", batchNum, "rows_in_batch", n, "total_rows_read", rowNum)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows after row %d: %w", rowNum, err)
		}
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(records), "total_batches", batchNum)

	return records, nil
}
