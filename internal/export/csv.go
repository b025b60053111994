// Package export writes the hourly summary to disk.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/table"
)

// WriteCSV writes t as comma-separated text with a header row. With withIndex
// set, a leading column with an empty header carries the row number.
func WriteCSV(w io.Writer, t *table.Table, withIndex bool) error {
	cw := csv.NewWriter(w)

	header := t.Columns()
	if withIndex {
		header = append([]string{""}, header...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range t.Records() {
		if withIndex {
			rec = append([]string{strconv.Itoa(i)}, rec...)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes t to path, creating parent directories as needed.
func WriteCSVFile(path string, t *table.Table, withIndex bool) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteCSV(w, t, withIndex)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperr.NewIOError("creating output directory", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return apperr.NewIOError("creating output file", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return apperr.NewIOError("writing output file", path, err)
	}
	if err := f.Close(); err != nil {
		return apperr.NewIOError("closing output file", path, err)
	}
	return nil
}
