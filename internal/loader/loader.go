// Package loader reads delimited meter exports into a table.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/table"
)

// DefaultDelimiter is the field separator of the battery measurement exports.
const DefaultDelimiter = ';'

// nullTokens load as missing values.
var nullTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"NULL": true,
	"null": true,
	"None": true,
	"<NA>": true,
}

// Loader reads delimited files.
type Loader struct {
	logger *slog.Logger
}

// New creates a loader; a nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads the file at path. Files ending in .zst or .gz are decompressed.
func (l *Loader) Load(path string, delimiter rune) (*table.Table, error) {
	l.logger.Info("loading battery data from file", slog.String("path", path))

	file, err := os.Open(path)
	if err != nil {
		return nil, apperr.NewIOError("load", path, err)
	}
	defer file.Close()

	var r io.Reader = file
	switch {
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(file)
		if err != nil {
			return nil, apperr.NewIOError("load", path, fmt.Errorf("opening zstd stream: %w", err))
		}
		defer dec.Close()
		r = dec
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, apperr.NewIOError("load", path, fmt.Errorf("opening gzip stream: %w", err))
		}
		defer gz.Close()
		r = gz
	}

	t, err := l.LoadReader(r, delimiter)
	if err != nil {
		return nil, err
	}

	if info, statErr := file.Stat(); statErr == nil {
		l.logger.Info("loaded battery data",
			slog.String("records", humanize.Comma(int64(t.Len()))),
			slog.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	return t, nil
}

// LoadReader parses delimited text from r. The first record is the header.
// Every data row must have exactly as many fields as the header.
func (l *Loader) LoadReader(r io.Reader, delimiter rune) (*table.Table, error) {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}

	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.NewParseError("load", 1, "missing header row", nil)
	}
	if err != nil {
		return nil, wrapReadError(err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	// A UTF-8 byte order mark ends up glued to the first column name.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	t, err := table.New(header...)
	if err != nil {
		return nil, apperr.NewParseError("load", 1, "invalid header", err)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapReadError(err)
		}

		if len(record) != len(header) {
			line, _ := reader.FieldPos(0)
			return nil, apperr.NewParseError("load", line,
				fmt.Sprintf("expected %d fields, got %d", len(header), len(record)), nil)
		}

		row := make([]table.Value, len(record))
		for i, field := range record {
			if nullTokens[strings.TrimSpace(field)] {
				row[i] = table.Null()
				continue
			}
			row[i] = table.Text(field)
		}
		if err := t.Append(row...); err != nil {
			return nil, apperr.NewParseError("load", 0, "appending row", err)
		}
	}

	return t, nil
}

func wrapReadError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return apperr.NewParseError("load", perr.Line, "malformed delimited text", err)
	}
	return apperr.NewIOError("load", "", err)
}
