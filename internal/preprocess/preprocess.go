// Package preprocess implements the cleaning steps applied to loaded meter
// readings before aggregation. Every step returns a new table and leaves its
// input untouched; the steps must run in the order
// DropValues, RemoveDuplicates, ConvertTypes, ConvertTimestamp, FillNulls,
// ExtractTimeFeatures.
package preprocess

import (
	"log/slog"
	"time"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/table"
)

// Preprocessor runs the cleaning steps and reports what each removed.
type Preprocessor struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithClock sets the clock used to anchor time-only timestamps on a date.
func WithClock(now func() time.Time) Option {
	return func(p *Preprocessor) {
		p.now = now
	}
}

// New creates a Preprocessor; a nil logger falls back to slog.Default().
func New(logger *slog.Logger, opts ...Option) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Preprocessor{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DropValues removes every row whose cell in column equals value and returns
// the number of rows removed.
func (p *Preprocessor) DropValues(t *table.Table, column string, value table.Value) (*table.Table, int, error) {
	if !t.HasColumn(column) {
		return nil, 0, apperr.NewColumnError("drop values", column)
	}

	out := t.Filter(func(i int) bool {
		return !t.Get(i, column).Equal(value)
	})
	removed := t.Len() - out.Len()

	p.logger.Info("removed rows with value",
		slog.Int("rows", removed),
		slog.String("value", value.String()),
		slog.String("column", column))
	return out, removed, nil
}

// RemoveDuplicates drops every row whose combination of values over keyColumns
// occurs more than once in the table. All rows of such a combination are
// removed, not only the repeats. It returns the number of rows removed.
func (p *Preprocessor) RemoveDuplicates(t *table.Table, keyColumns []string) (*table.Table, int, error) {
	cols := make([]int, len(keyColumns))
	for i, c := range keyColumns {
		idx := t.ColumnIndex(c)
		if idx < 0 {
			return nil, 0, apperr.NewColumnError("remove duplicates", c)
		}
		cols[i] = idx
	}

	keys := make([]string, t.Len())
	counts := make(map[string]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		keys[i] = t.KeyOf(i, cols)
		counts[keys[i]]++
	}

	out := t.Filter(func(i int) bool {
		return counts[keys[i]] == 1
	})
	removed := t.Len() - out.Len()

	p.logger.Info("removed duplicate rows",
		slog.Int("rows", removed),
		slog.Any("keys", keyColumns))
	return out, removed, nil
}
