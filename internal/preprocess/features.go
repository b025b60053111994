package preprocess

import (
	"fmt"
	"time"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/table"
)

// Calendar feature columns added by ExtractTimeFeatures.
const (
	ColumnHour      = "hour"
	ColumnDay       = "day"
	ColumnMonth     = "month"
	ColumnYear      = "year"
	ColumnDayOfWeek = "dayofweek"
)

// DayOfWeek numbers weekdays from 0 (Monday) to 6 (Sunday).
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ExtractTimeFeatures derives hour, day, month, year and dayofweek from a
// converted timestamp column. Existing columns of those names are overwritten,
// so applying it twice gives the same result. Missing timestamps give missing
// features.
func (p *Preprocessor) ExtractTimeFeatures(t *table.Table, column string) (*table.Table, error) {
	if !t.HasColumn(column) {
		return nil, apperr.NewColumnError("extract time features", column)
	}

	n := t.Len()
	features := map[string][]table.Value{
		ColumnHour:      make([]table.Value, n),
		ColumnDay:       make([]table.Value, n),
		ColumnMonth:     make([]table.Value, n),
		ColumnYear:      make([]table.Value, n),
		ColumnDayOfWeek: make([]table.Value, n),
	}

	for i, v := range t.Column(column) {
		if v.IsNull() {
			for _, col := range features {
				col[i] = table.Null()
			}
			continue
		}
		ts, ok := v.Time()
		if !ok {
			return nil, apperr.NewDateParseError("extract time features", column, i, v.String(),
				fmt.Errorf("%s value has not been converted to a timestamp", v.Kind()))
		}
		features[ColumnHour][i] = table.Int(int64(ts.Hour()))
		features[ColumnDay][i] = table.Int(int64(ts.Day()))
		features[ColumnMonth][i] = table.Int(int64(ts.Month()))
		features[ColumnYear][i] = table.Int(int64(ts.Year()))
		features[ColumnDayOfWeek][i] = table.Int(int64(DayOfWeek(ts)))
	}

	out := t
	for _, name := range []string{ColumnHour, ColumnDay, ColumnMonth, ColumnYear, ColumnDayOfWeek} {
		next, err := out.WithColumn(name, features[name])
		if err != nil {
			return nil, fmt.Errorf("adding column %s: %w", name, err)
		}
		out = next
	}
	return out, nil
}
