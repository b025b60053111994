package preprocess

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/table"
)

// timeOnlyLayouts carry no date; parsed values land on the clock's current day.
var timeOnlyLayouts = []string{"15:04:05", "15:04"}

// exactLayouts are compact and dotted dates with a time part, matched before
// inference. Dotted dates read month first, like slashed ones.
var exactLayouts = []string{
	"20060102 15:04:05",
	"20060102 15:04",
	"1.2.2006 15:04:05",
	"1.2.2006 15:04",
}

type timestampParser struct {
	now func() time.Time
}

func (tp *timestampParser) parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range timeOnlyLayouts {
		if t, err := time.Parse(l, s); err == nil {
			today := tp.now()
			return time.Date(today.Year(), today.Month(), today.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	for _, l := range exactLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date: %w", err)
	}
	return t, nil
}

// ConvertTimestamp parses the text cells of column into date-times, inferring
// the format of each cell. Values without a zone are read as UTC. Missing
// values stay missing.
func (p *Preprocessor) ConvertTimestamp(t *table.Table, column string) (*table.Table, error) {
	if !t.HasColumn(column) {
		return nil, apperr.NewColumnError("convert timestamp", column)
	}

	parser := &timestampParser{now: p.now}
	src := t.Column(column)
	values := make([]table.Value, len(src))
	parsed := 0
	for i, v := range src {
		switch v.Kind() {
		case table.KindNull, table.KindTime:
			values[i] = v
		case table.KindText:
			s, _ := v.Text()
			ts, err := parser.parse(s)
			if err != nil {
				return nil, apperr.NewDateParseError("convert timestamp", column, i, s, err)
			}
			values[i] = table.Time(ts)
			parsed++
		default:
			return nil, apperr.NewDateParseError("convert timestamp", column, i, v.String(),
				fmt.Errorf("%s value is not a timestamp", v.Kind()))
		}
	}

	out, err := t.WithColumn(column, values)
	if err != nil {
		return nil, fmt.Errorf("replacing column %s: %w", column, err)
	}

	p.logger.Debug("converted timestamp column",
		slog.String("column", column),
		slog.Int("parsed", parsed))
	return out, nil
}
