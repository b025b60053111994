package preprocess

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/table"
)

func newTestPreprocessor() *Preprocessor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixed := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return New(logger, WithClock(func() time.Time { return fixed }))
}

// readings builds a table of raw text cells; "" becomes a missing value.
func readings(t *testing.T, columns []string, rows ...[]string) *table.Table {
	t.Helper()
	tbl := table.MustNew(columns...)
	for _, r := range rows {
		vals := make([]table.Value, len(r))
		for i, s := range r {
			if s == "" {
				vals[i] = table.Null()
				continue
			}
			vals[i] = table.Text(s)
		}
		require.NoError(t, tbl.Append(vals...))
	}
	return tbl
}

var meterColumns = []string{"timestamp", "serial", "label", "grid_purchase", "grid_feedin"}

func TestDropValues(t *testing.T) {
	p := newTestPreprocessor()
	src := readings(t, meterColumns,
		[]string{"08:00", "A", "Dev test", "10", "5"},
		[]string{"08:00", "A", "ok", "10", "5"},
		[]string{"09:00", "B", "Dev test", "20", ""},
		[]string{"09:00", "B", "dev test", "20", "30"},
	)

	out, removed, err := p.DropValues(src, "label", table.Text("Dev test"))
	require.NoError(t, err)

	assert.Equal(t, 2, removed)
	assert.Equal(t, src.Len()-removed, out.Len())
	for i := 0; i < out.Len(); i++ {
		assert.False(t, out.Get(i, "label").Equal(table.Text("Dev test")))
	}
	assert.Equal(t, 4, src.Len(), "input must not be modified")
}

func TestDropValuesMissingColumn(t *testing.T) {
	p := newTestPreprocessor()
	_, _, err := p.DropValues(readings(t, []string{"a"}), "label", table.Text("Dev test"))
	assert.True(t, errors.Is(err, apperr.ErrColumn))
}

func TestRemoveDuplicatesDropsWholeGroups(t *testing.T) {
	p := newTestPreprocessor()
	src := readings(t, meterColumns,
		[]string{"08:00", "A", "ok", "10", "5"},
		[]string{"09:00", "B", "ok", "20", ""},
		[]string{"09:00", "B", "ok", "20", "30"},
		[]string{"09:00", "C", "ok", "1", "1"},
		[]string{"10:00", "A", "ok", "1", "1"},
		[]string{"10:00", "A", "ok", "2", "2"},
		[]string{"10:00", "A", "ok", "3", "3"},
	)

	out, removed, err := p.RemoveDuplicates(src, []string{"timestamp", "serial"})
	require.NoError(t, err)

	assert.Equal(t, 5, removed)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, table.Text("A"), out.Get(0, "serial"))
	assert.Equal(t, table.Text("C"), out.Get(1, "serial"))

	seen := map[string]bool{}
	for i := 0; i < out.Len(); i++ {
		k := out.Get(i, "timestamp").Key() + "|" + out.Get(i, "serial").Key()
		assert.False(t, seen[k], "duplicate key survived: %s", k)
		seen[k] = true
	}
}

func TestRemoveDuplicatesMissingColumn(t *testing.T) {
	p := newTestPreprocessor()
	_, _, err := p.RemoveDuplicates(readings(t, []string{"timestamp"}), []string{"timestamp", "serial"})
	assert.True(t, errors.Is(err, apperr.ErrColumn))
}

func TestConvertTypes(t *testing.T) {
	p := newTestPreprocessor()
	src := readings(t, []string{"grid_purchase", "grid_feedin", "serial"},
		[]string{"10", " 2.5 ", "A"},
		[]string{"", "nan", "B"},
	)

	out, err := p.ConvertTypes(src, []Conversion{
		{Column: "grid_purchase", Type: TypeFloat},
		{Column: "grid_feedin", Type: TypeFloat},
		{Column: "absent", Type: TypeFloat},
	})
	require.NoError(t, err)

	assert.Equal(t, table.Float(10), out.Get(0, "grid_purchase"))
	assert.Equal(t, table.Float(2.5), out.Get(0, "grid_feedin"))
	assert.True(t, out.Get(1, "grid_purchase").IsNull())
	assert.True(t, out.Get(1, "grid_feedin").IsNull())
	assert.Equal(t, table.Text("A"), out.Get(0, "serial"))
	assert.False(t, out.HasColumn("absent"))
	assert.Equal(t, table.Text("10"), src.Get(0, "grid_purchase"))
}

func TestConvertTypesFailure(t *testing.T) {
	p := newTestPreprocessor()
	src := readings(t, []string{"grid_purchase"}, []string{"1"}, []string{"Dev test"})

	_, err := p.ConvertTypes(src, []Conversion{{Column: "grid_purchase", Type: TypeFloat}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrTypeConversion))
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 1, appErr.Row)
	assert.Equal(t, "Dev test", appErr.Value)
}

func TestConvertTypesInt(t *testing.T) {
	p := newTestPreprocessor()

	out, err := p.ConvertTypes(readings(t, []string{"n"}, []string{"7"}), []Conversion{{Column: "n", Type: TypeInt}})
	require.NoError(t, err)
	assert.Equal(t, table.Int(7), out.Get(0, "n"))

	_, err = p.ConvertTypes(readings(t, []string{"n"}, []string{""}), []Conversion{{Column: "n", Type: TypeInt}})
	assert.True(t, errors.Is(err, apperr.ErrTypeConversion))
}

func TestParseType(t *testing.T) {
	for name, want := range map[string]Type{
		"float": TypeFloat, "float64": TypeFloat, "double": TypeFloat, "number": TypeFloat,
		"int": TypeInt, "int64": TypeInt, "integer": TypeInt,
		"string": TypeString, "str": TypeString, "text": TypeString,
	} {
		typ, err := ParseType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, typ, name)
	}

	for _, name := range []string{"complex", "Float", " int"} {
		_, err := ParseType(name)
		assert.Error(t, err, name)
	}
}

func TestConvertTimestamp(t *testing.T) {
	p := newTestPreprocessor()
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-04 08:15:00", time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)},
		{"2024-03-04T08:15:00", time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)},
		{"2024-03-04 08:15:00.250", time.Date(2024, 3, 4, 8, 15, 0, 250000000, time.UTC)},
		{"2024-03-04", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"3/4/2024 17:30", time.Date(2024, 3, 4, 17, 30, 0, 0, time.UTC)},
		{"08:00", time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)},
		{"08:00:30", time.Date(2024, 3, 4, 8, 0, 30, 0, time.UTC)},
		{"2024-03-04T08:00:00+0000", time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)},
		{"2024-03-04T08:00:00.123+0100", time.Date(2024, 3, 4, 8, 0, 0, 123000000, time.FixedZone("", 3600))},
		{"2024-03-04 08:00:00 +0000", time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)},
		{"2024-03-04 08:00:00 UTC", time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)},
		{"03/04/2024 08:00:00 AM", time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)},
		{"03/04/2024 08:00:00 PM", time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)},
		{"20240304 08:00", time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)},
		{"4.3.2024 08:00", time.Date(2024, 4, 3, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			out, err := p.ConvertTimestamp(readings(t, []string{"timestamp"}, []string{tt.in}), "timestamp")
			require.NoError(t, err)
			got, ok := out.Get(0, "timestamp").Time()
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestConvertTimestampKeepsOffsetWallClock(t *testing.T) {
	p := newTestPreprocessor()

	out, err := p.ConvertTimestamp(readings(t, []string{"timestamp"}, []string{"2024-03-04 23:30:00+02:00"}), "timestamp")
	require.NoError(t, err)

	ts, ok := out.Get(0, "timestamp").Time()
	require.True(t, ok)
	assert.Equal(t, 23, ts.Hour())
}

func TestConvertTimestampFailure(t *testing.T) {
	p := newTestPreprocessor()
	src := readings(t, []string{"timestamp"}, []string{"2024-03-04 08:00:00"}, []string{""}, []string{"yesterday"})

	_, err := p.ConvertTimestamp(src, "timestamp")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDateParse))
	assert.Contains(t, err.Error(), "yesterday")
}

func TestFillNulls(t *testing.T) {
	p := newTestPreprocessor()
	src := table.MustNew("a", "b", "c", "d")
	rows := [][]table.Value{
		{table.Float(1), table.Float(1), table.Text("x"), table.Null()},
		{table.Null(), table.Float(2), table.Text("y"), table.Float(4)},
		{table.Float(3), table.Null(), table.Text("y"), table.Null()},
		{table.Float(10), table.Float(6), table.Null(), table.Float(2)},
	}
	for _, r := range rows {
		require.NoError(t, src.Append(r...))
	}

	out, err := p.FillNulls(src, []Fill{
		{Column: "a", Strategy: ParseFillStrategy("median")},
		{Column: "b", Strategy: ParseFillStrategy("mean")},
		{Column: "c", Strategy: ParseFillStrategy("mode")},
		{Column: "d", Strategy: ParseFillStrategy("0")},
		{Column: "absent", Strategy: ParseFillStrategy("median")},
	})
	require.NoError(t, err)

	assert.Equal(t, table.Float(3), out.Get(1, "a"))
	assert.Equal(t, table.Float(3), out.Get(2, "b"))
	assert.Equal(t, table.Text("y"), out.Get(3, "c"))
	assert.Equal(t, table.Float(0), out.Get(0, "d"))
	for _, col := range []string{"a", "b", "c", "d"} {
		for _, v := range out.Column(col) {
			assert.False(t, v.IsNull(), "column %s still has missing values", col)
		}
	}
	assert.True(t, src.Get(1, "a").IsNull(), "input must not be modified")
}

func TestFillNullsModeTieGoesToFirstSeen(t *testing.T) {
	p := newTestPreprocessor()
	src := readings(t, []string{"serial"}, []string{"B"}, []string{"A"}, []string{"A"}, []string{"B"}, []string{""})

	out, err := p.FillNulls(src, []Fill{{Column: "serial", Strategy: ParseFillStrategy("mode")}})
	require.NoError(t, err)

	assert.Equal(t, table.Text("B"), out.Get(4, "serial"))
}

func TestFillNullsMedianEvenCount(t *testing.T) {
	p := newTestPreprocessor()
	src := table.MustNew("x")
	for _, v := range []table.Value{table.Float(1), table.Float(4), table.Null(), table.Float(2), table.Float(10)} {
		require.NoError(t, src.Append(v))
	}

	out, err := p.FillNulls(src, []Fill{{Column: "x", Strategy: ParseFillStrategy("median")}})
	require.NoError(t, err)

	assert.Equal(t, table.Float(3), out.Get(2, "x"))
}

func TestFillNullsNonNumericMedian(t *testing.T) {
	p := newTestPreprocessor()
	_, err := p.FillNulls(readings(t, []string{"x"}, []string{"a"}, []string{""}),
		[]Fill{{Column: "x", Strategy: ParseFillStrategy("median")}})
	assert.True(t, errors.Is(err, apperr.ErrTypeConversion))
}

func TestFillNullsAllMissingLeavesColumn(t *testing.T) {
	p := newTestPreprocessor()
	out, err := p.FillNulls(readings(t, []string{"x"}, []string{""}),
		[]Fill{{Column: "x", Strategy: ParseFillStrategy("mean")}})
	require.NoError(t, err)
	assert.True(t, out.Get(0, "x").IsNull())
}

func TestParseFillStrategy(t *testing.T) {
	assert.Equal(t, FillMedian, ParseFillStrategy("median").Method)
	assert.Equal(t, FillStrategy{Method: FillLiteral, Literal: table.Float(1.5)}, ParseFillStrategy("1.5"))
	assert.Equal(t, FillStrategy{Method: FillLiteral, Literal: table.Text("unknown")}, ParseFillStrategy("unknown"))
}

func TestExtractTimeFeatures(t *testing.T) {
	p := newTestPreprocessor()
	src := table.MustNew("timestamp")
	// 2024-03-10 is a Sunday.
	require.NoError(t, src.Append(table.Time(time.Date(2024, 3, 10, 23, 45, 0, 0, time.UTC))))
	require.NoError(t, src.Append(table.Null()))

	out, err := p.ExtractTimeFeatures(src, "timestamp")
	require.NoError(t, err)

	assert.Equal(t, []string{"timestamp", "hour", "day", "month", "year", "dayofweek"}, out.Columns())
	assert.Equal(t, table.Int(23), out.Get(0, "hour"))
	assert.Equal(t, table.Int(10), out.Get(0, "day"))
	assert.Equal(t, table.Int(3), out.Get(0, "month"))
	assert.Equal(t, table.Int(2024), out.Get(0, "year"))
	assert.Equal(t, table.Int(6), out.Get(0, "dayofweek"))
	assert.True(t, out.Get(1, "hour").IsNull())
}

func TestExtractTimeFeaturesIdempotent(t *testing.T) {
	p := newTestPreprocessor()
	src := table.MustNew("timestamp")
	for h := 0; h < 24; h += 5 {
		require.NoError(t, src.Append(table.Time(time.Date(2024, 1, 1+h, h, 0, 0, 0, time.UTC))))
	}

	once, err := p.ExtractTimeFeatures(src, "timestamp")
	require.NoError(t, err)
	twice, err := p.ExtractTimeFeatures(once, "timestamp")
	require.NoError(t, err)

	assert.Equal(t, once.Columns(), twice.Columns())
	assert.Equal(t, once.Records(), twice.Records())
}

func TestExtractTimeFeaturesRequiresConversion(t *testing.T) {
	p := newTestPreprocessor()
	_, err := p.ExtractTimeFeatures(readings(t, []string{"timestamp"}, []string{"2024-01-01"}), "timestamp")
	assert.True(t, errors.Is(err, apperr.ErrDateParse))
}

func TestDayOfWeekMondayIsZero(t *testing.T) {
	assert.Equal(t, 0, DayOfWeek(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 6, DayOfWeek(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)))
}
