// Package aggregate groups cleaned readings and finds the peak group.
package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/table"
)

// Func names an aggregation function.
type Func string

const (
	Sum    Func = "sum"
	Mean   Func = "mean"
	Min    Func = "min"
	Max    Func = "max"
	Count  Func = "count"
	Median Func = "median"
	First  Func = "first"
	Last   Func = "last"
)

// ParseFunc maps a configured function name to a Func.
func ParseFunc(s string) (Func, error) {
	f := Func(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case Sum, Mean, Min, Max, Count, Median, First, Last:
		return f, nil
	default:
		return "", fmt.Errorf("unknown aggregation function %q", s)
	}
}

// Spec aggregates one column with one function. The output column is named
// As, or Column when As is empty.
type Spec struct {
	Column string
	Func   Func
	As     string
}

func (s Spec) outputName() string {
	if s.As != "" {
		return s.As
	}
	return s.Column
}

// ErrNoRows is returned by FindMax when no row carries a value.
var ErrNoRows = errors.New("aggregate: no rows with a value")

// Aggregator computes grouped summaries.
type Aggregator struct {
	logger *slog.Logger
}

// New creates an Aggregator; a nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// Aggregate groups rows by equal values of groupColumn and applies each spec
// per group. Rows with a missing group key are left out. The result has one
// row per group, ordered by ascending key, with the key column first and one
// column per spec.
func (a *Aggregator) Aggregate(t *table.Table, groupColumn string, specs []Spec) (*table.Table, error) {
	if !t.HasColumn(groupColumn) {
		return nil, apperr.NewColumnError("aggregate", groupColumn)
	}
	columns := []string{groupColumn}
	for _, s := range specs {
		if !t.HasColumn(s.Column) {
			return nil, apperr.NewColumnError("aggregate", s.Column)
		}
		columns = append(columns, s.outputName())
	}

	out, err := table.New(columns...)
	if err != nil {
		return nil, apperr.NewConfigError("aggregation output columns", err)
	}

	type group struct {
		key  table.Value
		rows []int
	}
	groups := map[string]*group{}
	var order []*group
	for i, key := range t.Column(groupColumn) {
		if key.IsNull() {
			continue
		}
		k := key.Key()
		g, ok := groups[k]
		if !ok {
			g = &group{key: key}
			groups[k] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, i)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return table.Compare(order[i].key, order[j].key) < 0
	})

	for _, g := range order {
		row := []table.Value{g.key}
		for _, s := range specs {
			v, err := apply(t, s, g.rows)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		if err := out.Append(row...); err != nil {
			return nil, fmt.Errorf("appending group row: %w", err)
		}
	}

	a.logger.Info("calculated aggregations",
		slog.String("group_column", groupColumn),
		slog.Int("groups", out.Len()))
	return out, nil
}

func apply(t *table.Table, s Spec, rows []int) (table.Value, error) {
	present := make([]table.Value, 0, len(rows))
	presentRows := make([]int, 0, len(rows))
	for _, r := range rows {
		if v := t.Get(r, s.Column); !v.IsNull() {
			present = append(present, v)
			presentRows = append(presentRows, r)
		}
	}

	switch s.Func {
	case Count:
		return table.Int(int64(len(present))), nil
	case First:
		if len(present) == 0 {
			return table.Null(), nil
		}
		return present[0], nil
	case Last:
		if len(present) == 0 {
			return table.Null(), nil
		}
		return present[len(present)-1], nil
	}

	nums := make([]float64, len(present))
	for i, v := range present {
		f, ok := v.Float()
		if !ok {
			return table.Null(), apperr.NewTypeConversionError("aggregate", s.Column, presentRows[i], v.String(),
				fmt.Errorf("%s value cannot be aggregated with %s", v.Kind(), s.Func))
		}
		nums[i] = f
	}

	switch s.Func {
	case Sum:
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return table.Float(sum), nil
	case Mean:
		if len(nums) == 0 {
			return table.Null(), nil
		}
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return table.Float(sum / float64(len(nums))), nil
	case Min, Max:
		if len(nums) == 0 {
			return table.Null(), nil
		}
		best := nums[0]
		for _, n := range nums[1:] {
			if (s.Func == Min && n < best) || (s.Func == Max && n > best) {
				best = n
			}
		}
		return table.Float(best), nil
	case Median:
		if len(nums) == 0 {
			return table.Null(), nil
		}
		sort.Float64s(nums)
		mid := len(nums) / 2
		if len(nums)%2 == 1 {
			return table.Float(nums[mid]), nil
		}
		return table.Float((nums[mid-1] + nums[mid]) / 2), nil
	default:
		return table.Null(), apperr.NewConfigError(fmt.Sprintf("unknown aggregation function %q", s.Func), nil)
	}
}

// Extremum identifies the row holding a column's maximum.
type Extremum struct {
	Key   table.Value
	Value float64
	Row   int
}

// FindMax returns the group key of the row with the largest valueColumn.
// Missing values are ignored. When several rows tie for the maximum the first
// one in the table's current order wins.
func (a *Aggregator) FindMax(t *table.Table, groupColumn, valueColumn string) (Extremum, error) {
	if !t.HasColumn(groupColumn) {
		return Extremum{}, apperr.NewColumnError("find max", groupColumn)
	}
	if !t.HasColumn(valueColumn) {
		return Extremum{}, apperr.NewColumnError("find max", valueColumn)
	}

	best := Extremum{Row: -1}
	for i, v := range t.Column(valueColumn) {
		if v.IsNull() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			return Extremum{}, apperr.NewTypeConversionError("find max", valueColumn, i, v.String(),
				fmt.Errorf("%s value is not numeric", v.Kind()))
		}
		if best.Row < 0 || f > best.Value {
			best = Extremum{Key: t.Get(i, groupColumn), Value: f, Row: i}
		}
	}
	if best.Row < 0 {
		return Extremum{}, ErrNoRows
	}

	a.logger.Info("found maximum",
		slog.String("column", valueColumn),
		slog.String(groupColumn, best.Key.String()),
		slog.Float64("value", best.Value))
	return best, nil
}

// MarkMax adds a boolean indicator column that is true on every row whose
// valueColumn equals maxValue exactly, so all rows tied with the maximum are
// marked.
func (a *Aggregator) MarkMax(t *table.Table, indicator, valueColumn string, maxValue float64) (*table.Table, error) {
	if !t.HasColumn(valueColumn) {
		return nil, apperr.NewColumnError("mark max", valueColumn)
	}
	flags := make([]table.Value, t.Len())
	for i, v := range t.Column(valueColumn) {
		f, ok := v.Float()
		flags[i] = table.Bool(ok && f == maxValue)
	}
	return t.WithColumn(indicator, flags)
}

// MarkKey adds a boolean indicator column that is true only where keyColumn
// equals key.
func (a *Aggregator) MarkKey(t *table.Table, indicator, keyColumn string, key table.Value) (*table.Table, error) {
	if !t.HasColumn(keyColumn) {
		return nil, apperr.NewColumnError("mark key", keyColumn)
	}
	flags := make([]table.Value, t.Len())
	for i, v := range t.Column(keyColumn) {
		flags[i] = table.Bool(v.Equal(key))
	}
	return t.WithColumn(indicator, flags)
}
