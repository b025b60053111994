package preprocess

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/table"
)

// FillMethod selects how a FillStrategy computes its replacement value.
type FillMethod string

const (
	FillMedian  FillMethod = "median"
	FillMean    FillMethod = "mean"
	FillMode    FillMethod = "mode"
	FillLiteral FillMethod = "literal"
)

// FillStrategy describes how to replace missing values in one column.
type FillStrategy struct {
	Method  FillMethod
	Literal table.Value
}

// ParseFillStrategy reads "median", "mean" or "mode"; anything else is a
// literal, numeric when it parses as a number and text otherwise.
func ParseFillStrategy(s string) FillStrategy {
	switch FillMethod(s) {
	case FillMedian, FillMean, FillMode:
		return FillStrategy{Method: FillMethod(s)}
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return FillStrategy{Method: FillLiteral, Literal: table.Float(f)}
	}
	return FillStrategy{Method: FillLiteral, Literal: table.Text(s)}
}

// Fill pairs a column with its strategy.
type Fill struct {
	Column   string
	Strategy FillStrategy
}

// FillNulls replaces missing values column by column. Absent columns are
// skipped. A column with no present values cannot produce a median, mean or
// mode and is left as is.
func (p *Preprocessor) FillNulls(t *table.Table, fills []Fill) (*table.Table, error) {
	out := t.Clone()
	for _, f := range fills {
		if !out.HasColumn(f.Column) {
			p.logger.Warn("skipping null fill for absent column", slog.String("column", f.Column))
			continue
		}

		src := out.Column(f.Column)
		replacement, ok, err := fillValue(f.Column, src, f.Strategy)
		if err != nil {
			return nil, err
		}
		if !ok {
			p.logger.Warn("column has no values to derive a fill from",
				slog.String("column", f.Column),
				slog.String("strategy", string(f.Strategy.Method)))
			continue
		}

		values := make([]table.Value, len(src))
		filled := 0
		for i, v := range src {
			if v.IsNull() {
				values[i] = replacement
				filled++
				continue
			}
			values[i] = v
		}

		next, err := out.WithColumn(f.Column, values)
		if err != nil {
			return nil, fmt.Errorf("replacing column %s: %w", f.Column, err)
		}
		out = next

		p.logger.Debug("filled missing values",
			slog.String("column", f.Column),
			slog.Int("rows", filled),
			slog.String("value", replacement.String()))
	}

	p.logger.Info("filled null values according to specified strategies")
	return out, nil
}

func fillValue(column string, values []table.Value, s FillStrategy) (table.Value, bool, error) {
	switch s.Method {
	case FillLiteral:
		return s.Literal, true, nil
	case FillMode:
		v, ok := mode(values)
		return v, ok, nil
	case FillMedian, FillMean:
		nums, err := numeric(column, values)
		if err != nil {
			return table.Null(), false, err
		}
		if len(nums) == 0 {
			return table.Null(), false, nil
		}
		if s.Method == FillMean {
			return table.Float(mean(nums)), true, nil
		}
		return table.Float(median(nums)), true, nil
	default:
		return table.Null(), false, apperr.NewConfigError(fmt.Sprintf("unknown fill strategy %q", s.Method), nil)
	}
}

func numeric(column string, values []table.Value) ([]float64, error) {
	nums := make([]float64, 0, len(values))
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			return nil, apperr.NewTypeConversionError("fill nulls", column, i, v.String(),
				fmt.Errorf("%s value is not numeric", v.Kind()))
		}
		nums = append(nums, f)
	}
	return nums, nil
}

func mean(nums []float64) float64 {
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

func median(nums []float64) float64 {
	sorted := make([]float64, len(nums))
	copy(sorted, nums)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// mode returns the most frequent present value; ties go to the value seen first.
func mode(values []table.Value) (table.Value, bool) {
	type tally struct {
		value table.Value
		count int
		first int
	}
	counts := map[string]*tally{}
	for i, v := range values {
		if v.IsNull() {
			continue
		}
		k := v.Key()
		if c, ok := counts[k]; ok {
			c.count++
			continue
		}
		counts[k] = &tally{value: v, count: 1, first: i}
	}

	var best *tally
	for _, c := range counts {
		if best == nil || c.count > best.count || (c.count == best.count && c.first < best.first) {
			best = c
		}
	}
	if best == nil {
		return table.Null(), false
	}
	return best.value, true
}
