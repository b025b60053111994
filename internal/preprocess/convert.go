package preprocess

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/jgoulah/gridhours/internal/apperr"
	"github.com/jgoulah/gridhours/internal/table"
)

// Type is a target type for ConvertTypes.
type Type string

const (
	TypeFloat  Type = "float"
	TypeInt    Type = "int"
	TypeString Type = "string"
)

// ParseType maps a configured type name to a Type. Names are matched exactly,
// the same set config validation accepts.
func ParseType(s string) (Type, error) {
	switch s {
	case "float", "float64", "double", "number":
		return TypeFloat, nil
	case "int", "int64", "integer":
		return TypeInt, nil
	case "string", "str", "text":
		return TypeString, nil
	default:
		return "", fmt.Errorf("unknown type %q", s)
	}
}

// Conversion asks for one column to be coerced to a Type.
type Conversion struct {
	Column string
	Type   Type
}

// ConvertTypes coerces each listed column to its target type. Columns absent
// from the table are skipped. Missing values stay missing, except that an int
// column cannot hold them.
func (p *Preprocessor) ConvertTypes(t *table.Table, conversions []Conversion) (*table.Table, error) {
	out := t
	for _, conv := range conversions {
		if !out.HasColumn(conv.Column) {
			p.logger.Warn("skipping type conversion for absent column",
				slog.String("column", conv.Column))
			continue
		}

		src := out.Column(conv.Column)
		values := make([]table.Value, len(src))
		for i, v := range src {
			converted, err := convertValue(v, conv.Type)
			if err != nil {
				return nil, apperr.NewTypeConversionError("convert types", conv.Column, i, v.String(), err)
			}
			values[i] = converted
		}

		next, err := out.WithColumn(conv.Column, values)
		if err != nil {
			return nil, fmt.Errorf("replacing column %s: %w", conv.Column, err)
		}
		out = next
	}

	if out == t {
		out = t.Clone()
	}
	return out, nil
}

func convertValue(v table.Value, typ Type) (table.Value, error) {
	switch typ {
	case TypeFloat:
		return toFloat(v)
	case TypeInt:
		return toInt(v)
	case TypeString:
		if v.IsNull() {
			return v, nil
		}
		return table.Text(v.String()), nil
	default:
		return table.Null(), fmt.Errorf("unsupported target type %q", typ)
	}
}

func toFloat(v table.Value) (table.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	if f, ok := v.Float(); ok {
		return table.Float(f), nil
	}
	if s, ok := v.Text(); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return table.Null(), err
		}
		return table.Float(f), nil
	}
	return table.Null(), fmt.Errorf("%s is not numeric", v.Kind())
}

func toInt(v table.Value) (table.Value, error) {
	if v.IsNull() {
		return table.Null(), fmt.Errorf("missing value cannot be an integer")
	}
	if i, ok := v.Int(); ok {
		return table.Int(i), nil
	}
	if f, ok := v.Float(); ok {
		if math.IsInf(f, 0) {
			return table.Null(), fmt.Errorf("non-finite value cannot be an integer")
		}
		return table.Int(int64(f)), nil
	}
	if s, ok := v.Text(); ok {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return table.Null(), err
		}
		return table.Int(i), nil
	}
	return table.Null(), fmt.Errorf("%s is not numeric", v.Kind())
}
