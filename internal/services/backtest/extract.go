package backtest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"FinBack/internal/domain/models"

	"github.com/samber/lo"
)

// Coercer converts one raw element into the element kind of a frame.
type Coercer[T any] func(v any) (T, error)

// ExtractFrame pulls the series named by external out of source and binds them to the
// canonical names in internal. It returns nil without error when none of the names match,
// so callers can tell "not supplied" apart from "supplied but empty".
// Canonical columns without a match are filled with missing.
func ExtractFrame[T any](source models.DataObj, coerce Coercer[T], missing T, external, internal models.Fields) (*models.Frame[T], error) {
	var index models.Index
	matched := false
	cols := make(map[string][]T, len(internal))

	for i, name := range external {
		v, ok := source.Lookup(name)
		if !ok || v == nil {
			continue
		}
		raw, err := asRawSeries(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if !matched {
			index = raw.Index
			matched = true
		} else if !index.Equal(raw.Index) {
			return nil, fmt.Errorf("field %q: %w", name, ErrIndexMismatch)
		}
		col, err := coerceColumn(raw, coerce)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		cols[internal[i]] = col
	}
	if !matched {
		return nil, nil
	}

	for _, name := range internal {
		if _, ok := cols[name]; ok {
			continue
		}
		col := make([]T, len(index))
		for i := range col {
			col[i] = missing
		}
		cols[name] = col
	}
	return &models.Frame[T]{Index: index, Names: internal[:], Columns: cols}, nil
}

// ExtractSignals extracts the boolean signal frame.
func ExtractSignals(source models.DataObj, external models.Fields) (*models.Frame[bool], error) {
	return ExtractFrame[bool](source, ToBool, false, external, models.SignalColumns)
}

// ExtractPrices extracts the optional execution price frame.
func ExtractPrices(source models.DataObj, external models.Fields) (*models.Frame[float64], error) {
	return ExtractFrame[float64](source, ToFloat, math.NaN(), external, models.PriceColumns)
}

func asRawSeries(v any) (models.RawSeries, error) {
	switch s := v.(type) {
	case models.RawSeries:
		return s, nil
	case *models.RawSeries:
		return *s, nil
	case models.Series:
		return models.RawSeries{Index: s.Index, Values: s.Values}, nil
	case *models.Series:
		return models.RawSeries{Index: s.Index, Values: s.Values}, nil
	default:
		return models.RawSeries{}, fmt.Errorf("%w: %T is not a series", ErrTypeMismatch, v)
	}
}

func coerceColumn[T any](raw models.RawSeries, coerce Coercer[T]) ([]T, error) {
	var elems []any
	switch vals := raw.Values.(type) {
	case []any:
		elems = vals
	case []bool:
		elems = lo.ToAnySlice(vals)
	case []float64:
		elems = lo.ToAnySlice(vals)
	case []float32:
		elems = lo.ToAnySlice(vals)
	case []int:
		elems = lo.ToAnySlice(vals)
	case []int64:
		elems = lo.ToAnySlice(vals)
	case []string:
		elems = lo.ToAnySlice(vals)
	default:
		return nil, fmt.Errorf("%w: unsupported values %T", ErrTypeMismatch, raw.Values)
	}
	if len(elems) != len(raw.Index) {
		return nil, fmt.Errorf("%w: %d values for %d timestamps", ErrIndexMismatch, len(elems), len(raw.Index))
	}

	out := make([]T, len(elems))
	for i, e := range elems {
		v, err := coerce(e)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ToBool coerces a raw element to a signal flag. nil counts as false.
func ToBool(v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case float64:
		if math.IsNaN(x) {
			return false, fmt.Errorf("%w: NaN is not a boolean", ErrTypeMismatch)
		}
		return x != 0, nil
	case float32:
		return ToBool(float64(x))
	case int:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "t", "yes", "y", "1":
			return true, nil
		case "false", "f", "no", "n", "0", "":
			return false, nil
		}
		return false, fmt.Errorf("%w: %q is not a boolean", ErrTypeMismatch, x)
	default:
		return false, fmt.Errorf("%w: %T is not a boolean", ErrTypeMismatch, v)
	}
}

// ToFloat coerces a raw element to a price. nil, "" and "nan" are missing (NaN).
func ToFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" || strings.EqualFold(s, "nan") {
			return math.NaN(), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrTypeMismatch, x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %T is not a number", ErrTypeMismatch, v)
	}
}
