package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	"20060102",
	time.DateOnly,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// IsBlank reports whether v should be treated as null.
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		return s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan") || strings.EqualFold(s, "nat")
	case float64:
		return math.IsNaN(t)
	}
	return false
}

// ParseDate accepts time.Time, YYYYMMDD integers (the warehouse export format)
// and the common textual layouts. The result is a UTC date at midnight.
func ParseDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return dateOnly(t), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("null date")
		}
		return dateOnly(*t), nil
	case int:
		return ParseDate(strconv.Itoa(t))
	case int64:
		return ParseDate(strconv.FormatInt(t, 10))
	case float64:
		if t != math.Trunc(t) || math.IsNaN(t) {
			return time.Time{}, fmt.Errorf("unparseable date %v", t)
		}
		return ParseDate(strconv.FormatInt(int64(t), 10))
	case string:
		s := strings.TrimSpace(t)
		// Spreadsheet exports render YYYYMMDD integers as "20250115.0".
		s = strings.TrimSuffix(s, ".0")
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return dateOnly(parsed), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", t)
	}
	return time.Time{}, fmt.Errorf("unsupported date value %v (%T)", v, v)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDecimal accepts decimals, numbers and numeric strings ("1,250.00", "$40").
func ParseDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, fmt.Errorf("unparseable amount %v", t)
		}
		return decimal.NewFromFloat(t), nil
	case string:
		s := strings.TrimSpace(t)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimPrefix(s, "$")
		if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			s = "-" + strings.Trim(s, "()")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("unparseable amount %q", t)
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("unsupported amount value %v (%T)", v, v)
}

// ParseInt accepts integers, whole floats and numeric strings.
func ParseInt(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		if t != math.Trunc(t) || math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("non-integer value %v", t)
		}
		return int64(t), nil
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), ".0")
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable integer %q", t)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported integer value %v (%T)", v, v)
}

// ParseBool accepts booleans, 0/1 numbers and the usual spellings.
func ParseBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(t), ".0")) {
		case "1", "true", "t", "yes", "y":
			return true, nil
		case "0", "false", "f", "no", "n":
			return false, nil
		}
		return false, fmt.Errorf("unparseable flag %q", t)
	}
	return false, fmt.Errorf("unsupported flag value %v (%T)", v, v)
}

// ParseString renders identifiers; whole floats lose their ".0".
func ParseString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10), nil
		}
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return fmt.Sprint(v), nil
}

// Coerce converts v to the value type of kind.
func Coerce(kind FieldKind, v any) (any, error) {
	switch kind {
	case KindInt:
		return ParseInt(v)
	case KindDecimal:
		return ParseDecimal(v)
	case KindDate:
		return ParseDate(v)
	case KindBool:
		return ParseBool(v)
	default:
		return ParseString(v)
	}
}
