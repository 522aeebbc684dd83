package cleaner

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// missingTokens are the cell texts treated as "no value" when reading a
// dataset: the usual NA markers of dataframe CSV readers.
var missingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissing reports whether a cell holds no value.
func IsMissing(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		_, ok := missingTokens[strings.TrimSpace(val)]
		return ok
	case float64:
		return math.IsNaN(val)
	default:
		return false
	}
}

// TypeError is returned when a numeric column holds a value that is neither
// a number nor a missing marker.
type TypeError struct {
	Column string
	Row    int
	Value  interface{}
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("column %q row %d: value %v is not numeric", e.Column, e.Row, e.Value)
}

// ToNumber coerces a cell to float64. ok is false for missing values.
// Only decimal notation is accepted for strings.
func ToNumber(v interface{}) (f float64, ok bool, err error) {
	if IsMissing(v) {
		return 0, false, nil
	}
	if s, isString := v.(string); isString {
		s = strings.TrimSpace(s)
		if !isDecimal(s) {
			return 0, false, fmt.Errorf("%q is not a decimal number", s)
		}
		v = s
	}
	f, err = cast.ToFloat64E(v)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(f) {
		return 0, false, nil
	}
	return f, true, nil
}

// isDecimal rejects the non-decimal forms strconv accepts (hex floats,
// base prefixes, digit separators).
func isDecimal(s string) bool {
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' {
		switch digits[1] {
		case 'x', 'X', 'b', 'B', 'o', 'O':
			return false
		}
	}
	return !strings.ContainsRune(s, '_')
}

// extraDateLayouts are tried after cast, month first.
var extraDateLayouts = []string{
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006/1/2",
	"2006/1/2 15:04:05",
	"20060102",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// toDate coerces a cell to a timestamp. Values that cannot be parsed yield nil.
func toDate(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return nil
		}
		return *val
	}
	if IsMissing(v) {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	// values carrying an offset keep their wall clock in that offset
	if ts, err := cast.ToTimeInDefaultLocationE(s, time.UTC); err == nil {
		return ts
	}
	for _, layout := range extraDateLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts
		}
	}
	return nil
}
