package table

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// plainNumber accepts decimal integers and floats with an optional exponent.
	// Words such as NaN or Inf, which strconv would accept, stay text.
	plainNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

	// groupedNumber accepts thousands-grouped numerals like 1,234 or -12,345.5.
	groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// normalizeNumber returns s without thousands separators if it looks numeric.
func normalizeNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	switch {
	case plainNumber.MatchString(s):
		return s, true
	case groupedNumber.MatchString(s):
		return strings.ReplaceAll(s, ",", ""), true
	default:
		return "", false
	}
}

// CoerceNumeric converts every Text column whose cells all parse as numbers.
// A column becomes Int if every cell is an integer, Float if every cell is a
// number, and stays Text otherwise. Empty columns stay Text.
func (t *Table) CoerceNumeric() {
	for _, c := range t.cols {
		if c.Kind != Text || len(c.Strings) == 0 {
			continue
		}
		coerceColumn(c)
	}
}

func coerceColumn(c *Column) {
	norm := make([]string, len(c.Strings))
	for i, s := range c.Strings {
		n, ok := normalizeNumber(s)
		if !ok {
			return
		}
		norm[i] = n
	}

	if ints, ok := parseInts(norm); ok {
		c.Kind = Int
		c.Ints = ints
		c.Strings = nil
		return
	}
	if floats, ok := parseFloats(norm); ok {
		c.Kind = Float
		c.Floats = floats
		c.Strings = nil
	}
}

func parseInts(values []string) ([]int64, bool) {
	out := make([]int64, len(values))
	for i, s := range values {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseFloats(values []string) ([]float64, bool) {
	out := make([]float64, len(values))
	for i, s := range values {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
