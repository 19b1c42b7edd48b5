package locale

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/number"
)

// ErrUnknownFormat is returned when a format string is not understood for a value kind.
var ErrUnknownFormat = errors.New("unknown format")

// ErrNotIntegral is returned when an integer-only format is applied to a fractional value.
var ErrNotIntegral = errors.New("format requires an integral value")

// numberSpec is a parsed standard numeric format such as "N2" or "x8".
type numberSpec struct {
	verb   byte
	digits int
	given  bool
}

// parseNumberSpec parses a letter followed by an optional precision (0-99).
func parseNumberSpec(format string) (numberSpec, bool) {
	if len(format) == 0 || len(format) > 3 {
		return numberSpec{}, false
	}
	spec := numberSpec{verb: format[0]}
	if len(format) > 1 {
		d, err := strconv.Atoi(format[1:])
		if err != nil || d < 0 {
			return numberSpec{}, false
		}
		spec.digits = d
		spec.given = true
	}
	return spec, true
}

func (s numberSpec) precision(def int) int {
	if s.given {
		return s.digits
	}
	return def
}

// ParseFloat parses a number written with the culture's decimal separator.
func (c *Culture) ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if c.decimal != "." {
		if strings.Contains(s, ".") {
			return 0, fmt.Errorf("invalid number %q for locale %s", s, c.Name())
		}
		s = strings.Replace(s, c.decimal, ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

// FormatInt renders a signed integer.
func (c *Culture) FormatInt(v int64, format string) (string, error) {
	if format == "" {
		return strconv.FormatInt(v, 10), nil
	}
	if strings.Contains(format, "%") {
		return printf(format, v)
	}
	if spec, ok := parseNumberSpec(format); ok {
		switch spec.verb {
		case 'D', 'd':
			return padDigits(v < 0, strconv.FormatUint(absInt(v), 10), spec.precision(0)), nil
		case 'X', 'x':
			return hex(uint64(v), spec), nil
		}
	}
	return c.formatIntegral(v, strconv.FormatInt(v, 10), float64(v), format)
}

// FormatUint renders an unsigned integer.
func (c *Culture) FormatUint(v uint64, format string) (string, error) {
	if format == "" {
		return strconv.FormatUint(v, 10), nil
	}
	if strings.Contains(format, "%") {
		return printf(format, v)
	}
	if spec, ok := parseNumberSpec(format); ok {
		switch spec.verb {
		case 'D', 'd':
			return padDigits(false, strconv.FormatUint(v, 10), spec.precision(0)), nil
		case 'X', 'x':
			return hex(v, spec), nil
		}
	}
	return c.formatIntegral(v, strconv.FormatUint(v, 10), float64(v), format)
}

// formatIntegral renders the grouped, fixed and currency formats from the
// exact integer v. Percent and exponent formats go through f.
func (c *Culture) formatIntegral(v any, plain string, f float64, format string) (string, error) {
	if format == "G" || format == "g" {
		return plain, nil
	}
	spec, ok := parseNumberSpec(format)
	if !ok {
		return c.FormatFloat(f, format)
	}

	p := c.Printer()
	switch spec.verb {
	case 'N', 'n':
		return p.Sprintf("%v", number.Decimal(v, number.Scale(spec.precision(2)))), nil
	case 'F', 'f':
		return p.Sprintf("%v", number.Decimal(v, number.NoSeparator(), number.Scale(spec.precision(2)))), nil
	case 'C', 'c':
		unit, err := c.currency()
		if err != nil {
			return "", err
		}
		return p.Sprintf("%v", currency.Symbol(unit.Amount(v))), nil
	}
	return c.FormatFloat(f, format)
}

// currency returns the currency of the culture's region. A tag without a
// region, such as "de" or the invariant culture, has none.
func (c *Culture) currency() (currency.Unit, error) {
	unit, conf := currency.FromTag(c.tag)
	if c.tag == language.Und || conf < language.High {
		return currency.Unit{}, fmt.Errorf("%w: locale %s has no currency region", ErrUnknownFormat, c.Name())
	}
	return unit, nil
}

// FormatFloat renders a floating point number using a standard numeric format,
// a printf verb string, or the culture's default representation.
func (c *Culture) FormatFloat(v float64, format string) (string, error) {
	if format == "" || format == "G" || format == "g" {
		return c.shortest(v), nil
	}

	if strings.Contains(format, "%") {
		return printf(format, v)
	}

	spec, ok := parseNumberSpec(format)
	if !ok {
		return "", fmt.Errorf("%w %q for number", ErrUnknownFormat, format)
	}

	p := c.Printer()
	switch spec.verb {
	case 'N', 'n':
		return p.Sprintf("%v", number.Decimal(v, number.Scale(spec.precision(2)))), nil
	case 'F', 'f':
		return p.Sprintf("%v", number.Decimal(v, number.NoSeparator(), number.Scale(spec.precision(2)))), nil
	case 'P', 'p':
		return p.Sprintf("%v", number.Percent(v, number.Scale(spec.precision(2)))), nil
	case 'C', 'c':
		unit, err := c.currency()
		if err != nil {
			return "", err
		}
		amount := unit.Amount(roundTo(v, spec.precision(2)))
		return p.Sprintf("%v", currency.Symbol(amount)), nil
	case 'E', 'e':
		s := strconv.FormatFloat(v, spec.verb, spec.precision(6), 64)
		return strings.Replace(s, ".", c.decimal, 1), nil
	case 'D', 'd', 'X', 'x':
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return "", fmt.Errorf("%w: %q", ErrNotIntegral, format)
		}
		if spec.verb == 'D' || spec.verb == 'd' {
			return padDigits(v < 0, strconv.FormatFloat(math.Abs(v), 'f', 0, 64), spec.precision(0)), nil
		}
		if math.Abs(v) >= 1<<63 {
			return "", fmt.Errorf("%w: %q out of range for %g", ErrNotIntegral, format, v)
		}
		return hex(uint64(int64(v)), spec), nil
	}

	return "", fmt.Errorf("%w %q for number", ErrUnknownFormat, format)
}

// shortest renders v with the fewest digits that round-trip, using the culture's
// decimal separator and switching to exponent notation for extreme magnitudes.
func (c *Culture) shortest(v float64) string {
	abs := math.Abs(v)
	var s string
	if abs != 0 && (abs >= 1e21 || abs < 1e-7) {
		s = strconv.FormatFloat(v, 'E', -1, 64)
	} else {
		s = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if c.decimal != "." {
		s = strings.Replace(s, ".", c.decimal, 1)
	}
	return s
}

// FormatDecimal renders an exact decimal given as a plain "-123.4500" string.
func (c *Culture) FormatDecimal(plain string, format string) (string, error) {
	if format == "" || format == "G" || format == "g" {
		if c.decimal != "." {
			return strings.Replace(plain, ".", c.decimal, 1), nil
		}
		return plain, nil
	}
	f, err := strconv.ParseFloat(plain, 64)
	if err != nil {
		return "", err
	}
	return c.FormatFloat(f, format)
}

func printf(format string, v any) (string, error) {
	s := fmt.Sprintf(format, v)
	if strings.Contains(s, "%!") {
		return "", fmt.Errorf("%w %q: %s", ErrUnknownFormat, format, s)
	}
	return s, nil
}

func padDigits(negative bool, digits string, width int) string {
	if pad := width - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	if negative {
		return "-" + digits
	}
	return digits
}

func hex(v uint64, spec numberSpec) string {
	s := strconv.FormatUint(v, 16)
	if spec.verb == 'X' {
		s = strings.ToUpper(s)
	}
	return padDigits(false, s, spec.precision(0))
}

func absInt(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}

func roundTo(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}
