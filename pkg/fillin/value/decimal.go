package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Decimal is an exact base-10 number with a display scale, so 12.3400 keeps
// its trailing zeros. The zero value is 0 with scale 0.
type Decimal struct {
	rat   *big.Rat
	scale int
}

// maxScale bounds the digits kept when a Decimal is built from an arbitrary fraction.
const maxScale = 28

// ParseDecimal parses a plain decimal literal such as "-12.3400" or "1e3".
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Decimal{}, fmt.Errorf("invalid decimal %q", s)
	}
	scale := 0
	mantissa := s
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa = s[:i]
	}
	if dot := strings.IndexByte(mantissa, '.'); dot >= 0 {
		scale = len(mantissa) - dot - 1
	}
	if !r.IsInt() {
		scale = max(scale, fractionDigits(r))
	}
	return Decimal{rat: r, scale: scale}, nil
}

// MustDecimal is ParseDecimal that panics on error.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromRat copies r; the scale is the number of fraction digits r needs,
// capped at 28.
func DecimalFromRat(r *big.Rat) Decimal {
	c := new(big.Rat).Set(r)
	return Decimal{rat: c, scale: fractionDigits(c)}
}

// DecimalFromFloat converts f exactly as printed by strconv's shortest form.
func DecimalFromFloat(f float64) Decimal {
	r := new(big.Rat)
	if r.SetFloat64(f) == nil {
		return Decimal{}
	}
	d, err := ParseDecimal(big.NewFloat(f).Text('f', -1))
	if err != nil {
		return DecimalFromRat(r)
	}
	return d
}

// fractionDigits returns the number of decimal places needed to represent r
// exactly, or maxScale when the expansion does not terminate.
func fractionDigits(r *big.Rat) int {
	if r.IsInt() {
		return 0
	}
	denom := new(big.Int).Set(r.Denom())
	two, five := big.NewInt(2), big.NewInt(5)
	twos, fives := 0, 0
	mod := new(big.Int)
	for {
		q, m := new(big.Int).QuoRem(denom, two, mod)
		if m.Sign() != 0 {
			break
		}
		denom = q
		twos++
	}
	for {
		q, m := new(big.Int).QuoRem(denom, five, mod)
		if m.Sign() != 0 {
			break
		}
		denom = q
		fives++
	}
	if denom.Cmp(big.NewInt(1)) != 0 {
		return maxScale
	}
	return min(max(twos, fives), maxScale)
}

func (d Decimal) ratOrZero() *big.Rat {
	if d.rat == nil {
		return new(big.Rat)
	}
	return d.rat
}

// Rat returns a copy of the exact value.
func (d Decimal) Rat() *big.Rat {
	return new(big.Rat).Set(d.ratOrZero())
}

// Scale returns the number of digits rendered after the decimal point.
func (d Decimal) Scale() int {
	return d.scale
}

// IsInteger reports whether d has no fractional part.
func (d Decimal) IsInteger() bool {
	return d.ratOrZero().IsInt()
}

// Uint64 returns d as a uint64 when it is a non-negative integer in range.
func (d Decimal) Uint64() (uint64, bool) {
	r := d.ratOrZero()
	if !r.IsInt() || r.Sign() < 0 || !r.Num().IsUint64() {
		return 0, false
	}
	return r.Num().Uint64(), true
}

// Float64 returns the nearest float64.
func (d Decimal) Float64() float64 {
	f, _ := d.ratOrZero().Float64()
	return f
}

// Add returns d+x. The scale is the larger of d's and the scale x needs.
func (d Decimal) Add(x Decimal) Decimal {
	r := new(big.Rat).Add(d.ratOrZero(), x.ratOrZero())
	return Decimal{rat: r, scale: max(d.scale, x.scale, fractionDigits(r))}
}

// Sub returns d-x.
func (d Decimal) Sub(x Decimal) Decimal {
	r := new(big.Rat).Sub(d.ratOrZero(), x.ratOrZero())
	return Decimal{rat: r, scale: max(d.scale, x.scale, fractionDigits(r))}
}

// Cmp compares the exact values of d and x.
func (d Decimal) Cmp(x Decimal) int {
	return d.ratOrZero().Cmp(x.ratOrZero())
}

// String renders d in plain notation with exactly Scale fraction digits.
func (d Decimal) String() string {
	return d.ratOrZero().FloatString(d.scale)
}

// MarshalJSON renders d as a JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	parsed, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// decodeJSON decodes with UseNumber so integers keep their precision.
func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}
