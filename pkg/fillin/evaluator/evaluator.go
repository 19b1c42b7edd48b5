// Package evaluator resolves a parsed term against a Context and renders the
// substitution text.
package evaluator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	ferrors "github.com/sambeau/fillin/pkg/fillin/errors"
	"github.com/sambeau/fillin/pkg/fillin/locale"
	"github.com/sambeau/fillin/pkg/fillin/props"
	"github.com/sambeau/fillin/pkg/fillin/syntax"
	"github.com/sambeau/fillin/pkg/fillin/term"
	"github.com/sambeau/fillin/pkg/fillin/value"
)

// ErrUnsupported is returned by Format for kinds that have no text form.
var ErrUnsupported = errors.New("unsupported value kind")

// ErrOffsetRange is returned by ApplyOffset when the offset does not fit the
// value's kind.
var ErrOffsetRange = errors.New("offset out of range")

// Evaluate looks up t.Key in ctx, applies the offset and renders the result.
//
// A missing key is an error. A null value renders the term's default text
// verbatim. Offsets only affect numeric and temporal values.
func Evaluate(t term.Term, ctx *props.Context, cfg syntax.EngineConfig) (string, error) {
	v, ok := ctx.Lookup(t.Key)
	if !ok {
		return "", ferrors.NewKeyNotFound(t.Key, ctx.Names())
	}

	v = v.Reduce()
	if v.IsNull() {
		return t.DefaultText(), nil
	}

	v, err := ApplyOffset(v, t.Offset)
	if err != nil {
		return "", ferrors.New(ferrors.CodeOffsetOutOfRange, map[string]any{
			"Offset": fmt.Sprintf("%+g", t.Offset.Signed()),
			"Kind":   v.Kind().String(),
			"Key":    t.Key,
		}).WithCause(err)
	}

	s, err := Format(v, t.FormatText(), cfg.Culture())
	if err == nil {
		return s, nil
	}
	if errors.Is(err, ErrUnsupported) {
		return "", ferrors.New(ferrors.CodeUnsupportedType, map[string]any{
			"Key":  t.Key,
			"Kind": v.TypeName(),
		})
	}
	return "", ferrors.New(ferrors.CodeFormatFailed, map[string]any{
		"Kind":   v.Kind().String(),
		"Key":    t.Key,
		"Format": t.FormatText(),
	}).WithCause(err)
}

// ApplyOffset adds or subtracts the offset. Integer kinds use the magnitude
// truncated toward zero and wrap on overflow; temporal kinds treat it as a
// number of seconds. Other kinds, and a nil offset, leave v unchanged.
//
// A magnitude that cannot be represented in the value's kind returns
// ErrOffsetRange.
func ApplyOffset(v value.Value, o *term.OffsetSpec) (value.Value, error) {
	if o == nil {
		return v, nil
	}

	switch v.Kind() {
	case value.KindInt:
		m := math.Trunc(o.Magnitude)
		if !(m < 1<<63) {
			return v, ErrOffsetRange
		}
		n := int64(m)
		if o.Sign == term.Less {
			return value.Int(v.Int() - n), nil
		}
		return value.Int(v.Int() + n), nil

	case value.KindUint:
		m := math.Trunc(o.Magnitude)
		if !(m < 1<<64) {
			return v, ErrOffsetRange
		}
		n := uint64(m)
		if o.Sign == term.Less {
			return value.Uint(v.Uint() - n), nil
		}
		return value.Uint(v.Uint() + n), nil

	case value.KindFloat:
		return value.Float(v.Float() + o.Signed()), nil

	case value.KindDecimal:
		m := value.DecimalFromFloat(o.Magnitude)
		if o.Sign == term.Less {
			return value.DecimalValue(v.Decimal().Sub(m)), nil
		}
		return value.DecimalValue(v.Decimal().Add(m)), nil

	case value.KindDate, value.KindDateTime, value.KindDateTimeOffset:
		d, ok := locale.SecondsDuration(o.Signed())
		if !ok {
			return v, ErrOffsetRange
		}
		t := v.Time().Add(d)
		switch v.Kind() {
		case value.KindDate:
			return value.Date(t), nil
		case value.KindDateTime:
			return value.DateTime(t), nil
		}
		return value.DateTimeOffset(t), nil

	case value.KindDuration:
		d, ok := locale.SecondsDuration(o.Signed())
		if !ok {
			return v, ErrOffsetRange
		}
		sum := v.Duration() + d
		if (d > 0 && sum < v.Duration()) || (d < 0 && sum > v.Duration()) {
			return v, ErrOffsetRange
		}
		return value.Duration(sum), nil
	}
	return v, nil
}

// Format renders v with format in culture. An empty format selects the
// default rendering for the kind.
func Format(v value.Value, format string, culture *locale.Culture) (string, error) {
	if culture == nil {
		culture = locale.Invariant
	}

	switch v.Kind() {
	case value.KindNull:
		return "", nil
	case value.KindString:
		return culture.FormatString(v.Str(), format)
	case value.KindURI:
		return formatURI(v, format, culture)
	case value.KindBool:
		return culture.FormatBool(v.Bool(), format)
	case value.KindGUID:
		return formatGUID(v, format)
	case value.KindInt:
		return culture.FormatInt(v.Int(), format)
	case value.KindUint:
		return culture.FormatUint(v.Uint(), format)
	case value.KindFloat:
		return culture.FormatFloat(v.Float(), format)
	case value.KindDecimal:
		return culture.FormatDecimal(v.Decimal().String(), format)
	case value.KindDate:
		return formatTime(v, format, locale.DateLayout, culture)
	case value.KindDateTime:
		return formatTime(v, format, locale.DateTimeLayout, culture)
	case value.KindDateTimeOffset:
		return formatTime(v, format, locale.DateTimeOffsetLayout, culture)
	case value.KindDuration:
		return culture.FormatDuration(v.Duration(), format)
	case value.KindJSON:
		if r := v.Reduce(); r.Kind() != value.KindJSON {
			return Format(r, format, culture)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, v.TypeName())
}

func formatTime(v value.Value, format, layout string, culture *locale.Culture) (string, error) {
	if format == "" {
		return v.Time().Format(layout), nil
	}
	return culture.FormatTime(v.Time(), format)
}

func formatURI(v value.Value, format string, culture *locale.Culture) (string, error) {
	u := v.URI()
	switch format {
	case "scheme":
		return u.Scheme, nil
	case "host":
		return u.Host, nil
	case "path":
		return u.Path, nil
	case "query":
		return u.RawQuery, nil
	}
	return culture.FormatString(u.String(), format)
}

func formatGUID(v value.Value, format string) (string, error) {
	s := v.GUID().String()
	switch format {
	case "", "D", "d":
		return s, nil
	case "N", "n":
		return strings.ReplaceAll(s, "-", ""), nil
	case "B", "b":
		return "{" + s + "}", nil
	case "P", "p":
		return "(" + s + ")", nil
	case "upper":
		return strings.ToUpper(s), nil
	}
	return "", fmt.Errorf("%w %q for guid", locale.ErrUnknownFormat, format)
}
