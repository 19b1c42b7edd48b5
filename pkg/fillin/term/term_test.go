package term

import (
	"errors"
	"testing"

	ferrors "github.com/sambeau/fillin/pkg/fillin/errors"
	"github.com/sambeau/fillin/pkg/fillin/locale"
	"github.com/sambeau/fillin/pkg/fillin/syntax"
)

func ptr(s string) *string { return &s }

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		key    string
		format *string
		def    *string
		offset *OffsetSpec
	}{
		{"key only", "Name", "Name", nil, nil, nil},
		{"format", "Total|N2", "Total", ptr("N2"), nil, nil},
		{"default", "X:fallback", "X", nil, ptr("fallback"), nil},
		{"empty default", "X:", "X", nil, ptr(""), nil},
		{"format and default", "Total|N2:none", "Total", ptr("N2"), ptr("none"), nil},
		{"offset only", "N(+3)", "N", nil, nil, &OffsetSpec{Greater, 3}},
		{"format and offset", "N|D3(-2)", "N", ptr("D3"), nil, &OffsetSpec{Less, 2}},
		{"default and offset", "N:0(+1.5)", "N", nil, ptr("0"), &OffsetSpec{Greater, 1.5}},
		{"all parts", "When|short:never(+86400)", "When", ptr("short"), ptr("never"), &OffsetSpec{Greater, 86400}},
		{"default keeps later colons", "Time:12:30", "Time", nil, ptr("12:30"), nil},
		{"bare sign", "N(-)", "N", nil, nil, &OffsetSpec{Less, 1}},
		{"spaces in key", "First Name", "First Name", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw, syntax.Default())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Key != tt.key {
				t.Errorf("key: expected %q, got %q", tt.key, got.Key)
			}
			checkOptional(t, "format", tt.format, got.Format)
			checkOptional(t, "default", tt.def, got.Default)
			switch {
			case tt.offset == nil && got.Offset != nil:
				t.Errorf("expected no offset, got %+v", *got.Offset)
			case tt.offset != nil && got.Offset == nil:
				t.Errorf("expected offset %+v, got none", *tt.offset)
			case tt.offset != nil && *tt.offset != *got.Offset:
				t.Errorf("expected offset %+v, got %+v", *tt.offset, *got.Offset)
			}
		})
	}
}

func checkOptional(t *testing.T, what string, want, got *string) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s: expected none, got %q", what, *got)
	case want != nil && got == nil:
		t.Errorf("%s: expected %q, got none", what, *want)
	case want != nil && *want != *got:
		t.Errorf("%s: expected %q, got %q", what, *want, *got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		raw    string
		target error
	}{
		{"a[b", ferrors.ErrNestedDelimiterInKey},
		{"a]b", ferrors.ErrNestedDelimiterInKey},
		{"a)b", ferrors.ErrNestedDelimiterInKey},
		{"N(+1", ferrors.ErrMalformedOffset},
		{"N(+(1))", ferrors.ErrMalformedOffset},
		{"N(+1)x", ferrors.ErrMalformedOffset},
		{"N:a)b(+1)", ferrors.ErrMalformedOffset},
		{"N(3)", ferrors.ErrMissingSign},
		{"N()", ferrors.ErrMissingSign},
		{"N(+abc)", ferrors.ErrInvalidMagnitude},
		{"N(+0)", ferrors.ErrInvalidMagnitude},
		{"N(+Inf)", ferrors.ErrInvalidMagnitude},
		{"", ferrors.ErrEmptyKey},
		{"|N2", ferrors.ErrEmptyKey},
		{"  :x", ferrors.ErrEmptyKey},
		// Both delimiters present: the key runs to the first format delimiter.
		{"a:b|c", ferrors.ErrNestedDelimiterInKey},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := Parse(tt.raw, syntax.Default())
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		raw  string
		want OffsetSpec
	}{
		{"+", OffsetSpec{Greater, 1}},
		{"-", OffsetSpec{Less, 1}},
		{"+3", OffsetSpec{Greater, 3}},
		{"-2.5", OffsetSpec{Less, 2.5}},
		{"5+", OffsetSpec{Greater, 5}},
		{" - 4 ", OffsetSpec{Less, 4}},
		{"+-2", OffsetSpec{Greater, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseOffset(tt.raw, syntax.Default())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseOffsetCulture(t *testing.T) {
	de := syntax.Default().WithCulture(locale.MustParse("de-DE"))

	got, err := ParseOffset("+1,5", de)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Magnitude != 1.5 {
		t.Errorf("expected 1.5, got %v", got.Magnitude)
	}

	if _, err := ParseOffset("+1.5", de); !errors.Is(err, ferrors.ErrInvalidMagnitude) {
		t.Errorf("expected ErrInvalidMagnitude for '.' in de-DE, got %v", err)
	}
}

func TestParseCustomDelimiters(t *testing.T) {
	cfg, err := syntax.NewEngineConfig('>', '<', '#', '=', '{', '}', '«', '»', nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := Parse("Count#D2=none{<2}", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Key != "Count" || got.FormatText() != "D2" || got.DefaultText() != "none" {
		t.Errorf("unexpected term %+v", got)
	}
	if got.Offset == nil || *got.Offset != (OffsetSpec{Less, 2}) {
		t.Errorf("unexpected offset %+v", got.Offset)
	}

	// Default delimiters are ordinary text under a custom configuration.
	got, err = Parse("a:b|c(d)", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Key != "a:b|c(d)" {
		t.Errorf("expected whole text as key, got %q", got.Key)
	}
}

// maskFrom marks every rune of raw from index from onward as replaced text.
func maskFrom(raw string, from int) ([]rune, []bool) {
	runes := []rune(raw)
	masked := make([]bool, len(runes))
	for i := from; i < len(runes); i++ {
		masked[i] = true
	}
	return runes, masked
}

func TestParseMasked(t *testing.T) {
	tests := []struct {
		raw    string
		from   int
		key    string
		format *string
		def    *string
		offset bool
	}{
		{"Out:a]b", 4, "Out", nil, ptr("a]b"), false},
		{"Out:a|b(+1)", 4, "Out", nil, ptr("a|b(+1)"), false},
		{"X|u:p(q", 4, "X", ptr("u"), ptr("p(q"), false},
		{"a:b", 0, "a:b", nil, nil, false},
		{"a:b(+1)", 0, "a:b(+1)", nil, nil, false},
		{"N(+2)", 5, "N", nil, nil, true},
		{"N|[x]", 2, "N", ptr("[x]"), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			runes, masked := maskFrom(tt.raw, tt.from)
			got, err := ParseMasked(runes, masked, syntax.Default())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Key != tt.key {
				t.Errorf("key: expected %q, got %q", tt.key, got.Key)
			}
			checkOptional(t, "format", tt.format, got.Format)
			checkOptional(t, "default", tt.def, got.Default)
			if (got.Offset != nil) != tt.offset {
				t.Errorf("offset: expected present=%v, got %+v", tt.offset, got.Offset)
			}
		})
	}

	// Without a mask the same text is structural.
	if _, err := ParseMasked([]rune("Out:a]b"), nil, syntax.Default()); !errors.Is(err, ferrors.ErrNestedDelimiterInKey) {
		t.Errorf("expected ErrNestedDelimiterInKey, got %v", err)
	}
}

func TestMalformedOffsetMessage(t *testing.T) {
	_, err := Parse("N(+1", syntax.Default())
	var fe *ferrors.FillinError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FillinError, got %T", err)
	}
	if fe.Message != "malformed offset in term 'N(+1'" {
		t.Errorf("unexpected message %q", fe.Message)
	}
	if len(fe.Hints) != 1 || fe.Hints[0] != "an offset looks like (+5) and must end the term" {
		t.Errorf("unexpected hints %v", fe.Hints)
	}
}

func TestSigned(t *testing.T) {
	if got := (OffsetSpec{Less, 2}).Signed(); got != -2 {
		t.Errorf("expected -2, got %v", got)
	}
	if got := (OffsetSpec{Greater, 2}).Signed(); got != 2 {
		t.Errorf("expected 2, got %v", got)
	}
}
