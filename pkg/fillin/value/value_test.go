package value

import (
	"database/sql"
	"encoding/json"
	"math/big"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
)

type label string

type celsius float32

type fixed struct{}

func (fixed) FillinValue() Value { return String("fixed") }

func TestOf(t *testing.T) {
	now := time.Date(2024, 12, 25, 14, 30, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	u, _ := url.Parse("https://example.com/a?b=1")
	var nilPtr *int
	five := 5

	tests := []struct {
		name string
		in   any
		kind Kind
	}{
		{"nil", nil, KindNull},
		{"nil pointer", nilPtr, KindNull},
		{"pointer", &five, KindInt},
		{"string", "x", KindString},
		{"named string", label("x"), KindString},
		{"bytes", []byte("x"), KindString},
		{"bool", true, KindBool},
		{"int8", int8(3), KindInt},
		{"uint16", uint16(3), KindUint},
		{"float32", float32(1.5), KindFloat},
		{"named float", celsius(21.5), KindFloat},
		{"rat", big.NewRat(1, 4), KindDecimal},
		{"decimal", MustDecimal("1.50"), KindDecimal},
		{"time", now, KindDateTime},
		{"duration", time.Minute, KindDuration},
		{"uuid", id, KindGUID},
		{"url", u, KindURI},
		{"json number", json.Number("12"), KindJSON},
		{"json object", map[string]any{"a": 1}, KindJSON},
		{"raw message", json.RawMessage(`"hi"`), KindJSON},
		{"valuer", fixed{}, KindString},
		{"sql null string", sql.NullString{String: "x", Valid: true}, KindString},
		{"sql null invalid", sql.NullInt64{}, KindNull},
		{"channel", make(chan int), KindOther},
		{"struct", struct{ A int }{1}, KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Of(tt.in).Kind(); got != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, got)
			}
		})
	}
}

func TestReduce(t *testing.T) {
	decode := func(s string) Value {
		var node any
		if err := decodeJSON([]byte(s), &node); err != nil {
			t.Fatalf("decode %s: %v", s, err)
		}
		return JSON(node)
	}

	tests := []struct {
		json string
		kind Kind
	}{
		{`null`, KindNull},
		{`"text"`, KindString},
		{`true`, KindBool},
		{`42`, KindInt},
		{`-7`, KindInt},
		{`18446744073709551615`, KindUint},
		{`2.5`, KindFloat},
		{`{"a":1}`, KindJSON},
		{`[1,2]`, KindJSON},
	}

	for _, tt := range tests {
		t.Run(tt.json, func(t *testing.T) {
			if got := decode(tt.json).Reduce().Kind(); got != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, got)
			}
		})
	}

	if got := decode(`42`).Reduce().Int(); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := JSON(float64(2)).Reduce(); got.Kind() != KindFloat || got.Float() != 2 {
		t.Errorf("expected float 2 from Go node, got %s", got.TypeName())
	}
	if got := String("x").Reduce(); got.Str() != "x" {
		t.Error("Reduce must return non-JSON values unchanged")
	}
}

func TestDateDropsClock(t *testing.T) {
	v := Date(time.Date(2024, 3, 1, 23, 59, 0, 0, time.FixedZone("X", 3600)))
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !v.Time().Equal(want) {
		t.Errorf("expected %v, got %v", want, v.Time())
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Int(1), "integer"},
		{JSON(map[string]any{}), "json object"},
		{JSON([]any{}), "json array"},
		{Other(struct{}{}), "struct {}"},
	}
	for _, tt := range tests {
		if got := tt.v.TypeName(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.3400", "12.3400"},
		{"-0.5", "-0.5"},
		{"100", "100"},
		{"1e3", "1000"},
		{"1.5e-3", "0.0015"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDecimal(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, d.String())
			}
		})
	}

	if _, err := ParseDecimal("abc"); err == nil {
		t.Error("expected error for invalid decimal")
	}
}

func TestDecimalArithmetic(t *testing.T) {
	d := MustDecimal("10.25")
	if got := d.Add(MustDecimal("1")).String(); got != "11.25" {
		t.Errorf("expected 11.25, got %s", got)
	}
	if got := d.Sub(MustDecimal("0.125")).String(); got != "10.125" {
		t.Errorf("expected 10.125, got %s", got)
	}
	if got := DecimalFromRat(big.NewRat(1, 3)).Scale(); got != maxScale {
		t.Errorf("expected non-terminating fraction to use scale %d, got %d", maxScale, got)
	}
	if got := DecimalFromFloat(0.1).String(); got != "0.1" {
		t.Errorf("expected 0.1, got %s", got)
	}
	if got := (Decimal{}).String(); got != "0" {
		t.Errorf("expected zero value to render 0, got %s", got)
	}
}
