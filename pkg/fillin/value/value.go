// Package value defines Value, the dynamically typed union that a Context
// stores for each captured field.
package value

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindURI
	KindBool
	KindGUID
	KindJSON
	KindInt
	KindUint
	KindFloat
	KindDecimal
	KindDate
	KindDateTime
	KindDateTimeOffset
	KindDuration
	KindOther
)

var kindNames = map[Kind]string{
	KindNull:           "null",
	KindString:         "string",
	KindURI:            "uri",
	KindBool:           "boolean",
	KindGUID:           "guid",
	KindJSON:           "json",
	KindInt:            "integer",
	KindUint:           "unsigned",
	KindFloat:          "float",
	KindDecimal:        "decimal",
	KindDate:           "date",
	KindDateTime:       "datetime",
	KindDateTimeOffset: "datetimeoffset",
	KindDuration:       "duration",
	KindOther:          "other",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsNumeric reports whether offsets apply as arithmetic.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindUint || k == KindFloat || k == KindDecimal
}

// IsTemporal reports whether offsets apply as a number of seconds.
func (k Kind) IsTemporal() bool {
	return k == KindDate || k == KindDateTime || k == KindDateTimeOffset || k == KindDuration
}

// Value is an immutable tagged union. Only the field matching Kind is meaningful.
type Value struct {
	kind Kind
	s    string
	b    bool
	i    int64
	u    uint64
	f    float64
	dec  Decimal
	t    time.Time
	d    time.Duration
	uri  *url.URL
	guid uuid.UUID
	node any
}

// Null is the null value.
var Null = Value{kind: KindNull}

func String(s string) Value            { return Value{kind: KindString, s: s} }
func Bool(b bool) Value                { return Value{kind: KindBool, b: b} }
func Int(i int64) Value                { return Value{kind: KindInt, i: i} }
func Uint(u uint64) Value              { return Value{kind: KindUint, u: u} }
func Float(f float64) Value            { return Value{kind: KindFloat, f: f} }
func DecimalValue(d Decimal) Value     { return Value{kind: KindDecimal, dec: d} }
func DateTime(t time.Time) Value       { return Value{kind: KindDateTime, t: t} }
func DateTimeOffset(t time.Time) Value { return Value{kind: KindDateTimeOffset, t: t} }
func Duration(d time.Duration) Value   { return Value{kind: KindDuration, d: d} }
func GUID(g uuid.UUID) Value           { return Value{kind: KindGUID, guid: g} }

// URI wraps a parsed URL. A nil URL is Null.
func URI(u *url.URL) Value {
	if u == nil {
		return Null
	}
	return Value{kind: KindURI, uri: u}
}

// Date is a calendar date; the clock part of t is dropped.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// JSON wraps a decoded JSON node (nil, bool, string, float64, json.Number,
// map[string]any or []any).
func JSON(node any) Value {
	return Value{kind: KindJSON, node: node}
}

// Other wraps a Go value that has no dedicated kind.
func Other(v any) Value {
	return Value{kind: KindOther, node: v}
}

func (v Value) Kind() Kind              { return v.kind }
func (v Value) IsNull() bool            { return v.kind == KindNull }
func (v Value) Str() string             { return v.s }
func (v Value) Bool() bool              { return v.b }
func (v Value) Int() int64              { return v.i }
func (v Value) Uint() uint64            { return v.u }
func (v Value) Float() float64          { return v.f }
func (v Value) Decimal() Decimal        { return v.dec }
func (v Value) Time() time.Time         { return v.t }
func (v Value) Duration() time.Duration { return v.d }
func (v Value) URI() *url.URL           { return v.uri }
func (v Value) GUID() uuid.UUID         { return v.guid }
func (v Value) Node() any               { return v.node }

// TypeName describes the value for error messages; JSON nodes and Other values
// include their underlying type.
func (v Value) TypeName() string {
	switch v.kind {
	case KindJSON:
		return fmt.Sprintf("json %s", jsonNodeName(v.node))
	case KindOther:
		return fmt.Sprintf("%T", v.node)
	}
	return v.kind.String()
}

func jsonNodeName(node any) string {
	switch node.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", node)
	}
}

// Reduce resolves a JSON node to the kind its payload represents: null, string,
// boolean, integer or float. Objects, arrays and non-JSON values are returned unchanged.
func (v Value) Reduce() Value {
	if v.kind != KindJSON {
		return v
	}
	switch n := v.node.(type) {
	case nil:
		return Null
	case string:
		return String(n)
	case bool:
		return Bool(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return Int(i)
		}
		if d, err := ParseDecimal(n.String()); err == nil && d.IsInteger() {
			if u, ok := d.Uint64(); ok {
				return Uint(u)
			}
		}
		f, err := n.Float64()
		if err != nil {
			return v
		}
		return Float(f)
	case map[string]any, []any:
		return v
	}
	// A node built from a Go value rather than a JSON decoder.
	r := Of(v.node)
	if r.kind == KindJSON {
		return r.Reduce()
	}
	return r
}

// Valuer is implemented by types that convert themselves to a Value.
type Valuer interface {
	FillinValue() Value
}

// Of converts a Go value into a Value.
func Of(x any) Value {
	switch v := x.(type) {
	case nil:
		return Null
	case Value:
		return v
	case Valuer:
		return v.FillinValue()
	case string:
		return String(v)
	case []byte:
		if v == nil {
			return Null
		}
		return String(string(v))
	case bool:
		return Bool(v)
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint:
		return Uint(uint64(v))
	case uint8:
		return Uint(uint64(v))
	case uint16:
		return Uint(uint64(v))
	case uint32:
		return Uint(uint64(v))
	case uint64:
		return Uint(v)
	case float32:
		return Float(float64(v))
	case float64:
		return Float(v)
	case Decimal:
		return DecimalValue(v)
	case *big.Rat:
		if v == nil {
			return Null
		}
		return DecimalValue(DecimalFromRat(v))
	case time.Time:
		return DateTime(v)
	case time.Duration:
		return Duration(v)
	case uuid.UUID:
		return GUID(v)
	case *url.URL:
		return URI(v)
	case url.URL:
		return URI(&v)
	case json.Number:
		return JSON(v)
	case json.RawMessage:
		var node any
		if err := decodeJSON(v, &node); err != nil {
			return Other(v)
		}
		return JSON(node)
	case map[string]any, []any:
		return JSON(v)
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return Other(x)
		}
		return Of(dv)
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null
		}
		return Of(rv.Elem().Interface())
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	}
	return Other(x)
}
