// Package props captures a snapshot of an object's named values.
//
// A Context is built once per render from a source object and is read-only
// afterwards, so it is safe to share between goroutines.
package props

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/sambeau/fillin/pkg/fillin/value"
)

// Field is one named value exposed by a source object.
type Field struct {
	Name  string
	Value value.Value
}

// F builds a Field from any Go value.
func F(name string, v any) Field {
	return Field{Name: name, Value: value.Of(v)}
}

// Source is implemented by objects that list their own fields.
// Fields must be deterministic and free of side effects.
type Source interface {
	Fields() []Field
}

// Context is an ordered, fixed set of uniquely named values.
type Context struct {
	fields []Field
	index  map[string]int
}

// New builds a Context from fields. When a name repeats, the last value wins
// and the name keeps the position of its first occurrence.
func New(fields ...Field) *Context {
	c := &Context{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		c.set(f.Name, f.Value)
	}
	return c
}

func (c *Context) set(name string, v value.Value) {
	if i, ok := c.index[name]; ok {
		c.fields[i].Value = v
		return
	}
	c.index[name] = len(c.fields)
	c.fields = append(c.fields, Field{Name: name, Value: v})
}

// Lookup returns the value for name. The match is exact and case-sensitive.
// A false result means the name was never captured, which is distinct from a
// captured null value.
func (c *Context) Lookup(name string) (value.Value, bool) {
	if c == nil {
		return value.Value{}, false
	}
	i, ok := c.index[name]
	if !ok {
		return value.Value{}, false
	}
	return c.fields[i].Value, true
}

// Names returns the captured names in order.
func (c *Context) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.fields))
	for i, f := range c.fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of captured names.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fields)
}

// Fields returns a copy of the captured fields in order.
func (c *Context) Fields() []Field {
	if c == nil {
		return nil
	}
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// With returns a new Context holding c's fields followed by extra.
func (c *Context) With(extra ...Field) *Context {
	return New(append(c.Fields(), extra...)...)
}

// Capture snapshots source. It understands *Context, Source, maps with string
// keys, structs (and pointers to them) and driver.Valuer values; anything else
// yields an empty Context.
//
// Struct fields are exported fields named by their `fillin:"name"` tag or
// their Go name. A `fillin:"-"` tag skips the field and embedded structs are
// flattened into the parent.
func Capture(source any) *Context {
	switch s := source.(type) {
	case nil:
		return New()
	case *Context:
		if s == nil {
			return New()
		}
		return s
	case Source:
		return New(s.Fields()...)
	case map[string]any:
		return captureStringMap(s)
	case map[string]value.Value:
		keys := sortedKeys(s)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Name: k, Value: s[k]}
		}
		return New(fields...)
	case driver.Valuer:
		v, err := s.Value()
		if err != nil {
			return New()
		}
		return Capture(v)
	}

	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return New()
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		c := New()
		captureStruct(c, rv)
		return c
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return New()
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		c := New()
		for _, k := range keys {
			c.set(k.String(), value.Of(rv.MapIndex(k).Interface()))
		}
		return c
	}
	return New()
}

// Map keys have no order of their own; sort them so captures are deterministic.
func captureStringMap(m map[string]any) *Context {
	keys := sortedKeys(m)
	c := New()
	for _, k := range keys {
		c.set(k, value.Of(m[k]))
	}
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func captureStruct(c *Context, rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag, hasTag := sf.Tag.Lookup("fillin")
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}

		fv := rv.Field(i)
		if sf.Anonymous && !hasTag {
			for fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					break
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				captureStruct(c, fv)
				continue
			}
		}

		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		c.set(name, value.Of(fv.Interface()))
	}
}

// String renders the context as name=value pairs for debugging.
func (c *Context) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, f := range c.Fields() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", f.Name, f.Value.TypeName())
	}
	sb.WriteString("}")
	return sb.String()
}
