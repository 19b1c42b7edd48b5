package props

import (
	"database/sql/driver"
	"reflect"
	"testing"

	"github.com/sambeau/fillin/pkg/fillin/value"
)

type Address struct {
	City string
	Zip  string `fillin:"PostCode"`
}

type Person struct {
	Address
	Name    string
	Age     int
	Secret  string `fillin:"-"`
	Manager *Person
	private string
}

type listed struct{}

func (listed) Fields() []Field {
	return []Field{F("A", 1), F("B", "two"), F("A", 3)}
}

type rowValuer struct{}

func (rowValuer) Value() (driver.Value, error) {
	return map[string]any{"Id": int64(7)}, nil
}

func TestNewDuplicatesLastWriteWins(t *testing.T) {
	c := New(F("X", 1), F("Y", 2), F("X", 3))

	if c.Len() != 2 {
		t.Fatalf("expected 2 names, got %d", c.Len())
	}
	if got := c.Names(); !reflect.DeepEqual(got, []string{"X", "Y"}) {
		t.Errorf("expected first positions to be kept, got %v", got)
	}
	v, ok := c.Lookup("X")
	if !ok || v.Int() != 3 {
		t.Errorf("expected X=3, got %v (found %v)", v.Int(), ok)
	}
}

func TestLookupMissingVersusNull(t *testing.T) {
	c := New(F("X", nil))

	v, ok := c.Lookup("X")
	if !ok {
		t.Fatal("expected X to be present")
	}
	if !v.IsNull() {
		t.Errorf("expected null, got %s", v.Kind())
	}

	if _, ok := c.Lookup("Missing"); ok {
		t.Error("expected Missing to be absent")
	}
	if _, ok := c.Lookup("x"); ok {
		t.Error("lookup must be case-sensitive")
	}

	var nilContext *Context
	if _, ok := nilContext.Lookup("X"); ok {
		t.Error("nil context must report every name as absent")
	}
}

func TestCaptureStruct(t *testing.T) {
	boss := &Person{Name: "Grace"}
	p := Person{
		Address: Address{City: "London", Zip: "N1"},
		Name:    "Ada",
		Age:     36,
		Secret:  "hidden",
		Manager: boss,
		private: "x",
	}

	for _, source := range []any{p, &p} {
		c := Capture(source)
		want := []string{"City", "PostCode", "Name", "Age", "Manager"}
		if got := c.Names(); !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}

		name, _ := c.Lookup("Name")
		if name.Str() != "Ada" {
			t.Errorf("expected Ada, got %q", name.Str())
		}
		age, _ := c.Lookup("Age")
		if age.Kind() != value.KindInt || age.Int() != 36 {
			t.Errorf("expected integer 36, got %s", age.TypeName())
		}
		manager, _ := c.Lookup("Manager")
		if manager.Kind() != value.KindOther {
			t.Errorf("expected nested struct to be other, got %s", manager.Kind())
		}
	}

	noManager := Capture(Person{Name: "Ada"})
	if v, ok := noManager.Lookup("Manager"); !ok || !v.IsNull() {
		t.Error("expected nil pointer field to be captured as null")
	}
}

func TestCaptureMaps(t *testing.T) {
	c := Capture(map[string]any{"b": 2, "a": "one", "c": nil})
	if got := c.Names(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("expected sorted names, got %v", got)
	}

	typed := Capture(map[string]int{"z": 1, "y": 2})
	if got := typed.Names(); !reflect.DeepEqual(got, []string{"y", "z"}) {
		t.Errorf("expected sorted names, got %v", got)
	}

	values := Capture(map[string]value.Value{"k": value.Bool(true)})
	if v, _ := values.Lookup("k"); !v.Bool() {
		t.Error("expected k=true")
	}

	if Capture(map[int]string{1: "x"}).Len() != 0 {
		t.Error("expected maps without string keys to capture nothing")
	}
}

func TestCaptureSourcesAndPassthrough(t *testing.T) {
	c := Capture(listed{})
	if got := c.Names(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("expected [A B], got %v", got)
	}
	if v, _ := c.Lookup("A"); v.Int() != 3 {
		t.Errorf("expected A=3, got %d", v.Int())
	}

	if Capture(c) != c {
		t.Error("expected a *Context to be used as-is")
	}

	row := Capture(rowValuer{})
	if v, ok := row.Lookup("Id"); !ok || v.Int() != 7 {
		t.Error("expected driver.Valuer to be captured through its value")
	}
}

func TestCaptureUnsupported(t *testing.T) {
	for _, source := range []any{nil, 42, "text", []int{1}, (*Person)(nil)} {
		if c := Capture(source); c.Len() != 0 {
			t.Errorf("Capture(%T): expected empty context, got %v", source, c.Names())
		}
	}
}

func TestWith(t *testing.T) {
	base := New(F("A", 1))
	extended := base.With(F("B", 2), F("A", 9))

	if base.Len() != 1 {
		t.Error("With must not modify the receiver")
	}
	if v, _ := extended.Lookup("A"); v.Int() != 9 {
		t.Errorf("expected A=9, got %d", v.Int())
	}
	if extended.String() != "{A: integer, B: integer}" {
		t.Errorf("unexpected String() %q", extended.String())
	}
}
