package scanner

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	ferrors "github.com/sambeau/fillin/pkg/fillin/errors"
	"github.com/sambeau/fillin/pkg/fillin/syntax"
)

// lookup resolves raw text from a fixed table and records the order of calls.
type lookup struct {
	values map[string]string
	calls  []string
}

func (l *lookup) resolve(r Raw) (string, error) {
	raw := r.String()
	l.calls = append(l.calls, raw)
	v, ok := l.values[raw]
	if !ok {
		return "", ferrors.NewKeyNotFound(raw, nil)
	}
	return v, nil
}

func TestRun(t *testing.T) {
	values := map[string]string{
		"Name":           "Ada",
		"Inner":          "fallback",
		"Outer:fallback": "resolved",
		"Brackets":       "[Name]",
		"Empty":          "",
	}

	tests := []struct {
		pattern string
		want    string
	}{
		{"plain text", "plain text"},
		{"", ""},
		{"Hello [Name]!", "Hello Ada!"},
		{"[Name]", "Ada"},
		{"[Name][Name]", "AdaAda"},
		{"[Name] and [Name]", "Ada and Ada"},
		{"[Outer:[Inner]]", "resolved"},
		{"x[Empty]y", "xy"},
		{"[Brackets]", "[Name]"},
		{"open [ only", "open [ only"},
		{"[Name] [", "Ada ["},
		{"line one\n[Name]\nline three", "line one\nAda\nline three"},
		{"héllo [Name] ✓", "héllo Ada ✓"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			l := &lookup{values: values}
			got, err := New(syntax.Default(), l.resolve).Run(tt.pattern)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestInnermostFirst(t *testing.T) {
	l := &lookup{values: map[string]string{
		"A":         "x",
		"B":         "y",
		"Outer:x y": "done",
	}}
	got, err := New(syntax.Default(), l.resolve).Run("[Outer:[A] [B]]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Errorf("expected done, got %q", got)
	}
	if want := []string{"A", "B", "Outer:x y"}; !reflect.DeepEqual(l.calls, want) {
		t.Errorf("expected resolution order %v, got %v", want, l.calls)
	}
}

func TestReplacementIsNotRescanned(t *testing.T) {
	l := &lookup{values: map[string]string{"X": "]", "Y": "[Y]"}}
	got, err := New(syntax.Default(), l.resolve).Run("[X] [Y]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "] [Y]" {
		t.Errorf("expected '] [Y]', got %q", got)
	}
	if len(l.calls) != 2 {
		t.Errorf("expected two resolutions, got %v", l.calls)
	}
}

func TestUnmatchedCloseDelimiter(t *testing.T) {
	tests := []struct {
		pattern string
		line    int
		column  int
	}{
		{"abc]", 1, 4},
		{"[Name] ]", 1, 8},
		{"ok\n  ]", 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			l := &lookup{values: map[string]string{"Name": "Ada"}}
			got, err := New(syntax.Default(), l.resolve).Run(tt.pattern)
			if !errors.Is(err, ferrors.ErrUnmatchedCloseDelimiter) {
				t.Fatalf("expected ErrUnmatchedCloseDelimiter, got %v", err)
			}
			if got != "" {
				t.Errorf("expected no output, got %q", got)
			}
			var fe *ferrors.FillinError
			errors.As(err, &fe)
			if fe.Line != tt.line || fe.Column != tt.column {
				t.Errorf("expected line %d column %d, got %d:%d", tt.line, tt.column, fe.Line, fe.Column)
			}
		})
	}
}

func TestResolverErrorAbortsRun(t *testing.T) {
	l := &lookup{values: map[string]string{"A": "a"}}
	s := New(syntax.Default(), l.resolve)

	got, err := s.Run("[A]\n  [Missing] [A]")
	if !errors.Is(err, ferrors.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if got != "" {
		t.Errorf("expected no partial output, got %q", got)
	}
	if s.State() != Failed || s.Err() != err {
		t.Errorf("expected Failed state holding the error, got %s", s.State())
	}
	if _, ok := s.Result(); ok {
		t.Error("Result must not report output for a failed run")
	}

	var fe *ferrors.FillinError
	errors.As(err, &fe)
	if fe.Line != 2 || fe.Column != 3 {
		t.Errorf("expected position 2:3, got %d:%d", fe.Line, fe.Column)
	}
	if want := []string{"A", "Missing"}; !reflect.DeepEqual(l.calls, want) {
		t.Errorf("expected scanning to stop at the failure, got %v", l.calls)
	}
}

func TestForeignErrorsPassThrough(t *testing.T) {
	boom := fmt.Errorf("boom")
	_, err := New(syntax.Default(), func(Raw) (string, error) { return "", boom }).Run("[X]")
	if err != boom {
		t.Errorf("expected resolver error unchanged, got %v", err)
	}
}

func TestStep(t *testing.T) {
	l := &lookup{values: map[string]string{"A": "1", "B": "2"}}
	s := New(syntax.Default(), l.resolve)
	if s.State() != Done {
		t.Errorf("expected a new scanner to be idle, got %s", s.State())
	}

	s.Reset("[A]-[B]")
	var states []State
	for {
		st := s.Step()
		states = append(states, st)
		if st != Scanning {
			break
		}
	}
	if want := []State{Scanning, Scanning, Done}; !reflect.DeepEqual(states, want) {
		t.Errorf("expected %v, got %v", want, states)
	}
	if out, ok := s.Result(); !ok || out != "1-2" {
		t.Errorf("expected 1-2, got %q", out)
	}
	if s.Step() != Done {
		t.Error("Step after Done must stay Done")
	}
}

func TestOnSubstitute(t *testing.T) {
	l := &lookup{values: map[string]string{"A": "1"}}
	s := New(syntax.Default(), l.resolve)

	var seen []Substitution
	s.OnSubstitute = func(sub Substitution) { seen = append(seen, sub) }

	if _, err := s.Run("x\n [A]"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Substitution{{Raw: "A", Replacement: "1", Line: 2, Column: 2}}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("expected %+v, got %+v", want, seen)
	}
}

func TestCustomDelimiters(t *testing.T) {
	cfg, err := syntax.NewEngineConfig('+', '-', '|', ':', '(', ')', '{', '}', nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l := &lookup{values: map[string]string{"Name": "Ada"}}
	got, err := New(cfg, l.resolve).Run("[keep] {Name}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[keep] Ada" {
		t.Errorf("expected '[keep] Ada', got %q", got)
	}
}

func TestScannerReuse(t *testing.T) {
	l := &lookup{values: map[string]string{"A": "a"}}
	s := New(syntax.Default(), l.resolve)

	if _, err := s.Run("]"); err == nil {
		t.Fatal("expected error")
	}
	got, err := s.Run("[A]" + strings.Repeat(".", 3))
	if err != nil {
		t.Fatalf("unexpected error after reuse: %v", err)
	}
	if got != "a..." {
		t.Errorf("expected a..., got %q", got)
	}
}

func TestResolverSeesMaskedRunes(t *testing.T) {
	var outer Raw
	resolve := func(r Raw) (string, error) {
		switch r.String() {
		case "Br":
			return "a]b", nil
		case "Out:a]b":
			outer = r
			return "ok", nil
		}
		return "", ferrors.NewKeyNotFound(r.String(), nil)
	}

	got, err := New(syntax.Default(), resolve).Run("[Out:[Br]]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected %q, got %q", "ok", got)
	}
	want := []bool{false, false, false, false, true, true, true}
	if !reflect.DeepEqual(outer.Masked, want) {
		t.Errorf("expected mask %v, got %v", want, outer.Masked)
	}
}
