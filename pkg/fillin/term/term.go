// Package term parses the text between one pair of term delimiters into a Term.
//
// With the default configuration a term has the shape
//
//	key[|format][:default][(±magnitude)]
//
// and the parser recognizes five shapes in priority order:
//
//	key|format:default(offset)   both format and default delimiters
//	key|format(offset)           format delimiter only
//	key:default(offset)          default delimiter only
//	key(offset)                  offset only
//	key                          anything else
//
// The offset is optional in the first four shapes. Each split happens at the
// first occurrence of its delimiter. Runes that ParseMasked is told came from
// earlier replacements never split.
package term

import (
	"math"
	"strings"

	ferrors "github.com/sambeau/fillin/pkg/fillin/errors"
	"github.com/sambeau/fillin/pkg/fillin/syntax"
)

// Sign is the direction of an offset.
type Sign int

const (
	Greater Sign = iota // add the magnitude
	Less                // subtract the magnitude
)

func (s Sign) String() string {
	if s == Less {
		return "less"
	}
	return "greater"
}

func (s Sign) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// OffsetSpec is a parsed offset. Magnitude is always positive and finite.
type OffsetSpec struct {
	Sign      Sign    `json:"sign"`
	Magnitude float64 `json:"magnitude"`
}

// Signed returns the magnitude with the sign applied.
func (o OffsetSpec) Signed() float64 {
	if o.Sign == Less {
		return -o.Magnitude
	}
	return o.Magnitude
}

// Term is one parsed placeholder. Format and Default are nil when absent,
// which is distinct from present but empty ("[X:]").
type Term struct {
	Key     string      `json:"key"`
	Format  *string     `json:"format,omitempty"`
	Default *string     `json:"default,omitempty"`
	Offset  *OffsetSpec `json:"offset,omitempty"`
}

// HasFormat reports whether the term carries a non-empty format.
func (t Term) HasFormat() bool {
	return t.Format != nil && *t.Format != ""
}

// FormatText returns the format, or "" when absent.
func (t Term) FormatText() string {
	if t.Format == nil {
		return ""
	}
	return *t.Format
}

// DefaultText returns the default, or "" when absent.
func (t Term) DefaultText() string {
	if t.Default == nil {
		return ""
	}
	return *t.Default
}

// Parse parses raw, the text strictly between a start and an end term delimiter.
func Parse(raw string, cfg syntax.EngineConfig) (Term, error) {
	return ParseMasked([]rune(raw), nil, cfg)
}

// ParseMasked is Parse for text that already holds earlier replacements. A
// rune whose masked flag is set is literal and never acts as a delimiter.
// masked is either nil or as long as raw.
func ParseMasked(raw []rune, masked []bool, cfg syntax.EngineConfig) (Term, error) {
	p := parser{raw: raw, masked: masked, cfg: cfg, text: string(raw)}
	return p.parse()
}

type parser struct {
	raw    []rune
	masked []bool
	cfg    syntax.EngineConfig
	text   string
}

func (p *parser) literal(i int) bool {
	return p.masked != nil && p.masked[i]
}

// index returns the position of the first unmasked r in raw[from:to], or -1.
func (p *parser) index(r rune, from, to int) int {
	for i := from; i < to; i++ {
		if p.raw[i] == r && !p.literal(i) {
			return i
		}
	}
	return -1
}

func (p *parser) slice(from, to int) *string {
	s := string(p.raw[from:to])
	return &s
}

func (p *parser) parse() (Term, error) {
	n := len(p.raw)
	for i, r := range p.raw {
		if (r == p.cfg.StartTerm() || r == p.cfg.EndTerm()) && !p.literal(i) {
			return Term{}, nestedDelimiter(p.text, r)
		}
	}

	formatAt := p.index(p.cfg.FormatDelimiter(), 0, n)
	defaultAt := p.index(p.cfg.DefaultDelimiter(), 0, n)
	openAt := p.index(p.cfg.OpenOffset(), 0, n)

	var t Term
	var err error
	keyEnd := n

	switch {
	case formatAt >= 0 && defaultAt >= 0:
		// key|format:rest. A default delimiter before the format delimiter stays
		// in the key and is rejected there.
		keyEnd = formatAt
		colon := p.index(p.cfg.DefaultDelimiter(), formatAt+1, n)
		if colon < 0 {
			t.Format, t.Offset, err = p.splitOffset(formatAt+1, n)
			break
		}
		t.Format = p.slice(formatAt+1, colon)
		t.Default, t.Offset, err = p.splitOffset(colon+1, n)

	case formatAt >= 0:
		keyEnd = formatAt
		t.Format, t.Offset, err = p.splitOffset(formatAt+1, n)

	case defaultAt >= 0:
		keyEnd = defaultAt
		t.Default, t.Offset, err = p.splitOffset(defaultAt+1, n)

	case openAt >= 0:
		keyEnd = openAt
		_, t.Offset, err = p.splitOffset(0, n)
	}

	if err != nil {
		return Term{}, err
	}
	if err := p.checkKey(keyEnd); err != nil {
		return Term{}, err
	}
	t.Key = string(p.raw[:keyEnd])
	return t, nil
}

// splitOffset splits raw[from:to] into the text before the open offset
// delimiter and the parsed offset. The offset region must run to the end.
func (p *parser) splitOffset(from, to int) (*string, *OffsetSpec, error) {
	open := p.index(p.cfg.OpenOffset(), from, to)
	if open < 0 {
		if p.index(p.cfg.CloseOffset(), from, to) >= 0 {
			return nil, nil, malformedOffset(p.text, p.cfg)
		}
		return p.slice(from, to), nil, nil
	}

	if p.index(p.cfg.CloseOffset(), from, open) >= 0 {
		return nil, nil, malformedOffset(p.text, p.cfg)
	}
	end := p.index(p.cfg.CloseOffset(), open+1, to)
	if end < 0 || end+1 != to || p.index(p.cfg.OpenOffset(), open+1, end) >= 0 {
		return nil, nil, malformedOffset(p.text, p.cfg)
	}

	offset, err := ParseOffset(string(p.raw[open+1:end]), p.cfg)
	if err != nil {
		return nil, nil, err
	}
	return p.slice(from, open), &offset, nil
}

func (p *parser) checkKey(end int) error {
	if strings.TrimSpace(string(p.raw[:end])) == "" {
		return ferrors.New(ferrors.CodeEmptyKey, map[string]any{"Raw": p.text})
	}
	for i := 0; i < end; i++ {
		if !p.literal(i) && p.cfg.IsStructural(p.raw[i]) {
			return nestedDelimiter(p.text, p.raw[i])
		}
	}
	return nil
}

// ParseOffset parses the text between the offset delimiters. Every sign rune is
// stripped; when both signs appear the positive one wins.
func ParseOffset(raw string, cfg syntax.EngineConfig) (OffsetSpec, error) {
	hasPositive := strings.ContainsRune(raw, cfg.PositiveOffset())
	hasNegative := strings.ContainsRune(raw, cfg.NegativeOffset())
	if !hasPositive && !hasNegative {
		return OffsetSpec{}, ferrors.New(ferrors.CodeMissingSign, map[string]any{
			"Raw":      raw,
			"Positive": string(cfg.PositiveOffset()),
			"Negative": string(cfg.NegativeOffset()),
		})
	}

	spec := OffsetSpec{Sign: Less, Magnitude: 1}
	if hasPositive {
		spec.Sign = Greater
	}

	magnitude := strings.Map(func(r rune) rune {
		if r == cfg.PositiveOffset() || r == cfg.NegativeOffset() {
			return -1
		}
		return r
	}, raw)
	magnitude = strings.TrimSpace(magnitude)
	if magnitude == "" {
		return spec, nil
	}

	f, err := cfg.Culture().ParseFloat(magnitude)
	if err != nil || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		fe := ferrors.New(ferrors.CodeInvalidMagnitude, map[string]any{"Magnitude": magnitude})
		if err != nil {
			return OffsetSpec{}, fe.WithCause(err)
		}
		return OffsetSpec{}, fe
	}
	spec.Magnitude = f
	return spec, nil
}

func nestedDelimiter(raw string, r rune) error {
	return ferrors.New(ferrors.CodeNestedDelimiterInKey, map[string]any{
		"Raw":  raw,
		"Char": string(r),
	})
}

func malformedOffset(raw string, cfg syntax.EngineConfig) error {
	return ferrors.New(ferrors.CodeMalformedOffset, map[string]any{
		"Raw":   raw,
		"Open":  string(cfg.OpenOffset()),
		"Close": string(cfg.CloseOffset()),
	})
}
