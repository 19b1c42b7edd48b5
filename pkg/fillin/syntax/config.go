// Package syntax defines EngineConfig, the immutable set of delimiter
// characters and the formatting culture that drive term parsing and rendering.
package syntax

import (
	ferrors "github.com/sambeau/fillin/pkg/fillin/errors"
	"github.com/sambeau/fillin/pkg/fillin/locale"
)

// Default delimiter characters.
const (
	DefaultPositive    = '+'
	DefaultNegative    = '-'
	DefaultFormat      = '|'
	DefaultDefault     = ':'
	DefaultOpenOffset  = '('
	DefaultCloseOffset = ')'
	DefaultStartTerm   = '['
	DefaultEndTerm     = ']'
)

// EngineConfig holds the delimiter characters and culture for one or more renders.
// The zero value is not valid; use NewEngineConfig or Default.
type EngineConfig struct {
	positive    rune
	negative    rune
	format      rune
	def         rune
	openOffset  rune
	closeOffset rune
	start       rune
	end         rune
	culture     *locale.Culture
}

// NewEngineConfig validates that all eight delimiters are pairwise distinct.
// A nil culture selects locale.Invariant.
func NewEngineConfig(positive, negative, format, def, openOffset, closeOffset, start, end rune, culture *locale.Culture) (EngineConfig, error) {
	if culture == nil {
		culture = locale.Invariant
	}
	cfg := EngineConfig{
		positive:    positive,
		negative:    negative,
		format:      format,
		def:         def,
		openOffset:  openOffset,
		closeOffset: closeOffset,
		start:       start,
		end:         end,
		culture:     culture,
	}

	named := cfg.Delimiters()
	for i := 0; i < len(named); i++ {
		for j := i + 1; j < len(named); j++ {
			if named[i].Char == named[j].Char {
				return EngineConfig{}, ferrors.New(ferrors.CodeDuplicateDelimiter, map[string]any{
					"First":  named[i].Name,
					"Second": named[j].Name,
					"Char":   string(named[i].Char),
				})
			}
		}
	}
	return cfg, nil
}

var defaultConfig = EngineConfig{
	positive:    DefaultPositive,
	negative:    DefaultNegative,
	format:      DefaultFormat,
	def:         DefaultDefault,
	openOffset:  DefaultOpenOffset,
	closeOffset: DefaultCloseOffset,
	start:       DefaultStartTerm,
	end:         DefaultEndTerm,
	culture:     locale.Invariant,
}

// Default returns the "[key|format:default(+n)]" configuration with the invariant culture.
func Default() EngineConfig {
	return defaultConfig
}

// WithCulture returns a copy of cfg using culture (nil selects locale.Invariant).
func (c EngineConfig) WithCulture(culture *locale.Culture) EngineConfig {
	if culture == nil {
		culture = locale.Invariant
	}
	c.culture = culture
	return c
}

// NamedDelimiter pairs a delimiter with its configuration name.
type NamedDelimiter struct {
	Name string
	Char rune
}

// Delimiters lists the eight delimiters in declaration order.
func (c EngineConfig) Delimiters() []NamedDelimiter {
	return []NamedDelimiter{
		{"positive", c.positive},
		{"negative", c.negative},
		{"format", c.format},
		{"default", c.def},
		{"open_offset", c.openOffset},
		{"close_offset", c.closeOffset},
		{"start_term", c.start},
		{"end_term", c.end},
	}
}

func (c EngineConfig) PositiveOffset() rune   { return c.positive }
func (c EngineConfig) NegativeOffset() rune   { return c.negative }
func (c EngineConfig) FormatDelimiter() rune  { return c.format }
func (c EngineConfig) DefaultDelimiter() rune { return c.def }
func (c EngineConfig) OpenOffset() rune       { return c.openOffset }
func (c EngineConfig) CloseOffset() rune      { return c.closeOffset }
func (c EngineConfig) StartTerm() rune        { return c.start }
func (c EngineConfig) EndTerm() rune          { return c.end }

// Culture returns the formatting culture.
func (c EngineConfig) Culture() *locale.Culture {
	if c.culture == nil {
		return locale.Invariant
	}
	return c.culture
}

// IsStructural reports whether r is one of the six delimiters a key may not contain.
func (c EngineConfig) IsStructural(r rune) bool {
	switch r {
	case c.format, c.def, c.openOffset, c.closeOffset, c.start, c.end:
		return true
	}
	return false
}
