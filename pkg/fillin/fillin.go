// Package fillin renders bracket-placeholder patterns from the values of an object.
//
// A pattern is plain text with terms such as
//
//	Hello [Name]! Your balance is [Balance|N2:unknown] and renews on [Renewal|long(+86400)].
//
// Each term names a key, and may add a format after '|', a default for null
// values after ':' and a signed offset in parentheses. Terms nest: an inner
// term is resolved first and its text becomes part of the outer term.
//
// Basic usage:
//
//	out, err := fillin.Render("Hello [Name]!", user, fillin.DefaultConfig())
//
// Every failure aborts the render; no partial output is ever returned.
package fillin

import (
	"log/slog"

	"github.com/sambeau/fillin/pkg/fillin/evaluator"
	"github.com/sambeau/fillin/pkg/fillin/props"
	"github.com/sambeau/fillin/pkg/fillin/scanner"
	"github.com/sambeau/fillin/pkg/fillin/syntax"
	"github.com/sambeau/fillin/pkg/fillin/term"
)

// EngineConfig is the delimiter and culture configuration.
type EngineConfig = syntax.EngineConfig

// NewEngineConfig validates eight distinct delimiters and a culture.
var NewEngineConfig = syntax.NewEngineConfig

// DefaultConfig returns the "[key|format:default(+n)]" configuration.
func DefaultConfig() EngineConfig {
	return syntax.Default()
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the delimiter and culture configuration.
//
// Default: DefaultConfig()
func WithConfig(cfg EngineConfig) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets a logger for debug traces of each substitution. Errors are
// returned, never logged.
//
// Default: a logger that discards everything
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine renders patterns with a fixed configuration. It holds no per-render
// state and is safe for concurrent use.
type Engine struct {
	cfg    EngineConfig
	logger *slog.Logger
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:    syntax.Default(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Render captures source with props.Capture and renders pattern from it.
func (e *Engine) Render(pattern string, source any) (string, error) {
	return e.RenderContext(pattern, props.Capture(source))
}

// RenderContext renders pattern from an already captured Context.
func (e *Engine) RenderContext(pattern string, ctx *props.Context) (string, error) {
	s := scanner.New(e.cfg, func(raw scanner.Raw) (string, error) {
		t, err := term.ParseMasked(raw.Runes, raw.Masked, e.cfg)
		if err != nil {
			return "", err
		}
		return evaluator.Evaluate(t, ctx, e.cfg)
	})
	s.OnSubstitute = e.trace

	out, err := s.Run(pattern)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (e *Engine) trace(sub scanner.Substitution) {
	e.logger.Debug("substituted term",
		slog.String("term", sub.Raw),
		slog.Int("line", sub.Line),
		slog.Int("column", sub.Column),
		slog.Int("length", len(sub.Replacement)),
	)
}

// CheckedTerm is one term found by Check.
type CheckedTerm struct {
	Raw    string    `json:"raw"`
	Term   term.Term `json:"term"`
	Line   int       `json:"line"`
	Column int       `json:"column"`
}

// Check parses every term in pattern without evaluating any of them. Nested
// terms are replaced by empty text before their enclosing term is parsed.
func (e *Engine) Check(pattern string) ([]CheckedTerm, error) {
	var terms []CheckedTerm
	s := scanner.New(e.cfg, func(raw scanner.Raw) (string, error) {
		t, err := term.ParseMasked(raw.Runes, raw.Masked, e.cfg)
		if err != nil {
			return "", err
		}
		terms = append(terms, CheckedTerm{Raw: raw.String(), Term: t})
		return "", nil
	})
	s.OnSubstitute = func(sub scanner.Substitution) {
		last := &terms[len(terms)-1]
		last.Line, last.Column = sub.Line, sub.Column
	}

	if _, err := s.Run(pattern); err != nil {
		return nil, err
	}
	return terms, nil
}

// Render renders pattern from source with cfg.
func Render(pattern string, source any, cfg EngineConfig) (string, error) {
	return New(WithConfig(cfg)).Render(pattern, source)
}

// RenderContext renders pattern from ctx with cfg.
func RenderContext(pattern string, ctx *props.Context, cfg EngineConfig) (string, error) {
	return New(WithConfig(cfg)).RenderContext(pattern, ctx)
}

// Check parses every term in pattern with cfg.
func Check(pattern string, cfg EngineConfig) ([]CheckedTerm, error) {
	return New(WithConfig(cfg)).Check(pattern)
}

// MustRender is like Render but panics on error. It is intended for patterns
// and sources fixed at compile time.
func MustRender(pattern string, source any, cfg EngineConfig) string {
	out, err := Render(pattern, source, cfg)
	if err != nil {
		panic(err)
	}
	return out
}
