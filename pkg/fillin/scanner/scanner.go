// Package scanner drives substitution over a pattern.
//
// The scanner repeatedly finds the first end delimiter, pairs it with the
// last start delimiter before it and replaces that span with the resolved
// text. Because an inner pair always closes first, nested terms are resolved
// before the term that encloses them.
//
// Substituted text is masked: delimiters that appear in a replacement are
// plain text and never start or end another term.
package scanner

import (
	"errors"

	ferrors "github.com/sambeau/fillin/pkg/fillin/errors"
	"github.com/sambeau/fillin/pkg/fillin/syntax"
)

// State is the scanner's position in its state machine.
type State int

const (
	Scanning State = iota
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Raw is the text between one pair of delimiters. Masked[i] is true when
// Runes[i] came from an earlier replacement.
type Raw struct {
	Runes  []rune
	Masked []bool
}

func (r Raw) String() string {
	return string(r.Runes)
}

// Resolver turns the raw text of one term into its replacement.
type Resolver func(raw Raw) (string, error)

// Substitution describes one completed replacement.
type Substitution struct {
	Raw         string
	Replacement string
	Line        int
	Column      int
}

// Scanner holds the buffer for one pattern. It is not safe for concurrent use;
// create one per goroutine or per call.
type Scanner struct {
	cfg     syntax.EngineConfig
	resolve Resolver

	// OnSubstitute, when set, is called after each successful replacement.
	OnSubstitute func(Substitution)

	pattern []rune
	buf     []rune
	masked  []bool // true for runes produced by a replacement
	origin  []int  // index into pattern, or -1 for replaced text
	pos     int
	state   State
	err     error
}

// New returns a scanner that resolves terms with resolve.
func New(cfg syntax.EngineConfig, resolve Resolver) *Scanner {
	return &Scanner{cfg: cfg, resolve: resolve, state: Done}
}

// Reset loads pattern and puts the scanner in the Scanning state.
func (s *Scanner) Reset(pattern string) {
	s.pattern = []rune(pattern)
	s.buf = append(s.buf[:0], s.pattern...)
	s.masked = s.masked[:0]
	s.origin = s.origin[:0]
	for i := range s.pattern {
		s.masked = append(s.masked, false)
		s.origin = append(s.origin, i)
	}
	s.pos = 0
	s.state = Scanning
	s.err = nil
}

// State returns the current state.
func (s *Scanner) State() State {
	return s.state
}

// Err returns the error that moved the scanner to Failed.
func (s *Scanner) Err() error {
	return s.err
}

// Result returns the rendered text once the scanner is Done.
func (s *Scanner) Result() (string, bool) {
	if s.state != Done {
		return "", false
	}
	return string(s.buf), true
}

// Run renders pattern to completion. A failed run returns no text.
func (s *Scanner) Run(pattern string) (string, error) {
	s.Reset(pattern)
	for s.Step() == Scanning {
	}
	if s.state == Failed {
		return "", s.err
	}
	return string(s.buf), nil
}

// Step performs one transition and returns the new state. Each successful step
// consumes at least one unmasked end delimiter, so a run always terminates.
func (s *Scanner) Step() State {
	if s.state != Scanning {
		return s.state
	}

	end := s.find(s.cfg.EndTerm(), s.pos)
	if end < 0 {
		s.state = Done
		return s.state
	}

	start := s.findLast(s.cfg.StartTerm(), end)
	if start < 0 {
		line, col := s.position(end)
		return s.fail(ferrors.New(ferrors.CodeUnmatchedCloseDelimiter, map[string]any{
			"Char": string(s.cfg.EndTerm()),
			"Open": string(s.cfg.StartTerm()),
		}).WithPosition(line, col))
	}

	raw := Raw{
		Runes:  append([]rune(nil), s.buf[start+1:end]...),
		Masked: append([]bool(nil), s.masked[start+1:end]...),
	}
	line, col := s.position(start)

	replacement, err := s.resolve(raw)
	if err != nil {
		return s.fail(withPosition(err, line, col))
	}

	s.splice(start, end+1, []rune(replacement))
	s.pos = start + len([]rune(replacement))

	if s.OnSubstitute != nil {
		s.OnSubstitute(Substitution{Raw: raw.String(), Replacement: replacement, Line: line, Column: col})
	}
	return s.state
}

func (s *Scanner) fail(err error) State {
	s.state = Failed
	s.err = err
	s.buf = s.buf[:0]
	return s.state
}

// find returns the index of the first unmasked r at or after from.
func (s *Scanner) find(r rune, from int) int {
	for i := from; i < len(s.buf); i++ {
		if s.buf[i] == r && !s.masked[i] {
			return i
		}
	}
	return -1
}

// findLast returns the index of the last unmasked r before limit.
func (s *Scanner) findLast(r rune, limit int) int {
	for i := limit - 1; i >= 0; i-- {
		if s.buf[i] == r && !s.masked[i] {
			return i
		}
	}
	return -1
}

// splice replaces buf[from:to] with text, marking the new runes as masked.
func (s *Scanner) splice(from, to int, text []rune) {
	tail := len(s.buf) - to
	size := from + len(text) + tail

	buf := make([]rune, size)
	masked := make([]bool, size)
	origin := make([]int, size)

	copy(buf, s.buf[:from])
	copy(masked, s.masked[:from])
	copy(origin, s.origin[:from])

	copy(buf[from:], text)
	for i := from; i < from+len(text); i++ {
		masked[i] = true
		origin[i] = -1
	}

	copy(buf[from+len(text):], s.buf[to:])
	copy(masked[from+len(text):], s.masked[to:])
	copy(origin[from+len(text):], s.origin[to:])

	s.buf, s.masked, s.origin = buf, masked, origin
}

// position returns the 1-based line and column in the original pattern of the
// rune at buffer index i.
func (s *Scanner) position(i int) (int, int) {
	at := s.origin[i]
	if at < 0 {
		return 0, 0
	}
	line, col := 1, 1
	for _, r := range s.pattern[:at] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

func withPosition(err error, line, col int) error {
	var fe *ferrors.FillinError
	if errors.As(err, &fe) && fe.Line == 0 {
		return fe.WithPosition(line, col)
	}
	return err
}
