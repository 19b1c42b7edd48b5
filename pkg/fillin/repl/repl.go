// Package repl implements an interactive shell for trying patterns against
// a data record.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/fillin/pkg/fillin"
	ferrors "github.com/sambeau/fillin/pkg/fillin/errors"
	"github.com/sambeau/fillin/pkg/fillin/locale"
	"github.com/sambeau/fillin/pkg/fillin/props"
	"github.com/sambeau/fillin/pkg/fillin/source"
	"github.com/sambeau/fillin/pkg/fillin/term"
)

const PROMPT = ">> "
const PROMPT_CHECK = "?> "
const CONTINUATION_PROMPT = ".. "

const LOGO = `
█▀▀ █ █░░ █░░ █ █▄░█
█▀░ █ █▄▄ █▄▄ █ █░▀█ `

// Session holds the engine and data record used by the shell.
type Session struct {
	engine    *fillin.Engine
	data      *props.Context
	checkMode bool // When true, input is parsed and the terms are listed instead of rendered
}

// NewSession creates a session rendering with engine against data.
func NewSession(engine *fillin.Engine, data *props.Context) *Session {
	if engine == nil {
		engine = fillin.New()
	}
	if data == nil {
		data = props.New()
	}
	return &Session{engine: engine, data: data}
}

// Data returns the current record.
func (s *Session) Data() *props.Context {
	return s.data
}

// Prompt returns the prompt for the current mode.
func (s *Session) Prompt() string {
	if s.checkMode {
		return PROMPT_CHECK
	}
	return PROMPT
}

// Start starts the REPL with line editing, history, and tab completion
func Start(s *Session, out io.Writer, version string) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(s.Complete)

	historyFile := filepath.Join(os.TempDir(), ".fillin_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "%s", LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab to complete names after the start delimiter, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder

	for {
		currentPrompt := s.Prompt()
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			s.Command(trimmed, out)
			continue
		}

		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if s.NeedsMoreInput(fullInput) {
			continue
		}

		line.AppendHistory(fullInput)
		s.Eval(fullInput, out)
		inputBuffer.Reset()
	}
}

// Eval renders (or, in check mode, parses) one complete pattern.
func (s *Session) Eval(pattern string, out io.Writer) {
	if s.checkMode {
		terms, err := s.engine.Check(pattern)
		if err != nil {
			printError(out, err)
			return
		}
		if len(terms) == 0 {
			io.WriteString(out, "(no terms)\n")
			return
		}
		for _, t := range terms {
			fmt.Fprintf(out, "  %d:%d %s\n", t.Line, t.Column, describe(t.Term))
		}
		return
	}

	result, err := s.engine.RenderContext(pattern, s.data)
	if err != nil {
		printError(out, err)
		return
	}
	io.WriteString(out, result)
	if !strings.HasSuffix(result, "\n") {
		io.WriteString(out, "\n")
	}
}

// describe summarizes a parsed term on one line.
func describe(t term.Term) string {
	parts := []string{fmt.Sprintf("key=%q", t.Key)}
	if t.HasFormat() {
		parts = append(parts, fmt.Sprintf("format=%q", t.FormatText()))
	}
	if t.Default != nil {
		parts = append(parts, fmt.Sprintf("default=%q", *t.Default))
	}
	if t.Offset != nil {
		parts = append(parts, fmt.Sprintf("offset=%+g", t.Offset.Signed()))
	}
	return strings.Join(parts, " ")
}

// Command handles REPL meta-commands that start with ':'
func (s *Session) Command(cmd string, out io.Writer) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?      Show this help")
		fmt.Fprintln(out, "  :data              Show the names in the current record")
		fmt.Fprintln(out, "  :set name=value    Add or replace a value (types are inferred)")
		fmt.Fprintln(out, "  :load path         Merge a .json, .yaml or .env file into the record")
		fmt.Fprintln(out, "  :clear             Remove every value")
		fmt.Fprintln(out, "  :culture tag       Format numbers and dates for a culture (e.g. de-DE)")
		fmt.Fprintln(out, "  :check             Toggle check mode (list terms instead of rendering)")
		fmt.Fprintln(out, "  exit, quit         Exit the REPL")

	case ":data":
		s.printData(out)

	case ":set":
		ctx, err := source.Pairs([]string{arg})
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		s.data = source.Merge(s.data, ctx)
		fmt.Fprintln(out, "OK")

	case ":load":
		if arg == "" {
			fmt.Fprintln(out, "Usage: :load path")
			return
		}
		ctx, err := source.Load(arg)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		s.data = source.Merge(s.data, ctx)
		fmt.Fprintf(out, "Loaded %d names from %s\n", ctx.Len(), arg)

	case ":clear":
		s.data = props.New()
		fmt.Fprintln(out, "Record cleared")

	case ":culture":
		culture, err := locale.Parse(arg)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		s.engine = fillin.New(fillin.WithConfig(s.engine.Config().WithCulture(culture)))
		fmt.Fprintf(out, "Culture set to %s\n", culture.Name())

	case ":check":
		s.checkMode = !s.checkMode
		if s.checkMode {
			fmt.Fprintln(out, "Check mode ON (terms are listed, not rendered)")
		} else {
			fmt.Fprintln(out, "Check mode OFF")
		}

	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", name)
	}
}

// printData displays every name with its kind and value
func (s *Session) printData(out io.Writer) {
	if s.data.Len() == 0 {
		fmt.Fprintln(out, "(no values)")
		return
	}

	cfg := s.engine.Config()
	pattern := string(cfg.StartTerm()) + "v" + string(cfg.EndTerm())
	for _, f := range s.data.Fields() {
		v := f.Value.Reduce()
		text, err := s.engine.RenderContext(pattern, props.New(props.Field{Name: "v", Value: v}))
		if err != nil {
			text = "(" + v.TypeName() + ")"
		}
		if len(text) > 60 {
			text = text[:57] + "..."
		}
		fmt.Fprintf(out, "  %s: %s = %s\n", f.Name, v.Kind(), text)
	}
}

// Complete returns whole-line candidates that finish the name being typed
// after the last unclosed start delimiter.
func (s *Session) Complete(line string) []string {
	cfg := s.engine.Config()
	start := strings.LastIndex(line, string(cfg.StartTerm()))
	if start < 0 {
		return nil
	}
	partial := line[start+len(string(cfg.StartTerm())):]
	if strings.IndexFunc(partial, cfg.IsStructural) >= 0 {
		return nil
	}

	names := s.data.Names()
	sort.Strings(names)
	var matches []string
	for _, name := range names {
		if strings.HasPrefix(name, partial) {
			matches = append(matches, line[:len(line)-len(partial)]+name)
		}
	}
	return matches
}

// NeedsMoreInput reports whether input has more start delimiters than end
// delimiters, so a pattern can span several lines.
func (s *Session) NeedsMoreInput(input string) bool {
	cfg := s.engine.Config()
	depth := 0
	for _, r := range input {
		switch r {
		case cfg.StartTerm():
			depth++
		case cfg.EndTerm():
			if depth > 0 {
				depth--
			}
		}
	}
	return depth > 0
}

// printError prints engine errors with their position and hints
func printError(out io.Writer, err error) {
	var fe *ferrors.FillinError
	if !errors.As(err, &fe) {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(out, "Error %s", fe.Code)
	if fe.Line > 0 {
		fmt.Fprintf(out, ": line %d, column %d\n  %s\n", fe.Line, fe.Column, fe.Message)
	} else {
		io.WriteString(out, "\n  "+fe.Message+"\n")
	}
	for _, hint := range fe.Hints {
		io.WriteString(out, "  hint: "+hint+"\n")
	}
}
