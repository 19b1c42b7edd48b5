// Package errors provides structured error types for the fillin engine.
//
// This package defines FillinError, a single error type that represents
// configuration, term parsing and evaluation failures with enough metadata
// for display, JSON transport and programmatic handling.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassConfig ErrorClass = "config" // Invalid engine configuration
	ClassParse  ErrorClass = "parse"  // Malformed pattern or term
	ClassEval   ErrorClass = "eval"   // Term could not be resolved or rendered
)

// Error codes. Each one maps to an entry in ErrorCatalog.
const (
	CodeDuplicateDelimiter      = "CONFIG-0001"
	CodeNestedDelimiterInKey    = "PARSE-0001"
	CodeMalformedOffset         = "PARSE-0002"
	CodeMissingSign             = "PARSE-0003"
	CodeInvalidMagnitude        = "PARSE-0004"
	CodeUnmatchedCloseDelimiter = "PARSE-0005"
	CodeEmptyKey                = "PARSE-0006"
	CodeKeyNotFound             = "EVAL-0001"
	CodeUnsupportedType         = "EVAL-0002"
	CodeFormatFailed            = "EVAL-0003"
	CodeOffsetOutOfRange        = "EVAL-0004"
)

// Sentinels for errors.Is. A FillinError matches a sentinel when the codes are equal.
var (
	ErrDuplicateDelimiter      = &FillinError{Class: ClassConfig, Code: CodeDuplicateDelimiter}
	ErrNestedDelimiterInKey    = &FillinError{Class: ClassParse, Code: CodeNestedDelimiterInKey}
	ErrMalformedOffset         = &FillinError{Class: ClassParse, Code: CodeMalformedOffset}
	ErrMissingSign             = &FillinError{Class: ClassParse, Code: CodeMissingSign}
	ErrInvalidMagnitude        = &FillinError{Class: ClassParse, Code: CodeInvalidMagnitude}
	ErrUnmatchedCloseDelimiter = &FillinError{Class: ClassParse, Code: CodeUnmatchedCloseDelimiter}
	ErrEmptyKey                = &FillinError{Class: ClassParse, Code: CodeEmptyKey}
	ErrKeyNotFound             = &FillinError{Class: ClassEval, Code: CodeKeyNotFound}
	ErrUnsupportedType         = &FillinError{Class: ClassEval, Code: CodeUnsupportedType}
	ErrFormatFailed            = &FillinError{Class: ClassEval, Code: CodeFormatFailed}
	ErrOffsetOutOfRange        = &FillinError{Class: ClassEval, Code: CodeOffsetOutOfRange}
)

// FillinError represents any error from configuration, parsing or evaluation.
type FillinError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "EVAL-0001")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 1-based column (0 if unknown)
	Data    map[string]any `json:"data,omitempty"`  // Template variables
	cause   error
}

// Error implements the error interface.
func (e *FillinError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *FillinError) String() string {
	var sb strings.Builder

	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// Is reports whether target is a FillinError with the same code.
func (e *FillinError) Is(target error) bool {
	t, ok := target.(*FillinError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Unwrap returns the underlying formatter or parser error, if any.
func (e *FillinError) Unwrap() error {
	return e.cause
}

// ToJSON returns the error as JSON bytes.
func (e *FillinError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithPosition returns a copy of the error with line and column set.
func (e *FillinError) WithPosition(line, column int) *FillinError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// WithCause returns a copy of the error wrapping cause.
func (e *FillinError) WithCause(cause error) *FillinError {
	copy := *e
	copy.cause = cause
	return &copy
}

// IsConfigError returns true if this is a configuration error.
func (e *FillinError) IsConfigError() bool {
	return e.Class == ClassConfig
}

// IsParseError returns true if this is a parse error.
func (e *FillinError) IsParseError() bool {
	return e.Class == ClassParse
}

// IsEvalError returns true if this is an evaluation error.
func (e *FillinError) IsEvalError() bool {
	return e.Class == ClassEval
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	CodeDuplicateDelimiter: {
		Class:    ClassConfig,
		Template: "delimiter {{.First}} and delimiter {{.Second}} are both '{{.Char}}'",
		Hints:    []string{"every delimiter character must be distinct"},
	},
	CodeNestedDelimiterInKey: {
		Class:    ClassParse,
		Template: "term '{{.Raw}}' contains a nested delimiter '{{.Char}}'",
	},
	CodeMalformedOffset: {
		Class:    ClassParse,
		Template: "malformed offset in term '{{.Raw}}'",
		Hints:    []string{"an offset looks like {{.Open}}+5{{.Close}} and must end the term"},
	},
	CodeMissingSign: {
		Class:    ClassParse,
		Template: "offset '{{.Raw}}' has no sign",
		Hints:    []string{"start the offset with '{{.Positive}}' or '{{.Negative}}'"},
	},
	CodeInvalidMagnitude: {
		Class:    ClassParse,
		Template: "offset magnitude '{{.Magnitude}}' is not a positive number",
	},
	CodeUnmatchedCloseDelimiter: {
		Class:    ClassParse,
		Template: "'{{.Char}}' has no matching '{{.Open}}'",
	},
	CodeEmptyKey: {
		Class:    ClassParse,
		Template: "term '{{.Raw}}' has an empty key",
	},
	CodeKeyNotFound: {
		Class:    ClassEval,
		Template: "key not found: {{.Key}}",
	},
	CodeUnsupportedType: {
		Class:    ClassEval,
		Template: "key {{.Key}} has unsupported type {{.Kind}}",
	},
	CodeFormatFailed: {
		Class:    ClassEval,
		Template: "cannot format {{.Kind}} value of key {{.Key}} with '{{.Format}}'",
	},
	CodeOffsetOutOfRange: {
		Class:    ClassEval,
		Template: "offset {{.Offset}} is out of range for {{.Kind}} value of key {{.Key}}",
	},
}

// New creates a FillinError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *FillinError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &FillinError{
			Class:   ClassEval,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &FillinError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// NewKeyNotFound creates a key-not-found error, suggesting the closest known key.
func NewKeyNotFound(key string, available []string) *FillinError {
	err := New(CodeKeyNotFound, map[string]any{"Key": key})

	if suggestion := FindClosestMatch(key, available); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}

	return err
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// threshold returns the largest edit distance worth suggesting for input.
// Short words (1-3): 1 edit, medium words (4-6): 2 edits, longer: 3 edits.
func threshold(input string) int {
	n := len([]rune(input))
	switch {
	case n >= 7:
		return 3
	case n >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise empty string.
// Keys are case-sensitive, so a candidate differing only in case is a useful suggestion.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range candidates {
		if candidate == input {
			return ""
		}
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	if bestDistance < 0 || bestDistance > threshold(input) {
		return ""
	}

	return bestMatch
}

// FindTopMatches returns up to n candidates within the suggestion threshold, closest first.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	type fuzzyMatch struct {
		value    string
		distance int
	}

	inputLower := strings.ToLower(input)
	var matches []fuzzyMatch
	for _, candidate := range candidates {
		if candidate == input {
			continue
		}
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if dist <= threshold(input) {
			matches = append(matches, fuzzyMatch{value: candidate, distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	var result []string
	for i := 0; i < len(matches) && i < n; i++ {
		result = append(result, matches[i].value)
	}
	return result
}
