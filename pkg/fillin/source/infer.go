package source

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"github.com/sambeau/fillin/pkg/fillin/value"
)

var (
	fixedPoint    = regexp.MustCompile(`^[+-]?\d+\.\d+$`)
	hasDigit      = regexp.MustCompile(`\d`)
	timeIndicator = regexp.MustCompile(`\d{1,2}:\d{2}|(?i)\b(am|pm)\b`)
	zoneSuffix    = regexp.MustCompile(`(?i)(z|[+-]\d{2}:?\d{2}|\b[a-z]{3,4})$`)
)

// Infer types a text value. In order it tries: boolean, integer, fixed-point
// decimal, float, GUID, absolute URL, duration and date; anything else stays
// a string. The empty string stays a string and "null" is null.
func Infer(s string) value.Value {
	t := strings.TrimSpace(s)
	switch strings.ToLower(t) {
	case "":
		return value.String(s)
	case "null":
		return value.Null
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	}

	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return value.Int(i)
	}
	if u, err := strconv.ParseUint(t, 10, 64); err == nil {
		return value.Uint(u)
	}
	if fixedPoint.MatchString(t) {
		if d, err := value.ParseDecimal(t); err == nil {
			return value.DecimalValue(d)
		}
	}
	if hasDigit.MatchString(t) {
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return value.Float(f)
		}
	}

	if len(t) == 36 {
		if g, err := uuid.Parse(t); err == nil {
			return value.GUID(g)
		}
	}

	if strings.Contains(t, "://") {
		if u, err := url.Parse(t); err == nil && u.Scheme != "" && u.Host != "" {
			return value.URI(u)
		}
	}

	if d, err := time.ParseDuration(t); err == nil {
		return value.Duration(d)
	}

	if v, ok := inferTime(t); ok {
		return v
	}

	return value.String(s)
}

// inferTime parses dates with dateparse, preferring month-first for
// ambiguous numeric dates. Values with a zone become DateTimeOffset, values
// with a clock DateTime, and the rest Date.
func inferTime(s string) (value.Value, bool) {
	if !hasDigit.MatchString(s) {
		return value.Null, false
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(true))
	if err != nil {
		return value.Null, false
	}

	switch {
	case timeIndicator.MatchString(s) && zoneSuffix.MatchString(s):
		return value.DateTimeOffset(t), true
	case timeIndicator.MatchString(s):
		return value.DateTime(t), true
	}
	return value.Date(t), true
}
