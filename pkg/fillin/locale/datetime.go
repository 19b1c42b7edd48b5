package locale

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/cases"
)

// Default layouts used when a temporal term carries no format.
const (
	DateLayout           = "2006-01-02"
	DateTimeLayout       = "2006-01-02 15:04:05"
	DateTimeOffsetLayout = "2006-01-02 15:04:05 -07:00"
)

// FormatTime renders t with a named style ("short", "medium", "long", "full"),
// "iso", "unix", or a Go reference layout. Month and weekday names are localized.
// A layout that contains no reference element is rejected.
func (c *Culture) FormatTime(t time.Time, format string) (string, error) {
	switch format {
	case "short", "medium", "long", "full":
		return monday.Format(t, dateLayoutForStyle(format, c.monday), c.monday), nil
	case "iso":
		return t.Format(time.RFC3339Nano), nil
	case "unix":
		return strconv.FormatInt(t.Unix(), 10), nil
	}

	if !hasLayoutElement(format) {
		return "", fmt.Errorf("%w %q for date", ErrUnknownFormat, format)
	}
	return monday.Format(t, format, c.monday), nil
}

// layoutProbes differ from the reference time in every layout element.
var layoutProbes = []time.Time{
	time.Date(1999, 11, 30, 22, 58, 59, 123456789, time.UTC),
	time.Date(1987, 3, 8, 8, 9, 7, 0, time.FixedZone("CET", 3600)),
}

func hasLayoutElement(layout string) bool {
	for _, probe := range layoutProbes {
		if probe.Format(layout) != layout {
			return true
		}
	}
	return false
}

// dateLayoutForStyle returns the Go time layout for a given style and locale.
// Styles: "short" (numeric), "medium" (abbreviated), "long" (full month), "full" (with weekday)
func dateLayoutForStyle(style string, locale monday.Locale) string {
	switch style {
	case "short":
		switch locale {
		case monday.LocaleEnUS:
			return "1/2/06"
		case monday.LocaleEnGB, monday.LocaleFrFR, monday.LocaleFrCA:
			return "02/01/06"
		case monday.LocaleDeDE:
			return "02.01.06"
		case monday.LocaleJaJP:
			return "06/01/02"
		case monday.LocaleZhCN, monday.LocaleZhTW:
			return "06/1/2"
		case monday.LocaleKoKR:
			return "06. 1. 2."
		default:
			return "02/01/06"
		}
	case "medium":
		switch locale {
		case monday.LocaleEnUS:
			return "Jan 2, 2006"
		case monday.LocaleDeDE:
			return "2. Jan. 2006"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "2006年1月2日"
		case monday.LocaleKoKR:
			return "2006년 1월 2일"
		default:
			return "2 Jan 2006"
		}
	case "long":
		switch locale {
		case monday.LocaleEnUS:
			return "January 2, 2006"
		case monday.LocaleDeDE:
			return "2. January 2006"
		case monday.LocaleEsES:
			return "2 de January de 2006"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "2006年1月2日"
		case monday.LocaleKoKR:
			return "2006년 1월 2일"
		default:
			return "2 January 2006"
		}
	default:
		switch locale {
		case monday.LocaleEnUS:
			return "Monday, January 2, 2006"
		case monday.LocaleDeDE:
			return "Monday, 2. January 2006"
		case monday.LocaleFrFR, monday.LocaleFrCA:
			return "Monday 2 January 2006"
		case monday.LocaleEsES:
			return "Monday, 2 de January de 2006"
		case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
			return "2006年1月2日 Monday"
		case monday.LocaleKoKR:
			return "2006년 1월 2일 Monday"
		default:
			return "Monday, 2 January 2006"
		}
	}
}

// FormatDuration renders d. The default ("" or "c") is [-][d.]hh:mm:ss[.fffffff];
// "go" uses time.Duration.String; "d", "h", "m", "s" and "ms" give the total
// number of that unit.
func (c *Culture) FormatDuration(d time.Duration, format string) (string, error) {
	switch format {
	case "", "c":
		return constantDuration(d), nil
	case "go":
		return d.String(), nil
	case "d":
		return c.shortest(d.Hours() / 24), nil
	case "h":
		return c.shortest(d.Hours()), nil
	case "m":
		return c.shortest(d.Minutes()), nil
	case "s":
		return c.shortest(d.Seconds()), nil
	case "ms":
		return c.shortest(float64(d) / float64(time.Millisecond)), nil
	}
	return "", fmt.Errorf("%w %q for duration", ErrUnknownFormat, format)
}

// constantDuration renders the invariant [-][d.]hh:mm:ss[.fffffff] form.
func constantDuration(d time.Duration) string {
	var sb strings.Builder
	if d < 0 {
		sb.WriteByte('-')
	}
	abs := uint64(d)
	if d < 0 {
		abs = uint64(-(d + 1)) + 1
	}

	ticks := abs / 100 // 100ns resolution
	days := abs / uint64(24*time.Hour)
	hours := abs / uint64(time.Hour) % 24
	minutes := abs / uint64(time.Minute) % 60
	seconds := abs / uint64(time.Second) % 60
	fraction := ticks % 10_000_000

	if days > 0 {
		fmt.Fprintf(&sb, "%d.", days)
	}
	fmt.Fprintf(&sb, "%02d:%02d:%02d", hours, minutes, seconds)
	if fraction > 0 {
		fmt.Fprintf(&sb, ".%07d", fraction)
	}
	return sb.String()
}

// FormatString renders text with "upper", "lower", "title", "trim" or a printf verb string.
func (c *Culture) FormatString(s string, format string) (string, error) {
	switch format {
	case "":
		return s, nil
	case "upper":
		return cases.Upper(c.tag).String(s), nil
	case "lower":
		return cases.Lower(c.tag).String(s), nil
	case "title":
		return cases.Title(c.tag).String(s), nil
	case "trim":
		return strings.TrimSpace(s), nil
	}
	if strings.Contains(format, "%") {
		return printf(format, s)
	}
	return "", fmt.Errorf("%w %q for text", ErrUnknownFormat, format)
}

// FormatBool renders a boolean as "true"/"false", or with "upper", "lower",
// "yn" (yes/no), "int" (1/0) or a printf verb string.
func (c *Culture) FormatBool(b bool, format string) (string, error) {
	switch format {
	case "", "lower":
		return strconv.FormatBool(b), nil
	case "upper":
		return strings.ToUpper(strconv.FormatBool(b)), nil
	case "yn":
		if b {
			return "yes", nil
		}
		return "no", nil
	case "int":
		if b {
			return "1", nil
		}
		return "0", nil
	}
	if strings.Contains(format, "%") {
		return printf(format, b)
	}
	return "", fmt.Errorf("%w %q for boolean", ErrUnknownFormat, format)
}

// SecondsDuration converts a (possibly fractional) count of seconds to a Duration,
// rounding to the nearest nanosecond. It reports false when the result does not
// fit in a Duration.
func SecondsDuration(seconds float64) (time.Duration, bool) {
	ns := math.Round(seconds * float64(time.Second))
	if math.IsNaN(ns) || ns >= 1<<63 || ns < -(1<<63) {
		return 0, false
	}
	return time.Duration(ns), true
}
