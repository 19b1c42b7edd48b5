// Package locale provides the culture handle used for all numeric, date and
// text formatting performed by the fillin engine.
//
// A Culture wraps a BCP 47 language tag together with the matching
// goodsign/monday locale (for month and weekday names) and the decimal and
// group separators that golang.org/x/text uses for that tag.
package locale

import (
	"fmt"
	"strings"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Culture is an immutable formatting culture. It is safe for concurrent use.
type Culture struct {
	tag     language.Tag
	monday  monday.Locale
	decimal string
	group   string
}

// Invariant is the culture-neutral culture: '.' decimals, ',' grouping, English names.
var Invariant = newCulture(language.Und)

// Parse returns the culture for a BCP 47 tag such as "de-DE" or "en_GB".
// An empty string returns Invariant.
func Parse(tag string) (*Culture, error) {
	if strings.TrimSpace(tag) == "" {
		return Invariant, nil
	}
	t, err := language.Parse(strings.ReplaceAll(tag, "_", "-"))
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", tag, err)
	}
	return newCulture(t), nil
}

// MustParse is like Parse but panics on an invalid tag.
func MustParse(tag string) *Culture {
	c, err := Parse(tag)
	if err != nil {
		panic(err)
	}
	return c
}

func newCulture(tag language.Tag) *Culture {
	c := &Culture{
		tag:    tag,
		monday: mondayLocale(tag.String()),
	}
	c.decimal, c.group = separators(tag)
	return c
}

// separators derives the decimal and group separators by formatting a probe value.
func separators(tag language.Tag) (decimal, group string) {
	probe := message.NewPrinter(tag).Sprintf("%v", number.Decimal(1234567.5))
	runes := []rune(probe)

	decimal = "."
	group = ","
	// The decimal separator sits right before the final '5'.
	if n := len(runes); n >= 2 && runes[n-1] == '5' {
		decimal = string(runes[n-2])
	}
	// Anything between '1' and '2' is the group separator (may be empty).
	if i := strings.IndexRune(probe, '1'); i >= 0 {
		rest := probe[i+1:]
		if j := strings.IndexRune(rest, '2'); j >= 0 {
			group = rest[:j]
		}
	}
	return decimal, group
}

// Tag returns the language tag of the culture.
func (c *Culture) Tag() language.Tag {
	return c.tag
}

// Name returns the BCP 47 name of the culture ("und" for Invariant).
func (c *Culture) Name() string {
	return c.tag.String()
}

// DecimalSeparator returns the separator between integer and fraction digits.
func (c *Culture) DecimalSeparator() string {
	return c.decimal
}

// GroupSeparator returns the digit grouping separator.
func (c *Culture) GroupSeparator() string {
	return c.group
}

// Printer returns a new x/text printer for the culture.
func (c *Culture) Printer() *message.Printer {
	return message.NewPrinter(c.tag)
}

// mondayLocale maps a locale string to a monday.Locale for date formatting.
// Supports common locale codes with fallbacks.
func mondayLocale(locale string) monday.Locale {
	locale = strings.ToLower(strings.ReplaceAll(locale, "-", "_"))

	localeMap := map[string]monday.Locale{
		"en":    monday.LocaleEnUS,
		"en_us": monday.LocaleEnUS,
		"en_gb": monday.LocaleEnGB,
		"de":    monday.LocaleDeDE,
		"de_de": monday.LocaleDeDE,
		"de_at": monday.LocaleDeDE,
		"de_ch": monday.LocaleDeDE,
		"fr":    monday.LocaleFrFR,
		"fr_fr": monday.LocaleFrFR,
		"fr_ca": monday.LocaleFrCA,
		"es":    monday.LocaleEsES,
		"es_es": monday.LocaleEsES,
		"it":    monday.LocaleItIT,
		"pt":    monday.LocalePtPT,
		"pt_pt": monday.LocalePtPT,
		"pt_br": monday.LocalePtBR,
		"nl":    monday.LocaleNlNL,
		"nl_be": monday.LocaleNlBE,
		"ru":    monday.LocaleRuRU,
		"pl":    monday.LocalePlPL,
		"cs":    monday.LocaleCsCZ,
		"da":    monday.LocaleDaDK,
		"fi":    monday.LocaleFiFI,
		"sv":    monday.LocaleSvSE,
		"nb":    monday.LocaleNbNO,
		"nn":    monday.LocaleNnNO,
		"ja":    monday.LocaleJaJP,
		"zh":    monday.LocaleZhCN,
		"zh_cn": monday.LocaleZhCN,
		"zh_tw": monday.LocaleZhTW,
		"ko":    monday.LocaleKoKR,
		"tr":    monday.LocaleTrTR,
		"uk":    monday.LocaleUkUA,
		"el":    monday.LocaleElGR,
		"ro":    monday.LocaleRoRO,
		"hu":    monday.LocaleHuHU,
		"bg":    monday.LocaleBgBG,
		"id":    monday.LocaleIdID,
		"th":    monday.LocaleThTH,
	}

	if loc, ok := localeMap[locale]; ok {
		return loc
	}

	// Try just the language part
	if i := strings.Index(locale, "_"); i > 0 {
		if loc, ok := localeMap[locale[:i]]; ok {
			return loc
		}
	}

	return monday.LocaleEnUS
}
