// Package render turns schedules and explanations into terminal text.
package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when no locale, or an unparsable one, is given.
const DefaultLocale = "en"

// Unit thresholds for FormatMs.
const (
	msPerSecond = 1000.0
	msPerMinute = 60 * msPerSecond
)

// Formatter formats numbers for one locale.
type Formatter struct {
	printer *message.Printer
	tag     language.Tag
}

// NewFormatter creates a formatter for the given BCP 47 locale.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	return &Formatter{
		printer: message.NewPrinter(tag),
		tag:     tag,
	}
}

// Locale returns the locale in use.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Number formats v with locale grouping and at most two fraction digits.
func (f *Formatter) Number(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// FormatMs formats a millisecond value in ms, s or min, whichever keeps the
// number readable.
func (f *Formatter) FormatMs(v float64) string {
	switch {
	case v >= msPerMinute:
		return f.Number(v/msPerMinute) + " min"
	case v >= msPerSecond:
		return f.Number(v/msPerSecond) + " s"
	default:
		return f.Number(v) + " ms"
	}
}
