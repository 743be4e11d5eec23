package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatter_FormatMs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		locale string
		value  float64
		want   string
	}{
		{name: "milliseconds", locale: "en", value: 500, want: "500 ms"},
		{name: "zero", locale: "en", value: 0, want: "0 ms"},
		{name: "seconds", locale: "en", value: 1500, want: "1.5 s"},
		{name: "minutes", locale: "en", value: 90000, want: "1.5 min"},
		{name: "german decimal comma", locale: "de", value: 1500, want: "1,5 s"},
		{name: "invalid locale falls back", locale: "not a locale!", value: 2000, want: "2 s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewFormatter(tt.locale).FormatMs(tt.value))
		})
	}
}

func TestFormatter_Number(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1,234,567", NewFormatter("en").Number(1234567))
	assert.Equal(t, "1.234.567", NewFormatter("de").Number(1234567))
}

func TestFormatter_Locale(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "de", NewFormatter("de").Locale())
	assert.Equal(t, DefaultLocale, NewFormatter("").Locale())
}
