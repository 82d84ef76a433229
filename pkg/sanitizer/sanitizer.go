package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var reLeadingZeros = regexp.MustCompile(`^0+(\d)`)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func upper(s string) string {
	return strings.ToUpper(s)
}

func dropLeadingPlus(s string) string {
	return strings.TrimPrefix(s, "+")
}

func dropLeadingZeros(s string) string {
	return reLeadingZeros.ReplaceAllString(s, "$1")
}

// TrimAndNormalize trims s and collapses every whitespace run to one space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// SanitizeStatus maps any spelling of a status filter to its canonical form.
func SanitizeStatus(input string) string {
	p := Pipeline{
		TrimAndNormalize,
		upper,
	}
	return p.Apply(input)
}

// SanitizeID strips surrounding whitespace, a leading plus sign and leading
// zeros from a numeric path id. Non-numeric input is returned trimmed.
func SanitizeID(input string) string {
	p := Pipeline{
		trim,
		dropLeadingPlus,
		dropLeadingZeros,
	}
	return p.Apply(input)
}
