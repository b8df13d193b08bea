package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a name and removes all of its whitespace,
// it is meant for loose comparisons of labels scraped from html.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, NormalizeName(m)) {
			return true
		}
	}
	return false
}

// NormalizeKey turns a table row label like "Katastrální území" into
// a field key like "katastralni_uzemi".
//
// diacritics are removed by decomposing the string (NFD) and dropping
// every code point that isn't ascii.
func NormalizeKey(label string) string {
	decomposed := norm.NFD.String(label)

	ascii := strings.Builder{}
	ascii.Grow(len(decomposed))
	for _, c := range decomposed {
		if c > unicode.MaxASCII {
			continue
		}
		ascii.WriteRune(c)
	}

	key := strings.TrimSpace(ascii.String())
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, " ", "_")
}
