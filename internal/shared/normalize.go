package shared

import (
	"strings"
	"unicode"
)

// accentTable maps accented Latin characters to their unaccented base letter.
// Inputs are lower-cased before lookup, so only lowercase forms are listed.
var accentTable = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a', 'ā': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e', 'ė': 'e', 'ę': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i', 'į': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o', 'ø': 'o', 'ō': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u',
	'ñ': 'n', 'ń': 'n',
	'ç': 'c', 'ć': 'c', 'č': 'c',
	'ß': 's',
	'ý': 'y', 'ÿ': 'y',
	'ž': 'z', 'ź': 'z', 'ż': 'z',
	'š': 's', 'ś': 's',
	'ł': 'l',
	'đ': 'd',
}

// Normalize canonicalizes free-text metadata into a comparable key fragment.
//
// Lower-cases, folds accented Latin letters to their base letter, strips
// everything that is not a word character or whitespace, and collapses
// whitespace runs. Deterministic and total; empty input yields "".
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		if base, ok := accentTable[r]; ok {
			r = base
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// TrackKey joins normalized parts into a composite lookup key.
func TrackKey(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = Normalize(p)
	}
	return strings.Join(normalized, "|")
}

// minTitleKeyLen guards against generic or short titles polluting the index
// with a bare-title key ("live", "home", "intro").
const minTitleKeyLen = 3

// TrackKeys builds the composite lookup keys for a track in decreasing
// strictness order. The exact same precedence is used when indexing the remote
// library and when querying with a local track, so lookups stay symmetric.
func TrackKeys(artist, title, album string) []string {
	keys := make([]string, 0, 4)

	if album != "" {
		keys = append(keys, TrackKey(artist, title, album))
	}
	keys = append(keys, TrackKey(artist, title), TrackKey(title, artist))

	if len(Normalize(title)) > minTitleKeyLen {
		keys = append(keys, Normalize(title))
	}

	return keys
}
