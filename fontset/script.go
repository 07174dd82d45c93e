// Package fontset classifies text by writing system and picks a font face
// able to draw it from an explicit table of registered fonts.
package fontset

import "golang.org/x/text/unicode/norm"

// Script is the writing system a text run is classified as.
type Script int

const (
	Latin Script = iota
	Korean
	Japanese
	// Unicode is non-ASCII text outside the Korean and Japanese blocks.
	Unicode
)

func (s Script) String() string {
	switch s {
	case Korean:
		return "korean"
	case Japanese:
		return "japanese"
	case Unicode:
		return "unicode"
	}
	return "latin"
}

// Normalize returns the NFC form of s, composing decomposed Hangul jamo into
// syllables.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

func isHangulSyllable(r rune) bool { return r >= 0xAC00 && r <= 0xD7A3 }

func isJapanese(r rune) bool {
	return (r >= 0x3040 && r <= 0x309F) || // Hiragana
		(r >= 0x30A0 && r <= 0x30FF) || // Katakana
		(r >= 0x4E00 && r <= 0x9FAF) // CJK unified ideographs
}

// Classify returns the script of text. Korean wins over Japanese, which wins
// over generic Unicode; pure ASCII is Latin.
func Classify(text string) Script {
	var japanese, unicode bool
	for _, r := range text {
		switch {
		case isHangulSyllable(r):
			return Korean
		case isJapanese(r):
			japanese = true
		case r > 0x7F:
			unicode = true
		}
	}
	if japanese {
		return Japanese
	}
	if unicode {
		return Unicode
	}
	return Latin
}
