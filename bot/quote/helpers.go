package quote

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxMessageLength = 500
	MinMessageLength = 2

	minNameLength        = 5
	minPhoneDigits       = 8
	minRegionLength      = 5
	minDescriptionLength = 10
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s.]+$`)

var yesWords = map[string]bool{
	"si": true, "sí": true, "s": true, "yes": true, "y": true, "ok": true,
	"okay": true, "correcto": true, "claro": true, "dale": true, "exacto": true,
	"afirmativo": true, "si es correcto": true, "sí es correcto": true,
	"si, es correcto": true, "sí, es correcto": true, "es correcto": true,
}

// Length counts characters, not bytes.
func Length(text string) int {
	return utf8.RuneCountInString(text)
}

func normalizeAnswer(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.TrimRightFunc(text, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// IsYes reports whether text is an affirmative answer.
func IsYes(text string) bool {
	return yesWords[normalizeAnswer(text)]
}

// CountDigits counts decimal digits, ignoring separators and other symbols.
func CountDigits(text string) int {
	n := 0
	for _, ch := range text {
		if ch >= '0' && ch <= '9' {
			n++
		}
	}
	return n
}

func IsValidName(name string) bool {
	name = strings.TrimSpace(name)
	return Length(name) >= minNameLength && strings.IndexFunc(name, unicode.IsSpace) > 0
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func IsValidPhone(phone string) bool {
	return CountDigits(phone) >= minPhoneDigits
}

func IsValidRegion(region string) bool {
	return Length(strings.TrimSpace(region)) >= minRegionLength
}

func IsValidDescription(description string) bool {
	return Length(strings.TrimSpace(description)) >= minDescriptionLength
}
