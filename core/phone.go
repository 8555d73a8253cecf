package core

import "strings"

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// NormalizePhone strips everything that is not a digit from raw and returns
// the remaining digits. A number is valid when it keeps between 10 and 15
// digits, which covers every E.164 number with a country code.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
