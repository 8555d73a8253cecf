package core

import "strings"

// FormatPairingCode splits a raw pairing code into groups of four digits
// separated by hyphens, e.g. "12345678" becomes "1234-5678". The grouping is
// purely presentational; the user enters the digits without hyphens.
func FormatPairingCode(code string) string {
	if len(code) <= 4 {
		return code
	}
	var groups []string
	for i := 0; i < len(code); i += 4 {
		end := i + 4
		if end > len(code) {
			end = len(code)
		}
		groups = append(groups, code[i:end])
	}
	return strings.Join(groups, "-")
}
