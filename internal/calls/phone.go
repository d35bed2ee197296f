package calls

import (
	"strings"

	"voicebot-platform/internal/apperr"
)

// NormalizePhone accepts loose E.164 input ("+1 (555) 123-4567") and returns
// the canonical "+<digits>" form.
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", apperr.Validation("phone number is required")
	}
	s = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(s)
	s = strings.TrimPrefix(s, "+")

	if len(s) < 8 || len(s) > 15 {
		return "", apperr.Validation("phone number must have 8 to 15 digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", apperr.Validation("phone number may only contain digits")
		}
	}
	if s[0] == '0' {
		return "", apperr.Validation("phone number must start with a country code")
	}
	return "+" + s, nil
}
