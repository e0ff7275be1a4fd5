package validation

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Validate is a shared validator instance. The built-in "timezone" rule is
// what gates oracle-resolved identifiers against the IANA database.
var Validate = validator.New()

// IsTimezone reports whether name is a canonical IANA timezone identifier.
func IsTimezone(name string) bool {
	return Validate.Var(name, "timezone") == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing
// control characters.
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
