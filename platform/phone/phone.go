// Package phone normalizes contact phone numbers for storage.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Region assumed for numbers entered without a country prefix.
const defaultRegion = "US"

// NormalizeE164 returns the E.164 form of a phone number. Input that
// cannot be parsed as a valid number is returned trimmed but otherwise
// untouched, so a sloppy entry never blocks a save.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	parsed, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}
