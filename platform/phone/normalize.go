// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// NormalizeE164 formats a phone number to E.164 using the account's country
// code as the parsing region. Presence-feed numbers are not reliably
// normalized upstream, so a stable canonical form is required before any
// equality-based matching (deduplication, contact lookup) can work.
//
// An empty input yields an empty output. If parsing or validation fails, the
// trimmed input is returned unchanged. This function never returns an error:
// an unnormalizable number is still a representable call endpoint.
func NormalizeE164(input, countryCode string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	region := strings.ToUpper(strings.TrimSpace(countryCode))
	if region == "" {
		region = defaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
