// Package phone parses raw phone numbers harvested from platform profiles
// into normalized records suitable for cross-profile comparison.
package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/your-org/unfold/internal/models"
)

// Parse normalizes a raw phone number into a models.Phone. The raw value is
// treated as an international number; a missing leading "+" is tolerated
// (Telegram exposes numbers without it). Returns an error for numbers that
// fail validation.
func Parse(raw string) (*models.Phone, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty phone number")
	}
	if !strings.HasPrefix(raw, "+") {
		raw = "+" + strings.ReplaceAll(raw, "+", "")
	}

	parsed, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return nil, fmt.Errorf("parse phone %q: %w", raw, err)
	}
	if !phonenumbers.IsPossibleNumber(parsed) || !phonenumbers.IsValidNumber(parsed) {
		return nil, fmt.Errorf("invalid phone number %q", raw)
	}

	p := &models.Phone{
		Number:  phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL),
		Country: phonenumbers.GetRegionCodeForNumber(parsed),
	}

	if carrier, err := phonenumbers.GetCarrierForNumber(parsed, "en"); err == nil {
		p.Carrier = carrier
	}
	if zones, err := phonenumbers.GetTimezonesForNumber(parsed); err == nil {
		p.Timezones = zones
	}

	return p, nil
}
