package leads

import (
	"regexp"
	"strings"
)

var plzDigits = regexp.MustCompile(`\D`)

// Address is an immutable structured postal address. Construct via
// NewAddress; there are no exported setters.
type Address struct {
	street              string
	houseNumber         string
	postalCode          string
	postalCodeCanonical bool
	city                string
	region              string
}

// NewAddress builds an Address. A postal code that does not reduce to
// exactly five digits is kept verbatim with PostalCodeCanonical()
// false, matching the directory's tolerance for odd PLZ formatting.
func NewAddress(street, houseNumber, postalCode, city, region string) Address {
	canonical := false
	if postalCode != "" {
		cleaned := plzDigits.ReplaceAllString(postalCode, "")
		if len(cleaned) == 5 {
			postalCode = cleaned
			canonical = true
		}
	}
	return Address{
		street:              strings.TrimSpace(street),
		houseNumber:         strings.TrimSpace(houseNumber),
		postalCode:          postalCode,
		postalCodeCanonical: canonical,
		city:                strings.TrimSpace(city),
		region:              strings.TrimSpace(region),
	}
}

func (a Address) Street() string      { return a.street }
func (a Address) HouseNumber() string { return a.houseNumber }
func (a Address) PostalCode() string  { return a.postalCode }
func (a Address) City() string        { return a.city }
func (a Address) Region() string      { return a.region }

// PostalCodeCanonical reports whether PostalCode() is a validated
// five-digit code (as opposed to raw, unparsed text).
func (a Address) PostalCodeCanonical() bool { return a.postalCodeCanonical }

// HasFull reports whether the address carries both a street and a
// postal code, the "full address" condition used by the quality score
// rubric and the required-address filter.
func (a Address) HasFull() bool {
	return a.street != "" && a.postalCode != ""
}

// HasPartial reports whether the address carries a street or a postal
// code, but not both.
func (a Address) HasPartial() bool {
	return !a.HasFull() && (a.street != "" || a.postalCode != "")
}

// FormatFull renders the address as "Street Number, PLZ City".
func (a Address) FormatFull() string {
	var parts []string
	if a.street != "" {
		street := a.street
		if a.houseNumber != "" {
			street += " " + a.houseNumber
		}
		parts = append(parts, street)
	}
	switch {
	case a.postalCode != "" && a.city != "":
		parts = append(parts, a.postalCode+" "+a.city)
	case a.city != "":
		parts = append(parts, a.city)
	}
	return strings.Join(parts, ", ")
}
