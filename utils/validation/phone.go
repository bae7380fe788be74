package validation

import "strings"

// CountryCodes recognized when tolerating legacy stored phone values.
var CountryCodes = []string{"91", "1", "44", "61", "971"}

// StripPhone removes '+' and whitespace from a phone string.
func StripPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	return strings.TrimPrefix(phone, "+")
}

// NormalizePhone canonicalizes a phone string for storage. All writes go
// through this, so lookups on new rows never need prefix guessing. Bare
// 10-digit numbers are assumed Indian mobiles.
func NormalizePhone(phone string) string {
	digits := StripPhone(phone)
	digits = strings.TrimPrefix(digits, "0")
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		return "+91" + digits
	}
	return "+" + digits
}

// PhoneCandidates returns lookup values in priority order: the exact input,
// the stripped value with a recognized country-code prefix removed, then
// the stripped value itself. This tolerates rows written before phones
// were normalized; first match wins.
func PhoneCandidates(phone string) []string {
	stripped := StripPhone(phone)

	candidates := []string{phone}
	for _, code := range CountryCodes {
		if strings.HasPrefix(stripped, code) && len(stripped) > len(code) {
			candidates = append(candidates, strings.TrimPrefix(stripped, code))
			break
		}
	}
	candidates = append(candidates, stripped)

	if normalized := NormalizePhone(phone); normalized != phone {
		candidates = append(candidates, normalized)
	}

	seen := make(map[string]bool, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		unique = append(unique, c)
	}
	return unique
}

// ValidPhone reports whether the stripped value looks like a dialable
// number (7-15 digits).
func ValidPhone(phone string) bool {
	digits := StripPhone(phone)
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
