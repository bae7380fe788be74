package otp

import (
	"strings"

	"github.com/shiksha-labs/shiksha-api/utils/validation"
)

// DefaultTestCode is accepted for any allow-listed number without an override.
const DefaultTestCode = "123456"

// Built-in allow-list. These numbers never reach the real SMS provider and
// bypass the resend cooldown.
var defaultTestNumbers = []string{
	"9999999999",
	"8888888888",
	"7777777777",
}

// Per-number code overrides. An override is authoritative over DefaultTestCode.
var defaultOverrides = map[string]string{
	"9999900000": "000000",
}

// TestNumbers matches phones against the development allow-list.
type TestNumbers struct {
	numbers   []string
	overrides map[string]string
}

// NewTestNumbers builds the allow-list from the built-ins plus extra
// comma-separated entries, each "number" or "number:code".
func NewTestNumbers(extra string) *TestNumbers {
	t := &TestNumbers{
		numbers:   append([]string{}, defaultTestNumbers...),
		overrides: make(map[string]string, len(defaultOverrides)),
	}
	for number, code := range defaultOverrides {
		t.overrides[number] = code
	}

	for _, entry := range strings.Split(extra, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if number, code, found := strings.Cut(entry, ":"); found {
			number = validation.StripPhone(number)
			t.numbers = append(t.numbers, number)
			t.overrides[number] = code
		} else {
			t.numbers = append(t.numbers, validation.StripPhone(entry))
		}
	}

	return t
}

// Match reports whether phone is allow-listed, and the expected code if so.
// The input is compared after stripping '+' and spaces, by exact value or
// by suffix so country-code prefixes do not defeat the match.
func (t *TestNumbers) Match(phone string) (string, bool) {
	stripped := validation.StripPhone(phone)
	if stripped == "" {
		return "", false
	}

	for _, number := range t.numbers {
		if stripped == number || strings.HasSuffix(stripped, number) {
			if code, ok := t.overrides[number]; ok {
				return code, true
			}
			return DefaultTestCode, true
		}
	}

	return "", false
}
