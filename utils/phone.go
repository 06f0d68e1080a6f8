package utils

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// EthiopiaCountryCode is prepended to a canonical mobile number for storage
const EthiopiaCountryCode = "251"

var (
	phoneNoiseRe     = regexp.MustCompile(`[^0-9+]`)
	phoneIntlRe      = regexp.MustCompile(`^\+?251([79][0-9]{8})$`)
	phoneTrunkRe     = regexp.MustCompile(`^0([79][0-9]{8})$`)
	phoneLocalRe     = regexp.MustCompile(`^([79][0-9]{8})$`)
	syntheticPhoneRe = regexp.MustCompile(`^q[0-9a-f]{19}$`)
)

// NormalizePhone reduces an Ethiopian mobile number to its 9-digit canonical form.
// Accepted shapes: 2519XXXXXXXX, +2519XXXXXXXX, 09XXXXXXXX and 9XXXXXXXX (7 in place of 9 as well).
func NormalizePhone(raw string) *string {
	cleaned := phoneNoiseRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return nil
	}

	for _, re := range []*regexp.Regexp{phoneIntlRe, phoneTrunkRe, phoneLocalRe} {
		if m := re.FindStringSubmatch(cleaned); m != nil {
			canonical := m[1]
			return &canonical
		}
	}
	return nil
}

// WithCountryCode prefixes a canonical number with 251
func WithCountryCode(normalized string) *string {
	if !phoneLocalRe.MatchString(normalized) {
		return nil
	}
	full := EthiopiaCountryCode + normalized
	return &full
}

// CanonicalStoragePhone normalizes raw and returns the 251-prefixed form used as the storage key
func CanonicalStoragePhone(raw string) *string {
	n := NormalizePhone(raw)
	if n == nil {
		return nil
	}
	return WithCountryCode(*n)
}

// IsSyntheticPhone reports whether phone is a QR-table session placeholder
func IsSyntheticPhone(phone string) bool {
	return syntheticPhoneRe.MatchString(strings.TrimSpace(phone))
}

// DisplayPhone hides synthetic placeholders from human-facing output
func DisplayPhone(phone string) string {
	if IsSyntheticPhone(phone) {
		return ""
	}
	return strings.TrimSpace(phone)
}

// SMSEligiblePhone returns the phone an SMS may be addressed to, or "" when there is none
func SMSEligiblePhone(phone string) string {
	return DisplayPhone(phone)
}

// NormalizeTelegramID accepts an integer or a purely numeric string and returns the positive id
func NormalizeTelegramID(raw any) *int64 {
	var id int64

	switch v := raw.(type) {
	case nil:
		return nil
	case int:
		id = int64(v)
	case int32:
		id = int64(v)
	case int64:
		id = v
	case uint:
		id = int64(v)
	case uint32:
		id = int64(v)
	case uint64:
		if v > 1<<62 {
			return nil
		}
		id = int64(v)
	case *int64:
		if v == nil {
			return nil
		}
		id = *v
	case json.Number:
		return NormalizeTelegramID(v.String())
	case string:
		s := strings.TrimSpace(v)
		if s == "" || !isAllDigits(s) {
			return nil
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		id = parsed
	case *string:
		if v == nil {
			return nil
		}
		return NormalizeTelegramID(*v)
	default:
		return nil
	}

	if id <= 0 {
		return nil
	}
	return &id
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
