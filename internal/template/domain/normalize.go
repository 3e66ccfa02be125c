package domain

import "strings"

// NormalizeCountryCode uppercases and truncates to ISO-2.
func NormalizeCountryCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) > 2 {
		c = c[:2]
	}
	return c
}

// NormalizeCarrier keeps simple uppercase tokens only.
func NormalizeCarrier(s string) string {
	return normalizeToken(s)
}

func NormalizeServiceCode(s string) string {
	return normalizeToken(s)
}

func NormalizeZone(s string) string {
	return normalizeToken(s)
}

func NormalizeCurrency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeToken(s string) string {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return ""
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			out = append(out, r)
		}
	}
	return string(out)
}

// ValidCountryCode reports whether code is a 2-letter uppercase token.
func ValidCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// ValidCurrency reports whether cur is a 3-letter uppercase token.
func ValidCurrency(cur string) bool {
	if len(cur) != 3 {
		return false
	}
	for _, r := range cur {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
