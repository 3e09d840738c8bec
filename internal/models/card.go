package models

import (
	"regexp"
	"strings"
)

var (
	visaRe   = regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`)
	masterRe = regexp.MustCompile(`^5[1-5][0-9]{14}$`)
	amexRe   = regexp.MustCompile(`^3[47][0-9]{13}$`)
	expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	cvvRe    = regexp.MustCompile(`^[0-9]{3,4}$`)
)

// NormalizeCardNumber strips the spaces and dashes people type.
func NormalizeCardNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}

// DetectProvider runs the Luhn check and matches the brand prefix.
func DetectProvider(number string) (CardProvider, bool) {
	n := NormalizeCardNumber(number)
	if !passesLuhn(n) {
		return "", false
	}
	switch {
	case visaRe.MatchString(n):
		return ProviderVisa, true
	case masterRe.MatchString(n):
		return ProviderMastercard, true
	case amexRe.MatchString(n):
		return ProviderAmex, true
	}
	return "", false
}

func ValidExpiry(expiry string) bool { return expiryRe.MatchString(expiry) }

func ValidCVV(cvv string) bool { return cvvRe.MatchString(cvv) }

func passesLuhn(number string) bool {
	if number == "" {
		return false
	}
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}
