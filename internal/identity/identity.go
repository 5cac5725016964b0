// Package identity derives the stable identifiers a catalog item carries:
// a store-internal SKU and an EAN-13-shaped scan code for barcode labels.
package identity

import (
	"strconv"
	"strings"
	"time"
)

const (
	skuPrefix = "SKU-"

	// vendorPrefix pins scan codes to a fixed vendor range (GS1 Indonesia).
	vendorPrefix = "899"

	scanCodeLength = 13
	payloadLength  = 12
)

// GenerateSKU produces a unique-enough SKU from the current clock encoded
// in base 36. Callers must still verify uniqueness against the catalog
// before persisting; there is no collision check here.
func GenerateSKU() string {
	return skuPrefix + strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36))
}

// GenerateScanCode derives a 13-digit scan code from a SKU. The derivation
// is pure: the same SKU always yields the same code. The SKU's digit
// characters are kept (rightmost nine when there are more), left-padded
// with zeros, prefixed with the vendor range, and finished with a weighted
// mod-10 check digit. A SKU without any digits falls back to an all-zero
// payload rather than failing, so label printing never errors out.
func GenerateScanCode(sku string) string {
	digits := digitsOf(sku)
	if len(digits) > payloadLength-len(vendorPrefix) {
		digits = digits[len(digits)-(payloadLength-len(vendorPrefix)):]
	}

	var b strings.Builder
	b.WriteString(vendorPrefix)
	for i := len(digits); i < payloadLength-len(vendorPrefix); i++ {
		b.WriteByte('0')
	}
	b.WriteString(digits)

	payload := b.String()
	return payload + strconv.Itoa(checkDigit(payload))
}

// ValidateScanCode recomputes the check digit over the first 12 digits and
// compares it to the 13th. Codes of the wrong length or with non-numeric
// content are rejected.
func ValidateScanCode(code string) bool {
	if len(code) != scanCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return checkDigit(code[:payloadLength]) == int(code[payloadLength]-'0')
}

// checkDigit applies the EAN-13 rule: weights alternate 1 and 3 across the
// 12 payload digits, check = (10 - sum mod 10) mod 10.
func checkDigit(payload string) int {
	sum := 0
	for i := 0; i < len(payload); i++ {
		d := int(payload[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	return (10 - sum%10) % 10
}

func digitsOf(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
