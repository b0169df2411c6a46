package ldapmap

import (
	"errors"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// EscapeDNValue escapes special characters in a DN attribute value
// according to RFC 4514:
//   - , + " \ < > ; must always be escaped
//   - leading # must be escaped
//   - leading and trailing spaces must be escaped
//   - NUL must be escaped as \00
func EscapeDNValue(value string) string {
	if value == "" {
		return value
	}

	var result strings.Builder
	result.Grow(len(value) + 8)

	for i, r := range value {
		switch r {
		case ',', '+', '"', '\\', '<', '>', ';':
			result.WriteRune('\\')
			result.WriteRune(r)
		case '#':
			if i == 0 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case ' ':
			if i == 0 || i == len(value)-1 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case 0:
			result.WriteString("\\00")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// FormatRDN builds a single-valued RDN from an attribute name and a
// raw value, escaping the value per RFC 4514.
func FormatRDN(attribute, value string) string {
	return attribute + "=" + EscapeDNValue(value)
}

// ValidateDN checks that dn parses as a non-empty distinguished name.
func ValidateDN(dn string) error {
	if dn == "" {
		return &InvalidDNError{DN: dn, Cause: errors.New("empty dn")}
	}
	if _, err := ldap.ParseDN(dn); err != nil {
		return &InvalidDNError{DN: dn, Cause: err}
	}
	return nil
}
