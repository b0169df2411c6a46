package ldapmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeDNValue(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "simple value no escaping needed",
			input:    "alice",
			expected: "alice",
		},
		{
			name:     "space in middle",
			input:    "Alice Smith",
			expected: "Alice Smith",
		},
		{
			name:     "comma",
			input:    "Smith, Alice",
			expected: "Smith\\, Alice",
		},
		{
			name:     "plus sign",
			input:    "cn=a+sn=b",
			expected: "cn=a\\+sn=b",
		},
		{
			name:     "double quote",
			input:    `Alice "Al" Smith`,
			expected: `Alice \"Al\" Smith`,
		},
		{
			name:     "backslash",
			input:    `a\b`,
			expected: `a\\b`,
		},
		{
			name:     "angle brackets and semicolon",
			input:    "a<b>c;d",
			expected: "a\\<b\\>c\\;d",
		},
		{
			name:     "leading space",
			input:    " alice",
			expected: "\\ alice",
		},
		{
			name:     "trailing space",
			input:    "alice ",
			expected: "alice\\ ",
		},
		{
			name:     "leading hash",
			input:    "#1",
			expected: "\\#1",
		},
		{
			name:     "hash in middle",
			input:    "a#1",
			expected: "a#1",
		},
		{
			name:     "nul byte",
			input:    "a\x00b",
			expected: "a\\00b",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, EscapeDNValue(tc.input))
		})
	}
}

func TestFormatRDN(t *testing.T) {
	assert.Equal(t, "cn=alice", FormatRDN("cn", "alice"))
	assert.Equal(t, `cn=Smith\, Alice`, FormatRDN("cn", "Smith, Alice"))
}

func TestValidateDN(t *testing.T) {
	assert.NoError(t, ValidateDN("cn=alice,ou=people,dc=example,dc=com"))
	assert.NoError(t, ValidateDN("dc=com"))
	assert.Error(t, ValidateDN(""))
	assert.Error(t, ValidateDN("no equals sign"))
}
