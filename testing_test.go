package ldapmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestRegistry returns a registry populated with a small cut of the
// standard person schema plus classes that exercise conflicts.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry()

	require.NoError(t, reg.Register(ObjectClassSpec{
		Name: "person",
		Attributes: []AttributeSpec{
			{Name: "cn", Syntax: SyntaxDirectoryString, Required: true},
			{Name: "sn", Syntax: SyntaxDirectoryString, Required: true},
			{Name: "telephoneNumber", Syntax: SyntaxDirectoryString},
			{Name: "userPassword", Syntax: SyntaxOctetString},
		},
	}))

	require.NoError(t, reg.Register(ObjectClassSpec{
		Name: "inetOrgPerson",
		Attributes: []AttributeSpec{
			{Name: "cn", Syntax: SyntaxDirectoryString, Required: true},
			{Name: "sn", Syntax: SyntaxDirectoryString, Required: true},
			{Name: "mail", Syntax: SyntaxIA5String},
			{Name: "uid", Syntax: SyntaxDirectoryString},
			{Name: "displayName", Syntax: SyntaxDirectoryString, SingleValue: true},
			{Name: "employeeNumber", Syntax: SyntaxDirectoryString, SingleValue: true},
			{Name: "manager", Syntax: SyntaxDN},
		},
	}))

	require.NoError(t, reg.Register(ObjectClassSpec{
		Name: "posixAccount",
		Attributes: []AttributeSpec{
			{Name: "uid", Syntax: SyntaxDirectoryString, Required: true},
			{Name: "uidNumber", Syntax: SyntaxInteger, SingleValue: true, Required: true},
			{Name: "gidNumber", Syntax: SyntaxInteger, SingleValue: true, Required: true},
			{Name: "homeDirectory", Syntax: SyntaxDirectoryString, SingleValue: true, Required: true},
			{Name: "loginShell", Syntax: SyntaxDirectoryString, SingleValue: true},
		},
	}))

	require.NoError(t, reg.Register(ObjectClassSpec{
		Name: "pwdPolicy",
		Attributes: []AttributeSpec{
			{Name: "pwdAttribute", Syntax: SyntaxDirectoryString, SingleValue: true, Required: true},
			{Name: "pwdLockout", Syntax: SyntaxBoolean, SingleValue: true},
			{Name: "pwdStartTime", Syntax: SyntaxGeneralizedTime, SingleValue: true},
		},
	}))

	// Defines cn with conflicting cardinality, for conflict tests.
	require.NoError(t, reg.Register(ObjectClassSpec{
		Name: "brokenDevice",
		Attributes: []AttributeSpec{
			{Name: "cn", Syntax: SyntaxDirectoryString, SingleValue: true, Required: true},
			{Name: "serialNumber", Syntax: SyntaxDirectoryString},
		},
	}))

	// Defines mail with a conflicting syntax, for conflict tests.
	require.NoError(t, reg.Register(ObjectClassSpec{
		Name: "brokenMailRecipient",
		Attributes: []AttributeSpec{
			{Name: "mail", Syntax: SyntaxDirectoryString},
		},
	}))

	return reg
}

// mustBuild builds an entity type or fails the test.
func mustBuild(t *testing.T, reg *Registry, classes ...string) *EntityType {
	t.Helper()
	et, err := reg.Build(classes...)
	require.NoError(t, err)
	return et
}

// newPersonEntry returns an unsaved inetOrgPerson entry with cn and sn
// set.
func newPersonEntry(t *testing.T, reg *Registry) *Entry {
	t.Helper()
	et := mustBuild(t, reg, "inetOrgPerson")
	entry, err := NewEntry(et, "")
	require.NoError(t, err)
	require.NoError(t, entry.Set("cn", "alice"))
	require.NoError(t, entry.Set("sn", "Smith"))
	return entry
}
