package ldapmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUnionsAttributes(t *testing.T) {
	reg := newTestRegistry(t)

	et := mustBuild(t, reg, "person", "inetOrgPerson")

	assert.Equal(t, []string{"inetOrgPerson", "person"}, et.ObjectClasses())

	names := et.AttributeNames()
	assert.Contains(t, names, "cn")
	assert.Contains(t, names, "mail")
	assert.Contains(t, names, "telephoneNumber")
	assert.IsIncreasing(t, names)

	spec, ok := et.Spec("displayName")
	require.True(t, ok)
	assert.True(t, spec.SingleValue)

	// Case-insensitive attribute resolution.
	_, ok = et.Spec("MAIL")
	assert.True(t, ok)
}

func TestBuildIsDeterministic(t *testing.T) {
	reg := newTestRegistry(t)

	a := mustBuild(t, reg, "person", "inetOrgPerson")
	b := mustBuild(t, reg, "inetOrgPerson", "person")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.ObjectClasses(), b.ObjectClasses())

	// The cache returns the same value for the same set.
	assert.Same(t, a, b)

	// A fresh registry with the same definitions builds a structurally
	// equal type: value equality, not identity, is the contract.
	other := newTestRegistry(t)
	c := mustBuild(t, other, "inetOrgPerson", "person")
	assert.NotSame(t, a, c)
	assert.True(t, a.Equal(c))
}

func TestBuildRequiredUnion(t *testing.T) {
	reg := newTestRegistry(t)

	// uid is optional in inetOrgPerson but required in posixAccount;
	// the union must require it.
	et := mustBuild(t, reg, "inetOrgPerson", "posixAccount")

	required := et.RequiredAttributes()
	assert.Contains(t, required, "uid")
	assert.Contains(t, required, "uidNumber")
	assert.Contains(t, required, "cn")
	assert.NotContains(t, required, "mail")
}

func TestBuildConflicts(t *testing.T) {
	reg := newTestRegistry(t)

	t.Run("cardinality conflict", func(t *testing.T) {
		_, err := reg.Build("person", "brokenDevice")
		var conflict *SchemaConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, []string{"brokenDevice", "person"}, conflict.Classes)
		assert.Contains(t, conflict.Error(), "cn")
	})

	t.Run("syntax conflict", func(t *testing.T) {
		_, err := reg.Build("inetOrgPerson", "brokenMailRecipient")
		var conflict *SchemaConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Contains(t, conflict.Error(), "mail")
	})

	t.Run("conflict order is independent of caller order", func(t *testing.T) {
		_, err1 := reg.Build("brokenDevice", "person")
		_, err2 := reg.Build("person", "brokenDevice")
		require.Error(t, err1)
		require.Error(t, err2)
		assert.Equal(t, err1.Error(), err2.Error())
	})
}

func TestBuildErrors(t *testing.T) {
	reg := newTestRegistry(t)

	t.Run("unknown class", func(t *testing.T) {
		_, err := reg.Build("nope")
		var unknown *UnknownSchemaError
		assert.True(t, errors.As(err, &unknown))
	})

	t.Run("empty set", func(t *testing.T) {
		_, err := reg.Build()
		var schemaErr *SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	})

	t.Run("class named twice", func(t *testing.T) {
		_, err := reg.Build("person", "PERSON")
		var schemaErr *SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	})
}

func TestEntityTypeEqual(t *testing.T) {
	reg := newTestRegistry(t)

	person := mustBuild(t, reg, "person")
	combined := mustBuild(t, reg, "person", "inetOrgPerson")

	assert.False(t, person.Equal(combined))
	assert.True(t, person.Equal(person))
	assert.False(t, person.Equal(nil))
}
