package ldapmap

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsToArgs(t *testing.T) {
	t.Run("keys are sorted", func(t *testing.T) {
		args := fieldsToArgs(map[string]any{
			"zulu":  3,
			"alpha": 1,
			"mike":  2,
		})
		assert.Equal(t, []any{"alpha", 1, "mike", 2, "zulu", 3}, args)
	})

	t.Run("empty map yields no args", func(t *testing.T) {
		assert.Nil(t, fieldsToArgs(nil))
		assert.Nil(t, fieldsToArgs(map[string]any{}))
	})
}

func TestHCLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewHCLogger(hclog.New(&hclog.LoggerOptions{
		Name:   "ldapmap",
		Level:  hclog.Trace,
		Output: &buf,
	}))

	logger.Debug("building entity type", map[string]any{
		"classes": "inetOrgPerson,person",
		"cached":  false,
	})
	out := buf.String()
	assert.Contains(t, out, "building entity type")
	assert.Contains(t, out, "classes=inetOrgPerson,person")
	assert.Contains(t, out, "cached=false")

	buf.Reset()
	logger.Error("add failed", map[string]any{"dn": "cn=a,dc=example,dc=com"})
	out = buf.String()
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "add failed")
	assert.Contains(t, out, "dn=cn=a,dc=example,dc=com")
}

func TestWithLogger(t *testing.T) {
	t.Run("registry accepts a logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewHCLogger(hclog.New(&hclog.LoggerOptions{
			Level:  hclog.Trace,
			Output: &buf,
		}))

		reg := NewRegistry(WithLogger(logger))
		require.NoError(t, reg.Register(ObjectClassSpec{
			Name: "person",
			Attributes: []AttributeSpec{
				{Name: "cn", Syntax: SyntaxDirectoryString, Required: true},
			},
		}))
		assert.NotEmpty(t, buf.String())
	})

	t.Run("nil logger is ignored", func(t *testing.T) {
		assert.NotPanics(t, func() {
			reg := NewRegistry(WithLogger(nil))
			_ = reg.Register(ObjectClassSpec{
				Name: "person",
				Attributes: []AttributeSpec{
					{Name: "cn", Syntax: SyntaxDirectoryString, Required: true},
				},
			})
		})
	})
}
