package ldapmap

import (
	"context"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records the go-ldap requests the adapter builds.
type fakeConn struct {
	addReq    *ldap.AddRequest
	modifyReq *ldap.ModifyRequest
	delReq    *ldap.DelRequest
	searchReq *ldap.SearchRequest
	searchRes *ldap.SearchResult
	err       error
}

func (c *fakeConn) Add(req *ldap.AddRequest) error {
	c.addReq = req
	return c.err
}

func (c *fakeConn) Modify(req *ldap.ModifyRequest) error {
	c.modifyReq = req
	return c.err
}

func (c *fakeConn) Del(req *ldap.DelRequest) error {
	c.delReq = req
	return c.err
}

func (c *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	c.searchReq = req
	if c.err != nil {
		return nil, c.err
	}
	if c.searchRes != nil {
		return c.searchRes, nil
	}
	return &ldap.SearchResult{}, nil
}

func TestLDAPDirectoryAdd(t *testing.T) {
	conn := &fakeConn{}
	dir := NewLDAPDirectory(conn)

	err := dir.Add(context.Background(), "cn=alice,dc=example,dc=com", map[string][]string{
		"objectClass": {"inetOrgPerson"},
		"cn":          {"alice"},
		"sn":          {"Smith"},
	})
	require.NoError(t, err)
	require.NotNil(t, conn.addReq)

	assert.Equal(t, "cn=alice,dc=example,dc=com", conn.addReq.DN)
	require.Len(t, conn.addReq.Attributes, 3)
	// Attributes are added in sorted name order.
	assert.Equal(t, "cn", conn.addReq.Attributes[0].Type)
	assert.Equal(t, "objectClass", conn.addReq.Attributes[1].Type)
	assert.Equal(t, "sn", conn.addReq.Attributes[2].Type)
	assert.Equal(t, []string{"alice"}, conn.addReq.Attributes[0].Vals)
}

func TestLDAPDirectoryModify(t *testing.T) {
	conn := &fakeConn{}
	dir := NewLDAPDirectory(conn)

	err := dir.Modify(context.Background(), "cn=alice,dc=example,dc=com", map[string][]string{
		"mail":            {"a@x", "b@x"},
		"telephoneNumber": {},
	})
	require.NoError(t, err)
	require.NotNil(t, conn.modifyReq)

	assert.Equal(t, "cn=alice,dc=example,dc=com", conn.modifyReq.DN)
	require.Len(t, conn.modifyReq.Changes, 2)

	// Valued attributes become replaces, cleared ones become deletes.
	replace := conn.modifyReq.Changes[0]
	assert.Equal(t, uint(ldap.ReplaceAttribute), replace.Operation)
	assert.Equal(t, "mail", replace.Modification.Type)
	assert.Equal(t, []string{"a@x", "b@x"}, replace.Modification.Vals)

	del := conn.modifyReq.Changes[1]
	assert.Equal(t, uint(ldap.DeleteAttribute), del.Operation)
	assert.Equal(t, "telephoneNumber", del.Modification.Type)
}

func TestLDAPDirectoryDelete(t *testing.T) {
	conn := &fakeConn{}
	dir := NewLDAPDirectory(conn)

	require.NoError(t, dir.Delete(context.Background(), "cn=alice,dc=example,dc=com"))
	require.NotNil(t, conn.delReq)
	assert.Equal(t, "cn=alice,dc=example,dc=com", conn.delReq.DN)
}

func TestLDAPDirectorySearch(t *testing.T) {
	conn := &fakeConn{
		searchRes: &ldap.SearchResult{
			Entries: []*ldap.Entry{
				ldap.NewEntry("cn=alice,dc=example,dc=com", map[string][]string{
					"cn": {"alice"},
					"sn": {"Smith"},
				}),
			},
		},
	}
	dir := NewLDAPDirectory(conn)

	records, err := dir.Search(context.Background(), SearchQuery{
		BaseDN:     "dc=example,dc=com",
		Scope:      ScopeWholeSubtree,
		Filter:     "(&(objectClass=inetOrgPerson))",
		Attributes: []string{"cn", "sn"},
		SizeLimit:  10,
	})
	require.NoError(t, err)

	require.NotNil(t, conn.searchReq)
	assert.Equal(t, "dc=example,dc=com", conn.searchReq.BaseDN)
	assert.Equal(t, ldap.ScopeWholeSubtree, conn.searchReq.Scope)
	assert.Equal(t, "(&(objectClass=inetOrgPerson))", conn.searchReq.Filter)
	assert.Equal(t, []string{"cn", "sn"}, conn.searchReq.Attributes)
	assert.Equal(t, 10, conn.searchReq.SizeLimit)

	require.Len(t, records, 1)
	assert.Equal(t, "cn=alice,dc=example,dc=com", records[0].DN)
	assert.Equal(t, []string{"alice"}, records[0].Attributes["cn"])
}

func TestLDAPDirectoryHonorsContext(t *testing.T) {
	conn := &fakeConn{}
	dir := NewLDAPDirectory(conn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, dir.Add(ctx, "cn=x,dc=example,dc=com", nil))
	assert.Error(t, dir.Delete(ctx, "cn=x,dc=example,dc=com"))
	_, err := dir.Search(ctx, SearchQuery{})
	assert.Error(t, err)
	assert.Nil(t, conn.addReq)
	assert.Nil(t, conn.delReq)
	assert.Nil(t, conn.searchReq)
}
