/*
Package ldapmap maps LDAP directory entries onto plain in-memory objects
and defers every directory operation until a caller supplies a connection.

The package lets application code manipulate directory entries without
knowing LDAP's schema, search-filter, or connection model. It owns no
connections: every save, search, load, or delete is prepared as an
immutable DeferredOperation that is executed later against a
caller-supplied Directory.

# Architecture Overview

The package is organized into several core components:

  - Registry: process-wide object class definitions with an
    initialize-then-freeze lifecycle
  - EntityType: the union of a set of object classes, built once and
    cached, with conflict detection at build time
  - Entry: a runtime instance of an EntityType with dirty tracking and
    distinguished-name placement
  - DeferredOperation: an immutable command value produced by
    PrepareSave, PrepareSearch, PrepareLoad, or PrepareDelete
  - Directory: the execution contract a connection wrapper implements;
    LDAPDirectory adapts a go-ldap connection to it

# Schema Model

Object classes are registered explicitly, either as ObjectClassSpec
values or parsed from RFC 4512 definition strings via
RegisterDefinitions. The registry never fetches schema from a server.
Building an EntityType unions the attribute specs of its classes; two
classes defining the same attribute with different cardinality or value
syntax fail the build with SchemaConflictError, never a runtime
resolution.

# Deferred Execution

Prepared operations snapshot their inputs: mutating an Entry after
PrepareSave does not change the operation already built. Execution
reports a Result rather than raising: directory-server failures are
carried as an ExecutionFailure tagged with the operation kind and target
DN or filter, so batches of operations can be executed without
per-item fault handling. The package performs no retries; the
Failure's Retryable flag is advisory for callers that do.

# Error Handling

All schema, arity, completeness, and filter errors are raised
synchronously at build time. Only genuine directory-server failures
surface at execution time, via Result.Failure.

# Thread Safety

The Registry and its build cache are safe for concurrent reads after
initialization. EntityType and DeferredOperation values are immutable
and freely shared. An Entry is not safe for concurrent mutation.

# Example Usage

	reg := ldapmap.NewRegistry()
	if err := ldapmap.RegisterDefinitions(reg, attributeTypes, objectClasses); err != nil {
		return err
	}

	person, err := reg.Build("inetOrgPerson")
	if err != nil {
		return err
	}

	alice, _ := ldapmap.NewEntry(person, "")
	_ = alice.Set("cn", "alice")
	_ = alice.Set("sn", "Smith")
	_ = alice.PlaceUnder("ou=people,dc=example,dc=com", "cn")

	op, err := ldapmap.PrepareSave(alice)
	if err != nil {
		return err
	}

	// Later, with a live connection:
	dir := ldapmap.NewLDAPDirectory(conn)
	res := op.Execute(ctx, dir)
	if res.OK() {
		alice.MarkSaved()
	}
*/
package ldapmap
