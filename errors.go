package ldapmap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// SchemaError reports a problem with an object class definition or the
// registry lifecycle: conflicting re-registration, registration after
// freeze, or a malformed definition.
type SchemaError struct {
	Name   string // object class or definition involved
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Name == "" {
		return "schema error: " + e.Reason
	}
	return fmt.Sprintf("schema error: %s: %s", e.Name, e.Reason)
}

// UnknownSchemaError reports a lookup of an object class that was never
// registered.
type UnknownSchemaError struct {
	Name string
}

func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("unknown object class %q", e.Name)
}

// SchemaConflictError reports that two object classes in a build set
// define the same attribute with incompatible cardinality or value
// syntax. Detail aggregates one error per conflicting attribute.
type SchemaConflictError struct {
	Classes []string // sorted class names of the failed build
	Detail  error
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("conflicting attribute definitions across object classes [%s]: %v",
		strings.Join(e.Classes, ", "), e.Detail)
}

func (e *SchemaConflictError) Unwrap() error {
	return e.Detail
}

// UnknownAttributeError reports access to an attribute no object class
// of the entity type defines.
type UnknownAttributeError struct {
	Attribute string
	Classes   []string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("attribute %q is not defined by object classes [%s]",
		e.Attribute, strings.Join(e.Classes, ", "))
}

// ValueArityError reports a multi-value assignment to a single-valued
// attribute.
type ValueArityError struct {
	Attribute string
	Count     int
}

func (e *ValueArityError) Error() string {
	return fmt.Sprintf("attribute %q is single-valued, got %d values", e.Attribute, e.Count)
}

// ValueSyntaxError reports a value that does not conform to the
// attribute's declared value syntax.
type ValueSyntaxError struct {
	Attribute string
	Value     string
	Syntax    ValueSyntax
}

func (e *ValueSyntaxError) Error() string {
	return fmt.Sprintf("attribute %q: value %q is not a valid %s", e.Attribute, e.Value, e.Syntax)
}

// IncompleteEntryError reports an entry that cannot be turned into an
// operation: a new entry without a DN, a new entry missing required
// attributes, or a delete of an entry that was never saved. Raised at
// build time, never deferred into execution.
type IncompleteEntryError struct {
	DN      string
	Missing []string // required attributes without a value, sorted
	Reason  string   // set when Missing does not apply
}

func (e *IncompleteEntryError) Error() string {
	target := e.DN
	if target == "" {
		target = "(no dn)"
	}
	var parts []string
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required attributes [%s]", strings.Join(e.Missing, ", ")))
	}
	if len(parts) == 0 {
		parts = append(parts, "incomplete entry")
	}
	return fmt.Sprintf("entry %s: %s", target, strings.Join(parts, "; "))
}

// InvalidDNError reports a string that does not parse as a
// distinguished name.
type InvalidDNError struct {
	DN    string
	Cause error
}

func (e *InvalidDNError) Error() string {
	return fmt.Sprintf("invalid distinguished name %q: %v", e.DN, e.Cause)
}

func (e *InvalidDNError) Unwrap() error {
	return e.Cause
}

// UnsupportedFilterError reports a predicate kind the filter compiler
// does not implement. Only equality predicates are supported; the
// other kinds are declared so future compilers can accept them.
type UnsupportedFilterError struct {
	Kind PredicateKind
}

func (e *UnsupportedFilterError) Error() string {
	return fmt.Sprintf("unsupported predicate kind %s: only equality predicates are compiled", e.Kind)
}

// FilterEscapingError reports a predicate value the target filter
// syntax cannot represent.
type FilterEscapingError struct {
	Attribute string
	Value     string
}

func (e *FilterEscapingError) Error() string {
	return fmt.Sprintf("attribute %q: value %q cannot be represented in a search filter", e.Attribute, e.Value)
}

// FailureCategory classifies execution failures reported by a
// directory server.
type FailureCategory string

const (
	FailureConnection     FailureCategory = "connection"
	FailureAuthentication FailureCategory = "authentication"
	FailurePermission     FailureCategory = "permission"
	FailureNotFound       FailureCategory = "not_found"
	FailureConflict       FailureCategory = "conflict"
	FailureValidation     FailureCategory = "validation"
	FailureServer         FailureCategory = "server"
	FailureUnknown        FailureCategory = "unknown"
)

// ExecutionFailure is the structured failure carried by a Result. It is
// an opaque passthrough of whatever the connection layer reported,
// tagged with the operation kind and target for diagnostics.
type ExecutionFailure struct {
	Op        OperationKind
	DN        string // target DN, if the operation had one
	Filter    string // compiled filter, for search operations
	Category  FailureCategory
	Code      uint16 // LDAP result code, 0 if not an LDAP error
	Message   string
	Retryable bool // advisory; the mapper itself never retries
	Cause     error
}

func (e *ExecutionFailure) Error() string {
	parts := []string{fmt.Sprintf("%s failed", e.Op)}
	if e.Code > 0 {
		parts[0] = fmt.Sprintf("%s failed (code %d)", e.Op, e.Code)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.DN != "" {
		parts = append(parts, "DN: "+e.DN)
	}
	if e.Filter != "" {
		parts = append(parts, "filter: "+e.Filter)
	}
	return strings.Join(parts, " - ")
}

func (e *ExecutionFailure) Unwrap() error {
	return e.Cause
}

// newExecutionFailure builds a failure from a connection-layer error,
// extracting the result code when the cause is a go-ldap error.
func newExecutionFailure(op *DeferredOperation, err error) *ExecutionFailure {
	failure := &ExecutionFailure{
		Op:     op.kind,
		DN:     op.dn,
		Filter: op.filter,
		Cause:  err,
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		failure.Code = ldapErr.ResultCode
		failure.Category = categorizeResultCode(ldapErr.ResultCode)
		failure.Retryable = isResultCodeRetryable(ldapErr.ResultCode)
		failure.Message = ldap.LDAPResultCodeMap[ldapErr.ResultCode]
		if failure.Message == "" {
			failure.Message = err.Error()
		}
	} else {
		failure.Category = categorizeGenericError(err)
		failure.Retryable = failure.Category == FailureConnection
		failure.Message = err.Error()
	}

	return failure
}

// categorizeResultCode maps an LDAP result code onto a failure category.
func categorizeResultCode(code uint16) FailureCategory {
	switch code {
	case ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultStrongAuthRequired:
		return FailureAuthentication

	case ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultUnwillingToPerform:
		return FailurePermission

	case ldap.LDAPResultNoSuchObject,
		ldap.LDAPResultNoSuchAttribute,
		ldap.LDAPResultUndefinedAttributeType:
		return FailureNotFound

	case ldap.LDAPResultEntryAlreadyExists,
		ldap.LDAPResultAttributeOrValueExists,
		ldap.LDAPResultObjectClassViolation,
		ldap.LDAPResultNotAllowedOnNonLeaf:
		return FailureConflict

	case ldap.LDAPResultInvalidAttributeSyntax,
		ldap.LDAPResultConstraintViolation,
		ldap.LDAPResultInvalidDNSyntax,
		ldap.LDAPResultNamingViolation:
		return FailureValidation

	case ldap.LDAPResultServerDown,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultBusy,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultAdminLimitExceeded:
		return FailureServer

	case ldap.LDAPResultConnectError,
		ldap.LDAPResultProtocolError:
		return FailureConnection

	default:
		return FailureUnknown
	}
}

// isResultCodeRetryable reports whether an LDAP result code indicates a
// transient condition.
func isResultCodeRetryable(code uint16) bool {
	switch code {
	case ldap.LDAPResultBusy,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultServerDown,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultConnectError:
		return true
	default:
		return false
	}
}

// categorizeGenericError categorizes non-LDAP errors by message.
func categorizeGenericError(err error) FailureCategory {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "deadline"),
		strings.Contains(msg, "canceled"):
		return FailureConnection
	case strings.Contains(msg, "credentials"),
		strings.Contains(msg, "authentication"):
		return FailureAuthentication
	case strings.Contains(msg, "permission"),
		strings.Contains(msg, "access"),
		strings.Contains(msg, "denied"):
		return FailurePermission
	default:
		return FailureUnknown
	}
}
