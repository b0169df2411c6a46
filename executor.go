package ldapmap

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"github.com/go-ldap/ldap/v3"
)

// Record is a raw directory record as returned by a Directory
// implementation: a DN and its attribute values.
type Record struct {
	DN         string
	Attributes map[string][]string
}

// SearchQuery is the wire-level search a Directory receives.
type SearchQuery struct {
	BaseDN     string
	Scope      SearchScope
	Filter     string
	Attributes []string
	SizeLimit  int
}

// Directory is the execution contract a caller-supplied connection
// wrapper implements. The mapper never inspects the underlying
// connection beyond calling these methods; establishing, binding, and
// pooling connections is entirely the caller's concern.
type Directory interface {
	Add(ctx context.Context, dn string, attrs map[string][]string) error
	Modify(ctx context.Context, dn string, replace map[string][]string) error
	Delete(ctx context.Context, dn string) error
	Search(ctx context.Context, query SearchQuery) ([]Record, error)
}

// Result describes the outcome of executing a deferred operation.
// Failure is nil on success. ServerAssigned is reserved for directory
// implementations that report server-generated values on save; plain
// LDAP assigns none.
type Result struct {
	OperationID    string
	Kind           OperationKind
	DN             string
	Filter         string
	ServerAssigned map[string][]string
	Failure        *ExecutionFailure

	entries []*Entry
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Entries iterates the materialized matches of a search or load. The
// sequence is finite and restartable; results were materialized at
// execution time, so iteration does not touch the connection.
func (r Result) Entries() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, e := range r.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Entry returns the single entry of a load result.
func (r Result) Entry() (*Entry, bool) {
	if len(r.entries) == 0 {
		return nil, false
	}
	return r.entries[0], true
}

// Len returns the number of materialized entries.
func (r Result) Len() int {
	return len(r.entries)
}

// Execute performs exactly the operation that was built, against the
// given directory. It never returns a Go error: directory failures
// are reported via Result.Failure so batches can be executed without
// per-item fault handling. No retry is attempted. Executing the same
// search or load twice is side-effect free; a save re-applies the same
// net change.
func (op *DeferredOperation) Execute(ctx context.Context, dir Directory) Result {
	result := Result{
		OperationID: op.id.String(),
		Kind:        op.kind,
		DN:          op.dn,
		Filter:      op.filter,
	}

	switch op.kind {
	case OpSave:
		if op.create {
			if err := dir.Add(ctx, op.dn, op.Attributes()); err != nil {
				result.Failure = newExecutionFailure(op, err)
			}
			return result
		}
		if len(op.attrs) == 0 {
			// Nothing changed since load; the net change is empty.
			return result
		}
		if err := dir.Modify(ctx, op.dn, op.Attributes()); err != nil {
			result.Failure = newExecutionFailure(op, err)
		}
		return result

	case OpDelete:
		if err := dir.Delete(ctx, op.dn); err != nil {
			result.Failure = newExecutionFailure(op, err)
		}
		return result

	case OpSearch:
		records, err := dir.Search(ctx, SearchQuery{
			BaseDN:     op.opts.BaseDN,
			Scope:      op.opts.Scope,
			Filter:     op.filter,
			Attributes: op.entityType.AttributeNames(),
			SizeLimit:  op.opts.SizeLimit,
		})
		if err != nil {
			result.Failure = newExecutionFailure(op, err)
			return result
		}
		result.entries, result.Failure = op.materialize(records)
		return result

	case OpLoad:
		records, err := dir.Search(ctx, SearchQuery{
			BaseDN:     op.dn,
			Scope:      ScopeBaseObject,
			Filter:     op.filter,
			Attributes: op.entityType.AttributeNames(),
		})
		if err != nil {
			result.Failure = newExecutionFailure(op, err)
			return result
		}
		if len(records) == 0 {
			result.Failure = &ExecutionFailure{
				Op:       op.kind,
				DN:       op.dn,
				Filter:   op.filter,
				Category: FailureNotFound,
				Message:  "no entry at dn",
			}
			return result
		}
		if len(records) > 1 {
			result.Failure = &ExecutionFailure{
				Op:       op.kind,
				DN:       op.dn,
				Filter:   op.filter,
				Category: FailureValidation,
				Message:  fmt.Sprintf("expected one entry, directory returned %d", len(records)),
			}
			return result
		}
		result.entries, result.Failure = op.materialize(records)
		return result

	default:
		result.Failure = &ExecutionFailure{
			Op:       op.kind,
			Category: FailureValidation,
			Message:  "unknown operation kind",
		}
		return result
	}
}

// materialize converts raw records into loaded entries. A record the
// entity type cannot represent fails the whole operation; the search
// only requested mapped attributes, so this indicates a directory
// answer the mapping cannot trust.
func (op *DeferredOperation) materialize(records []Record) ([]*Entry, *ExecutionFailure) {
	entries := make([]*Entry, 0, len(records))
	for _, rec := range records {
		entry, err := MaterializeEntry(op.entityType, rec.DN, rec.Attributes)
		if err != nil {
			return nil, &ExecutionFailure{
				Op:       op.kind,
				DN:       rec.DN,
				Filter:   op.filter,
				Category: FailureValidation,
				Message:  err.Error(),
				Cause:    err,
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ldapConn is the subset of *ldap.Conn the adapter uses; an interface
// so tests can stand in for a live connection.
type ldapConn interface {
	Add(*ldap.AddRequest) error
	Modify(*ldap.ModifyRequest) error
	Del(*ldap.DelRequest) error
	Search(*ldap.SearchRequest) (*ldap.SearchResult, error)
}

// LDAPDirectory adapts a go-ldap connection to the Directory
// contract. It assumes the connection is already bound; it never
// opens, binds, or closes anything.
type LDAPDirectory struct {
	conn   ldapConn
	logger Logger
}

// NewLDAPDirectory wraps an already-connected go-ldap connection.
func NewLDAPDirectory(conn ldapConn, opts ...Option) *LDAPDirectory {
	d := &LDAPDirectory{
		conn:   conn,
		logger: NopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *LDAPDirectory) setLogger(logger Logger) {
	d.logger = logger
}

func (d *LDAPDirectory) Add(ctx context.Context, dn string, attrs map[string][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := ldap.NewAddRequest(dn, nil)
	for _, name := range sortedKeys(attrs) {
		req.Attribute(name, attrs[name])
	}

	d.logger.Debug("directory add", map[string]any{"dn": dn, "attributes": len(attrs)})
	return d.conn.Add(req)
}

func (d *LDAPDirectory) Modify(ctx context.Context, dn string, replace map[string][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := ldap.NewModifyRequest(dn, nil)
	for _, name := range sortedKeys(replace) {
		values := replace[name]
		if len(values) == 0 {
			// Replacing with no values removes the attribute.
			req.Delete(name, nil)
			continue
		}
		req.Replace(name, values)
	}

	d.logger.Debug("directory modify", map[string]any{"dn": dn, "changes": len(replace)})
	return d.conn.Modify(req)
}

func (d *LDAPDirectory) Delete(ctx context.Context, dn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.logger.Debug("directory delete", map[string]any{"dn": dn})
	return d.conn.Del(ldap.NewDelRequest(dn, nil))
}

func (d *LDAPDirectory) Search(ctx context.Context, query SearchQuery) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := ldap.NewSearchRequest(
		query.BaseDN,
		ldapScope(query.Scope),
		ldap.NeverDerefAliases,
		query.SizeLimit,
		0,
		false,
		query.Filter,
		query.Attributes,
		nil,
	)

	d.logger.Debug("directory search", map[string]any{
		"base_dn": query.BaseDN,
		"filter":  query.Filter,
	})

	res, err := d.conn.Search(req)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(res.Entries))
	for _, entry := range res.Entries {
		attrs := make(map[string][]string, len(entry.Attributes))
		for _, attr := range entry.Attributes {
			attrs[attr.Name] = attr.Values
		}
		records = append(records, Record{DN: entry.DN, Attributes: attrs})
	}
	return records, nil
}

func ldapScope(scope SearchScope) int {
	switch scope {
	case ScopeBaseObject:
		return ldap.ScopeBaseObject
	case ScopeSingleLevel:
		return ldap.ScopeSingleLevel
	default:
		return ldap.ScopeWholeSubtree
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
