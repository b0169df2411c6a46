package ldapmap

import (
	"slices"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// OperationKind identifies what a deferred operation will do once
// executed.
type OperationKind int

const (
	OpSave OperationKind = iota
	OpSearch
	OpLoad
	OpDelete
)

func (k OperationKind) String() string {
	switch k {
	case OpSave:
		return "save"
	case OpSearch:
		return "search"
	case OpLoad:
		return "load"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// DeferredOperation is a directory action awaiting a connection. It
// holds an immutable snapshot of everything needed to execute: later
// mutations to the source Entry do not reach an already-built
// operation. Operations are freely shareable across goroutines; a
// single save operation must not be executed concurrently against the
// same target without external serialization.
type DeferredOperation struct {
	id         uuid.UUID
	kind       OperationKind
	entityType *EntityType
	dn         string
	create     bool                // save: add rather than modify
	attrs      map[string][]string // save: values keyed by folded name
	filter     string
	opts       SearchOptions
}

// ID returns the operation's unique identifier, for log correlation.
func (op *DeferredOperation) ID() uuid.UUID {
	return op.id
}

// Kind returns what the operation will do.
func (op *DeferredOperation) Kind() OperationKind {
	return op.kind
}

// DN returns the target DN; empty for search operations.
func (op *DeferredOperation) DN() string {
	return op.dn
}

// Filter returns the compiled filter; empty for save and delete.
func (op *DeferredOperation) Filter() string {
	return op.filter
}

// EntityType returns the entity type the operation concerns.
func (op *DeferredOperation) EntityType() *EntityType {
	return op.entityType
}

// CreatesEntry reports whether a save operation will add a new entry
// rather than modify an existing one.
func (op *DeferredOperation) CreatesEntry() bool {
	return op.kind == OpSave && op.create
}

// Attributes returns a deep copy of the captured attribute values,
// keyed by canonical attribute name. For a modify, cleared attributes
// appear with no values.
func (op *DeferredOperation) Attributes() map[string][]string {
	out := make(map[string][]string, len(op.attrs))
	for low, values := range op.attrs {
		name := low
		if low == "objectclass" {
			name = "objectClass"
		} else if spec, ok := op.entityType.Spec(low); ok {
			name = spec.Name
		}
		out[name] = slices.Clone(values)
	}
	return out
}

// PrepareSave turns an entry's pending state into a deferred
// operation. A new entry must have a DN and a value for every required
// attribute of its type; either failing raises IncompleteEntryError
// now, before deferring. An existing entry's operation carries only
// the dirty attributes, compiled as whole-value replacements so
// executing the same operation twice re-applies the same net change.
func PrepareSave(entry *Entry) (*DeferredOperation, error) {
	if entry == nil {
		return nil, &IncompleteEntryError{Reason: "no entry"}
	}

	if entry.IsNew() {
		var problems *multierror.Error
		if entry.DN() == "" {
			problems = multierror.Append(problems, &IncompleteEntryError{Reason: "new entry has no dn"})
		}
		missing := entry.missingRequired()
		if len(missing) > 0 {
			problems = multierror.Append(problems, &IncompleteEntryError{DN: entry.DN(), Missing: missing})
		}
		if problems != nil {
			if len(problems.Errors) == 1 {
				return nil, problems.Errors[0]
			}
			return nil, &IncompleteEntryError{DN: entry.DN(), Missing: missing, Reason: "new entry has no dn"}
		}

		attrs := entry.snapshotAttrs(false)
		// An add must carry the object classes; the directory will not
		// infer them.
		attrs["objectclass"] = entry.EntityType().ObjectClasses()

		return &DeferredOperation{
			id:         uuid.New(),
			kind:       OpSave,
			entityType: entry.EntityType(),
			dn:         entry.DN(),
			create:     true,
			attrs:      attrs,
		}, nil
	}

	if entry.DN() == "" {
		return nil, &IncompleteEntryError{Reason: "entry has no dn"}
	}

	return &DeferredOperation{
		id:         uuid.New(),
		kind:       OpSave,
		entityType: entry.EntityType(),
		dn:         entry.DN(),
		attrs:      entry.snapshotAttrs(true),
	}, nil
}

// PrepareSearch wraps a search spec as a deferred operation,
// snapshotting its entity type, compiled filter, and options.
func PrepareSearch(spec *SearchSpec) (*DeferredOperation, error) {
	if spec == nil {
		return nil, &SchemaError{Reason: "no search spec"}
	}
	if spec.Options().BaseDN == "" {
		return nil, &SchemaError{Reason: "search needs a base dn"}
	}
	return &DeferredOperation{
		id:         uuid.New(),
		kind:       OpSearch,
		entityType: spec.EntityType(),
		filter:     spec.Filter(),
		opts:       spec.Options(),
	}, nil
}

// PrepareLoad wraps a by-DN fetch of a single entry of the given type.
// Execution fails with a not_found failure if nothing is at dn.
func PrepareLoad(entityType *EntityType, dn string) (*DeferredOperation, error) {
	if entityType == nil {
		return nil, &SchemaError{Reason: "load needs an entity type"}
	}
	if err := ValidateDN(dn); err != nil {
		return nil, err
	}
	// Scope the fetch to entries actually carrying the type's classes.
	filter, err := CompileFilter(entityType, nil)
	if err != nil {
		return nil, err
	}
	return &DeferredOperation{
		id:         uuid.New(),
		kind:       OpLoad,
		entityType: entityType,
		dn:         dn,
		filter:     filter,
	}, nil
}

// PrepareDelete wraps removal of an existing entry. Deleting an entry
// that was never saved fails with IncompleteEntryError.
func PrepareDelete(entry *Entry) (*DeferredOperation, error) {
	if entry == nil {
		return nil, &IncompleteEntryError{Reason: "no entry"}
	}
	if entry.IsNew() || entry.DN() == "" {
		return nil, &IncompleteEntryError{DN: entry.DN(), Reason: "cannot delete an entry that was never saved"}
	}
	return &DeferredOperation{
		id:         uuid.New(),
		kind:       OpDelete,
		entityType: entry.EntityType(),
		dn:         entry.DN(),
	}, nil
}
