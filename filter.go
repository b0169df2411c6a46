package ldapmap

import (
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/creasty/defaults"
	"github.com/go-ldap/ldap/v3"
)

// PredicateKind identifies how a predicate matches. Only equality is
// compiled; the remaining kinds are declared so they can be requested
// and rejected explicitly rather than silently ignored.
type PredicateKind int

const (
	PredicateEquality PredicateKind = iota
	PredicatePrefix
	PredicateExtensible
)

func (k PredicateKind) String() string {
	switch k {
	case PredicateEquality:
		return "equality"
	case PredicatePrefix:
		return "prefix"
	case PredicateExtensible:
		return "extensible"
	default:
		return "unknown"
	}
}

// Predicate is a single attribute condition of a search.
type Predicate struct {
	Attribute string
	Kind      PredicateKind
	Value     string
}

// SearchScope defines where a search looks relative to its base DN.
// The zero value is an unset scope, distinct from ScopeBaseObject, so
// defaulting never overrides an explicitly chosen scope.
type SearchScope int

const (
	scopeUnset SearchScope = iota
	ScopeBaseObject
	ScopeSingleLevel
	ScopeWholeSubtree
)

// SearchOptions scope a search. An unset scope is completed by
// defaults to whole-subtree; the size limit defaults to unlimited.
type SearchOptions struct {
	BaseDN    string
	Scope     SearchScope `default:"3"`
	SizeLimit int         `default:"0"`
}

// SearchSpec combines an entity type with equality predicates over its
// attributes. Immutable once constructed; the filter is compiled at
// construction so unsupported predicates fail fast.
type SearchSpec struct {
	entityType *EntityType
	predicates []Predicate
	opts       SearchOptions
	filter     string
}

// NewSearchSpec builds a search spec requiring each given attribute to
// equal (or, for multi-valued attributes, contain) its value.
func NewSearchSpec(entityType *EntityType, equals map[string]string, opts SearchOptions) (*SearchSpec, error) {
	predicates := make([]Predicate, 0, len(equals))
	for attr, value := range equals {
		predicates = append(predicates, Predicate{Attribute: attr, Kind: PredicateEquality, Value: value})
	}
	return NewSearchSpecFromPredicates(entityType, predicates, opts)
}

// NewSearchSpecFromPredicates builds a search spec from explicit
// predicates. Non-equality kinds fail with UnsupportedFilterError.
func NewSearchSpecFromPredicates(entityType *EntityType, predicates []Predicate, opts SearchOptions) (*SearchSpec, error) {
	if entityType == nil {
		return nil, &SchemaError{Reason: "search spec needs an entity type"}
	}
	if err := defaults.Set(&opts); err != nil {
		return nil, &SchemaError{Reason: "search options: " + err.Error()}
	}
	if opts.BaseDN != "" {
		if err := ValidateDN(opts.BaseDN); err != nil {
			return nil, err
		}
	}

	preds := slices.Clone(predicates)
	sort.SliceStable(preds, func(i, j int) bool {
		return foldAttr(preds[i].Attribute) < foldAttr(preds[j].Attribute)
	})

	filter, err := CompileFilter(entityType, preds)
	if err != nil {
		return nil, err
	}

	return &SearchSpec{
		entityType: entityType,
		predicates: preds,
		opts:       opts,
		filter:     filter,
	}, nil
}

// EntityType returns the type the search targets.
func (s *SearchSpec) EntityType() *EntityType {
	return s.entityType
}

// Filter returns the compiled search filter.
func (s *SearchSpec) Filter() string {
	return s.filter
}

// Options returns the search scope options.
func (s *SearchSpec) Options() SearchOptions {
	return s.opts
}

// Matches evaluates the spec against an in-memory entry: the entry's
// type must carry every object class of the spec, and each predicate
// value must be present among the attribute's values. Multi-valued
// attributes match on containment, not whole-set equality.
func (s *SearchSpec) Matches(entry *Entry) bool {
	if entry == nil {
		return false
	}
	classes := entry.EntityType().ObjectClasses()
	for _, want := range s.entityType.ObjectClasses() {
		found := false
		for _, have := range classes {
			if strings.EqualFold(want, have) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, pred := range s.predicates {
		values, err := entry.Get(pred.Attribute)
		if err != nil || !slices.Contains(values, pred.Value) {
			return false
		}
	}
	return true
}

// CompileFilter translates equality predicates over an entity type's
// attributes into an LDAP search filter: a conjunction requiring every
// object class of the type plus each predicate. Values are escaped per
// RFC 4515 (`*` `(` `)` `\` NUL become hex escapes) unconditionally, so
// a `*` in a value is a literal asterisk, never a wildcard.
func CompileFilter(entityType *EntityType, predicates []Predicate) (string, error) {
	if entityType == nil {
		return "", &SchemaError{Reason: "filter needs an entity type"}
	}

	var b strings.Builder
	b.WriteString("(&")
	for _, class := range entityType.ObjectClasses() {
		b.WriteString("(objectClass=")
		b.WriteString(ldap.EscapeFilter(class))
		b.WriteString(")")
	}

	for _, pred := range predicates {
		if pred.Kind != PredicateEquality {
			return "", &UnsupportedFilterError{Kind: pred.Kind}
		}
		spec, ok := entityType.Spec(pred.Attribute)
		if !ok {
			return "", &UnknownAttributeError{Attribute: pred.Attribute, Classes: entityType.ObjectClasses()}
		}
		if !utf8.ValidString(pred.Value) {
			return "", &FilterEscapingError{Attribute: spec.Name, Value: pred.Value}
		}
		b.WriteString("(")
		b.WriteString(spec.Name)
		b.WriteString("=")
		b.WriteString(ldap.EscapeFilter(pred.Value))
		b.WriteString(")")
	}

	b.WriteString(")")
	return b.String(), nil
}
