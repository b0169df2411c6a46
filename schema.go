package ldapmap

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ValueSyntax identifies the value syntax of an attribute. It is a
// reduced form of the LDAP syntax OIDs that matter for validation.
type ValueSyntax int

const (
	SyntaxDirectoryString ValueSyntax = iota
	SyntaxIA5String
	SyntaxInteger
	SyntaxBoolean
	SyntaxOctetString
	SyntaxDN
	SyntaxGeneralizedTime
)

func (s ValueSyntax) String() string {
	switch s {
	case SyntaxDirectoryString:
		return "directoryString"
	case SyntaxIA5String:
		return "ia5String"
	case SyntaxInteger:
		return "integer"
	case SyntaxBoolean:
		return "boolean"
	case SyntaxOctetString:
		return "octetString"
	case SyntaxDN:
		return "dn"
	case SyntaxGeneralizedTime:
		return "generalizedTime"
	default:
		return "unknown"
	}
}

// AttributeSpec describes one attribute of an object class.
type AttributeSpec struct {
	Name        string
	Syntax      ValueSyntax
	SingleValue bool
	Required    bool // MUST in the owning object class
}

// compatible reports whether two specs for the same attribute name can
// coexist in one entity type. The required flag may differ across
// classes; cardinality and syntax may not.
func (a AttributeSpec) compatible(b AttributeSpec) bool {
	return a.SingleValue == b.SingleValue && a.Syntax == b.Syntax
}

// ObjectClassSpec describes an object class: a named set of attribute
// specs. Immutable once registered.
type ObjectClassSpec struct {
	Name       string
	Attributes []AttributeSpec
}

// normalize returns a copy with attributes sorted by folded name, for
// equality comparison and deterministic iteration.
func (s ObjectClassSpec) normalize() ObjectClassSpec {
	attrs := make([]AttributeSpec, len(s.Attributes))
	copy(attrs, s.Attributes)
	sort.Slice(attrs, func(i, j int) bool {
		return foldAttr(attrs[i].Name) < foldAttr(attrs[j].Name)
	})
	return ObjectClassSpec{Name: s.Name, Attributes: attrs}
}

func (s ObjectClassSpec) equal(other ObjectClassSpec) bool {
	if !strings.EqualFold(s.Name, other.Name) || len(s.Attributes) != len(other.Attributes) {
		return false
	}
	a, b := s.normalize(), other.normalize()
	for i := range a.Attributes {
		x, y := a.Attributes[i], b.Attributes[i]
		if !strings.EqualFold(x.Name, y.Name) || x.Syntax != y.Syntax ||
			x.SingleValue != y.SingleValue || x.Required != y.Required {
			return false
		}
	}
	return true
}

func (s ObjectClassSpec) validate() error {
	if s.Name == "" {
		return &SchemaError{Reason: "object class name must not be empty"}
	}
	seen := make(map[string]bool, len(s.Attributes))
	for _, attr := range s.Attributes {
		if attr.Name == "" {
			return &SchemaError{Name: s.Name, Reason: "attribute name must not be empty"}
		}
		low := foldAttr(attr.Name)
		if seen[low] {
			return &SchemaError{Name: s.Name, Reason: fmt.Sprintf("attribute %q defined twice", attr.Name)}
		}
		seen[low] = true
	}
	return nil
}

// foldAttr folds an attribute or class name for case-insensitive
// comparison; LDAP short names are ASCII.
func foldAttr(name string) string {
	return strings.ToLower(name)
}

// Registry holds the known object class definitions and the entity
// type build cache. It follows an initialize-then-freeze lifecycle:
// classes are registered up front, and the first Build freezes the
// registry against further registration. Reads are safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]ObjectClassSpec // keyed by folded name
	cache   map[string]*EntityType     // keyed by sorted folded class tuple
	frozen  bool
	logger  Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		classes: make(map[string]ObjectClassSpec),
		cache:   make(map[string]*EntityType),
		logger:  NopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) setLogger(logger Logger) {
	r.logger = logger
}

// Register adds an object class definition. Re-registering an
// identical definition is a no-op; a different definition under the
// same name, or any registration after the first Build, fails with
// SchemaError.
func (r *Registry) Register(spec ObjectClassSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	low := foldAttr(spec.Name)
	if existing, ok := r.classes[low]; ok {
		if existing.equal(spec) {
			return nil
		}
		return &SchemaError{Name: spec.Name, Reason: "already registered with a different definition"}
	}

	if r.frozen {
		return &SchemaError{Name: spec.Name, Reason: "registry is frozen: register all classes before building entity types"}
	}

	r.classes[low] = spec.normalize()
	r.logger.Debug("registered object class", map[string]any{
		"class":      spec.Name,
		"attributes": len(spec.Attributes),
	})
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (ObjectClassSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.classes[foldAttr(name)]
	if !ok {
		return ObjectClassSpec{}, &UnknownSchemaError{Name: name}
	}
	return spec, nil
}

// ClassNames returns the registered class names, sorted.
func (r *Registry) ClassNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.classes))
	for _, spec := range r.classes {
		names = append(names, spec.Name)
	}
	sort.Strings(names)
	return names
}
