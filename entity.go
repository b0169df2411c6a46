package ldapmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// attrBinding records which class contributed an attribute to an
// entity type, for conflict diagnostics.
type attrBinding struct {
	spec  AttributeSpec
	class string
}

// EntityType is the union of an ordered set of object classes. Every
// attribute resolves to exactly one definition; ambiguity is rejected
// at build time, never at access time. Immutable once built.
type EntityType struct {
	classes []string               // canonical names, sorted case-insensitively
	attrs   map[string]attrBinding // keyed by folded attribute name
	names   []string               // canonical attribute names, sorted
}

// Build resolves the named object classes and unions their attribute
// specs into an EntityType. Two classes defining the same attribute
// with incompatible cardinality or value syntax fail with
// SchemaConflictError. Builds are cached by the sorted class set; the
// first successful build freezes the registry.
func (r *Registry) Build(classNames ...string) (*EntityType, error) {
	if len(classNames) == 0 {
		return nil, &SchemaError{Reason: "entity type needs at least one object class"}
	}

	specs := make([]ObjectClassSpec, 0, len(classNames))
	for _, name := range classNames {
		spec, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	// Deterministic order regardless of the order the caller named
	// the classes in.
	sort.Slice(specs, func(i, j int) bool {
		return foldAttr(specs[i].Name) < foldAttr(specs[j].Name)
	})

	sorted := make([]string, len(specs))
	keyParts := make([]string, len(specs))
	for i, spec := range specs {
		sorted[i] = spec.Name
		keyParts[i] = foldAttr(spec.Name)
	}
	for i := 1; i < len(keyParts); i++ {
		if keyParts[i] == keyParts[i-1] {
			return nil, &SchemaError{Name: sorted[i], Reason: "object class named twice in build set"}
		}
	}
	key := strings.Join(keyParts, "\x00")

	r.mu.Lock()
	defer r.mu.Unlock()

	if et, ok := r.cache[key]; ok {
		return et, nil
	}

	et := &EntityType{
		classes: sorted,
		attrs:   make(map[string]attrBinding),
	}

	var conflicts *multierror.Error
	for _, spec := range specs {
		for _, attr := range spec.Attributes {
			low := foldAttr(attr.Name)
			existing, ok := et.attrs[low]
			if !ok {
				et.attrs[low] = attrBinding{spec: attr, class: spec.Name}
				continue
			}
			if !existing.spec.compatible(attr) {
				conflicts = multierror.Append(conflicts, fmt.Errorf(
					"attribute %q: %s defines %s %s, %s defines %s %s",
					attr.Name,
					existing.class, cardinality(existing.spec), existing.spec.Syntax,
					spec.Name, cardinality(attr), attr.Syntax))
				continue
			}
			// Required anywhere means required for the union.
			if attr.Required && !existing.spec.Required {
				existing.spec.Required = true
				et.attrs[low] = existing
			}
		}
	}

	if conflicts != nil {
		return nil, &SchemaConflictError{Classes: sorted, Detail: conflicts.ErrorOrNil()}
	}

	et.names = make([]string, 0, len(et.attrs))
	for _, binding := range et.attrs {
		et.names = append(et.names, binding.spec.Name)
	}
	sort.Strings(et.names)

	r.frozen = true
	r.cache[key] = et
	r.logger.Debug("built entity type", map[string]any{
		"classes":    strings.Join(sorted, ","),
		"attributes": len(et.names),
	})
	return et, nil
}

func cardinality(spec AttributeSpec) string {
	if spec.SingleValue {
		return "single-valued"
	}
	return "multi-valued"
}

// ObjectClasses returns the class names of the entity type, sorted.
func (t *EntityType) ObjectClasses() []string {
	out := make([]string, len(t.classes))
	copy(out, t.classes)
	return out
}

// AttributeNames returns the canonical names of every attribute the
// entity type exposes, sorted.
func (t *EntityType) AttributeNames() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Spec returns the attribute spec for name, case-insensitively.
func (t *EntityType) Spec(name string) (AttributeSpec, bool) {
	binding, ok := t.attrs[foldAttr(name)]
	return binding.spec, ok
}

// RequiredAttributes returns the names of attributes required across
// the union, sorted.
func (t *EntityType) RequiredAttributes() []string {
	var required []string
	for _, name := range t.names {
		if spec, _ := t.Spec(name); spec.Required {
			required = append(required, name)
		}
	}
	return required
}

// Equal reports structural equality: the same class set exposing the
// same attribute specs. This, not pointer identity, is the contract
// callers may rely on across builds.
func (t *EntityType) Equal(other *EntityType) bool {
	if t == nil || other == nil {
		return t == other
	}
	if len(t.classes) != len(other.classes) || len(t.names) != len(other.names) {
		return false
	}
	for i := range t.classes {
		if !strings.EqualFold(t.classes[i], other.classes[i]) {
			return false
		}
	}
	for low, binding := range t.attrs {
		ob, ok := other.attrs[low]
		if !ok || ob.spec != binding.spec {
			return false
		}
	}
	return true
}

func (t *EntityType) String() string {
	return "EntityType(" + strings.Join(t.classes, "+") + ")"
}
