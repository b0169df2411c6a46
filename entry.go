package ldapmap

import (
	"slices"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"
)

// operationalAttributes are server-maintained attributes that appear in
// directory records but belong to no registered object class. They are
// skipped when materializing, never writable.
var operationalAttributes = map[string]bool{
	"entrydn":               true,
	"entryuuid":             true,
	"entrycsn":              true,
	"contextcsn":            true,
	"subschemasubentry":     true,
	"structuralobjectclass": true,
	"hassubordinates":       true,
	"creatorsname":          true,
	"createtimestamp":       true,
	"modifiersname":         true,
	"modifytimestamp":       true,
}

// Entry is a runtime instance of an EntityType: an attribute mapping, a
// distinguished name (optional until save), and the set of attributes
// changed since load or last save. Entries are created by NewEntry or
// materialized from directory records, mutated only through Set, and
// are not safe for concurrent mutation.
type Entry struct {
	entityType *EntityType
	dn         string
	attrs      map[string][]string // keyed by folded attribute name
	dirty      map[string]bool
	exists     bool // true once loaded from or saved to the directory
}

// NewEntry creates an unsaved entry of the given type. The dn may be
// empty and supplied later via SetDN or PlaceUnder.
func NewEntry(entityType *EntityType, dn string) (*Entry, error) {
	if entityType == nil {
		return nil, &SchemaError{Reason: "entry needs an entity type"}
	}
	if dn != "" {
		if err := ValidateDN(dn); err != nil {
			return nil, err
		}
	}
	return &Entry{
		entityType: entityType,
		dn:         dn,
		attrs:      make(map[string][]string),
		dirty:      make(map[string]bool),
	}, nil
}

// MaterializeEntry creates an entry representing directory truth: its
// dirty set starts empty. Operational attributes and the objectClass
// attribute itself are skipped; any other attribute the entity type
// does not define fails with UnknownAttributeError.
func MaterializeEntry(entityType *EntityType, dn string, attrs map[string][]string) (*Entry, error) {
	if entityType == nil {
		return nil, &SchemaError{Reason: "entry needs an entity type"}
	}
	if err := ValidateDN(dn); err != nil {
		return nil, err
	}

	e := &Entry{
		entityType: entityType,
		dn:         dn,
		attrs:      make(map[string][]string, len(attrs)),
		dirty:      make(map[string]bool),
		exists:     true,
	}

	for name, values := range attrs {
		low := foldAttr(name)
		if low == "objectclass" || operationalAttributes[low] {
			continue
		}
		spec, ok := entityType.Spec(name)
		if !ok {
			return nil, &UnknownAttributeError{Attribute: name, Classes: entityType.ObjectClasses()}
		}
		if spec.SingleValue && len(values) > 1 {
			return nil, &ValueArityError{Attribute: spec.Name, Count: len(values)}
		}
		if len(values) == 0 {
			continue
		}
		e.attrs[low] = normalizeValues(values)
	}

	return e, nil
}

// EntityType returns the type this entry is an instance of.
func (e *Entry) EntityType() *EntityType {
	return e.entityType
}

// DN returns the entry's distinguished name, empty if unplaced.
func (e *Entry) DN() string {
	return e.dn
}

// SetDN places the entry at dn.
func (e *Entry) SetDN(dn string) error {
	if err := ValidateDN(dn); err != nil {
		return err
	}
	e.dn = dn
	return nil
}

// PlaceUnder places the entry below parentDN, forming the RDN from the
// entry's value of rdnAttribute with RFC 4514 escaping applied.
func (e *Entry) PlaceUnder(parentDN, rdnAttribute string) error {
	values, err := e.Get(rdnAttribute)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return &IncompleteEntryError{Reason: "attribute " + strconv.Quote(rdnAttribute) + " has no value to form an RDN from"}
	}
	return e.SetDN(FormatRDN(rdnAttribute, values[0]) + "," + parentDN)
}

// IsNew reports whether the entry has never been saved to (or loaded
// from) the directory.
func (e *Entry) IsNew() bool {
	return !e.exists
}

// Set assigns values to an attribute, validating against the entity
// type's specs. Passing no values clears the attribute. The attribute
// joins the dirty set only if the new values differ from the current
// ones (value equality, order-insensitive).
func (e *Entry) Set(name string, values ...string) error {
	spec, ok := e.entityType.Spec(name)
	if !ok {
		return &UnknownAttributeError{Attribute: name, Classes: e.entityType.ObjectClasses()}
	}
	if spec.SingleValue && len(values) > 1 {
		return &ValueArityError{Attribute: spec.Name, Count: len(values)}
	}
	for _, v := range values {
		if err := validateValue(spec, v); err != nil {
			return err
		}
	}

	low := foldAttr(spec.Name)
	next := normalizeValues(values)
	if slices.Equal(e.attrs[low], next) {
		return nil
	}

	if len(next) == 0 {
		if _, had := e.attrs[low]; !had {
			return nil
		}
		delete(e.attrs, low)
	} else {
		e.attrs[low] = next
	}
	e.dirty[low] = true
	return nil
}

// Get returns a copy of the attribute's values; absent attributes
// yield an empty slice.
func (e *Entry) Get(name string) ([]string, error) {
	spec, ok := e.entityType.Spec(name)
	if !ok {
		return nil, &UnknownAttributeError{Attribute: name, Classes: e.entityType.ObjectClasses()}
	}
	return slices.Clone(e.attrs[foldAttr(spec.Name)]), nil
}

// First returns the attribute's first value, or "" if unset.
func (e *Entry) First(name string) (string, error) {
	values, err := e.Get(name)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", nil
	}
	return values[0], nil
}

// Dirty returns the folded names of attributes changed since load or
// last save, sorted.
func (e *Entry) Dirty() []string {
	names := make([]string, 0, len(e.dirty))
	for name := range e.dirty {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarkSaved clears the dirty set. Call it only after a save
// operation's Result reports success; the operation holds a snapshot
// and cannot do it for you.
func (e *Entry) MarkSaved() {
	e.dirty = make(map[string]bool)
	e.exists = true
}

// missingRequired returns the required attributes without a value,
// sorted by canonical name.
func (e *Entry) missingRequired() []string {
	var missing []string
	for _, name := range e.entityType.RequiredAttributes() {
		if len(e.attrs[foldAttr(name)]) == 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// snapshotAttrs deep-copies attribute values. When dirtyOnly is set,
// only attributes in the dirty set are carried; cleared attributes
// appear with an empty value slice so a modify can delete them.
func (e *Entry) snapshotAttrs(dirtyOnly bool) map[string][]string {
	out := make(map[string][]string)
	if dirtyOnly {
		for low := range e.dirty {
			out[low] = slices.Clone(e.attrs[low])
		}
		return out
	}
	for low, values := range e.attrs {
		out[low] = slices.Clone(values)
	}
	return out
}

// normalizeValues copies and sorts multi-values so comparison is
// order-insensitive; LDAP attribute values form a set.
func normalizeValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := slices.Clone(values)
	sort.Strings(out)
	return slices.Compact(out)
}

// generalizedTimeLayout is the RFC 4517 GeneralizedTime form without
// fractional seconds.
const generalizedTimeLayout = "20060102150405Z"

// validateValue checks a value against the attribute's declared syntax.
func validateValue(spec AttributeSpec, value string) error {
	switch spec.Syntax {
	case SyntaxInteger:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return &ValueSyntaxError{Attribute: spec.Name, Value: value, Syntax: spec.Syntax}
		}
	case SyntaxBoolean:
		if value != "TRUE" && value != "FALSE" {
			return &ValueSyntaxError{Attribute: spec.Name, Value: value, Syntax: spec.Syntax}
		}
	case SyntaxDN:
		if err := ValidateDN(value); err != nil {
			return &ValueSyntaxError{Attribute: spec.Name, Value: value, Syntax: spec.Syntax}
		}
	case SyntaxGeneralizedTime:
		if _, err := time.Parse(generalizedTimeLayout, value); err != nil {
			return &ValueSyntaxError{Attribute: spec.Name, Value: value, Syntax: spec.Syntax}
		}
	case SyntaxIA5String:
		for _, r := range value {
			if r > 127 {
				return &ValueSyntaxError{Attribute: spec.Name, Value: value, Syntax: spec.Syntax}
			}
		}
	case SyntaxDirectoryString:
		if !utf8.ValidString(value) {
			return &ValueSyntaxError{Attribute: spec.Name, Value: value, Syntax: spec.Syntax}
		}
	case SyntaxOctetString:
		// Any byte sequence is valid.
	}
	return nil
}
