package ldapmap

import (
	"fmt"
	"strings"
)

// AttributeTypeDefinition is a parsed RFC 4512 attribute type
// description.
type AttributeTypeDefinition struct {
	OID         string
	Names       []string
	Desc        string
	Sup         string
	SyntaxOID   string
	SingleValue bool
	Obsolete    bool
}

// ObjectClassDefinition is a parsed RFC 4512 object class description.
type ObjectClassDefinition struct {
	OID      string
	Names    []string
	Desc     string
	Sup      []string
	Must     []string
	May      []string
	Obsolete bool
}

// syntaxFromOID maps the RFC 4517 syntax OIDs the mapper distinguishes
// onto value syntaxes. Everything else validates as a directory string.
var syntaxFromOID = map[string]ValueSyntax{
	"1.3.6.1.4.1.1466.115.121.1.15": SyntaxDirectoryString,
	"1.3.6.1.4.1.1466.115.121.1.26": SyntaxIA5String,
	"1.3.6.1.4.1.1466.115.121.1.27": SyntaxInteger,
	"1.3.6.1.4.1.1466.115.121.1.7":  SyntaxBoolean,
	"1.3.6.1.4.1.1466.115.121.1.40": SyntaxOctetString,
	"1.3.6.1.4.1.1466.115.121.1.12": SyntaxDN,
	"1.3.6.1.4.1.1466.115.121.1.24": SyntaxGeneralizedTime,
}

// ParseAttributeTypeDefinition parses a definition of the form
//
//	( 2.5.4.4 NAME ( 'sn' 'surname' ) SUP name
//	  SYNTAX 1.3.6.1.4.1.1466.115.121.1.15 SINGLE-VALUE )
func ParseAttributeTypeDefinition(definition string) (AttributeTypeDefinition, error) {
	p, err := newDefinitionParser(definition)
	if err != nil {
		return AttributeTypeDefinition{}, err
	}

	def := AttributeTypeDefinition{OID: p.oid}
	for !p.done() {
		keyword := p.next()
		switch strings.ToUpper(keyword) {
		case "NAME":
			def.Names, err = p.nameList()
		case "DESC":
			def.Desc, err = p.quotedString()
		case "OBSOLETE":
			def.Obsolete = true
		case "SUP":
			def.Sup = p.next()
		case "SYNTAX":
			// A length suffix like {32768} is a size hint, not part
			// of the OID.
			oid := p.next()
			if i := strings.IndexByte(oid, '{'); i >= 0 {
				oid = oid[:i]
			}
			def.SyntaxOID = oid
		case "SINGLE-VALUE":
			def.SingleValue = true
		case "EQUALITY", "ORDERING", "SUBSTR", "USAGE":
			p.next() // matching rules and usage are not modeled
		case "COLLECTIVE", "NO-USER-MODIFICATION":
			// flags without arguments
		default:
			return AttributeTypeDefinition{}, p.fail("unexpected token %q", keyword)
		}
		if err != nil {
			return AttributeTypeDefinition{}, err
		}
	}

	if len(def.Names) == 0 && def.OID == "" {
		return AttributeTypeDefinition{}, p.fail("attribute type has neither OID nor NAME")
	}
	return def, nil
}

// ParseObjectClassDefinition parses a definition of the form
//
//	( 2.5.6.6 NAME 'person' SUP top STRUCTURAL
//	  MUST ( sn $ cn ) MAY ( userPassword $ telephoneNumber ) )
func ParseObjectClassDefinition(definition string) (ObjectClassDefinition, error) {
	p, err := newDefinitionParser(definition)
	if err != nil {
		return ObjectClassDefinition{}, err
	}

	def := ObjectClassDefinition{OID: p.oid}
	for !p.done() {
		keyword := p.next()
		switch strings.ToUpper(keyword) {
		case "NAME":
			def.Names, err = p.nameList()
		case "DESC":
			def.Desc, err = p.quotedString()
		case "OBSOLETE":
			def.Obsolete = true
		case "SUP":
			def.Sup, err = p.oidList()
		case "MUST":
			def.Must, err = p.oidList()
		case "MAY":
			def.May, err = p.oidList()
		case "ABSTRACT", "STRUCTURAL", "AUXILIARY":
			// class kind does not affect the attribute union
		default:
			return ObjectClassDefinition{}, p.fail("unexpected token %q", keyword)
		}
		if err != nil {
			return ObjectClassDefinition{}, err
		}
	}

	if len(def.Names) == 0 {
		return ObjectClassDefinition{}, p.fail("object class has no NAME")
	}
	return def, nil
}

// RegisterDefinitions parses attribute type and object class
// definition strings and registers the resulting object class specs.
// SUP references are resolved within the given definitions: attribute
// types inherit syntax and cardinality from their supertype, object
// classes flatten the MUST and MAY sets of their superclasses ("top"
// is implicit and contributes nothing).
func RegisterDefinitions(registry *Registry, attributeTypes, objectClasses []string) error {
	attrDefs := make(map[string]AttributeTypeDefinition)
	for _, s := range attributeTypes {
		def, err := ParseAttributeTypeDefinition(s)
		if err != nil {
			return err
		}
		for _, name := range def.Names {
			attrDefs[foldAttr(name)] = def
		}
	}

	classDefs := make(map[string]ObjectClassDefinition)
	var ordered []ObjectClassDefinition
	for _, s := range objectClasses {
		def, err := ParseObjectClassDefinition(s)
		if err != nil {
			return err
		}
		for _, name := range def.Names {
			classDefs[foldAttr(name)] = def
		}
		ordered = append(ordered, def)
	}

	for _, def := range ordered {
		spec, err := resolveClass(def, classDefs, attrDefs, make(map[string]bool))
		if err != nil {
			return err
		}
		if err := registry.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

// resolveClass flattens a class and its superclasses into one spec.
func resolveClass(def ObjectClassDefinition, classes map[string]ObjectClassDefinition, attrs map[string]AttributeTypeDefinition, visiting map[string]bool) (ObjectClassSpec, error) {
	name := def.Names[0]
	low := foldAttr(name)
	if visiting[low] {
		return ObjectClassSpec{}, &SchemaError{Name: name, Reason: "superclass cycle"}
	}
	visiting[low] = true
	defer delete(visiting, low)

	must := make(map[string]bool)
	may := make(map[string]bool)

	for _, sup := range def.Sup {
		if strings.EqualFold(sup, "top") {
			continue
		}
		supDef, ok := classes[foldAttr(sup)]
		if !ok {
			return ObjectClassSpec{}, &SchemaError{Name: name, Reason: fmt.Sprintf("superclass %q not among provided definitions", sup)}
		}
		supSpec, err := resolveClass(supDef, classes, attrs, visiting)
		if err != nil {
			return ObjectClassSpec{}, err
		}
		for _, a := range supSpec.Attributes {
			if a.Required {
				must[foldAttr(a.Name)] = true
			} else {
				may[foldAttr(a.Name)] = true
			}
		}
	}

	for _, a := range def.Must {
		must[foldAttr(a)] = true
	}
	for _, a := range def.May {
		may[foldAttr(a)] = true
	}

	spec := ObjectClassSpec{Name: name}
	appendAttr := func(attrName string, required bool) error {
		attrDef, ok := attrs[attrName]
		if !ok {
			return &SchemaError{Name: name, Reason: fmt.Sprintf("attribute type %q not among provided definitions", attrName)}
		}
		resolved, err := resolveAttribute(attrDef, attrs, make(map[string]bool))
		if err != nil {
			return err
		}
		resolved.Required = required
		spec.Attributes = append(spec.Attributes, resolved)
		return nil
	}

	for attrName := range must {
		if err := appendAttr(attrName, true); err != nil {
			return ObjectClassSpec{}, err
		}
	}
	for attrName := range may {
		if must[attrName] {
			continue
		}
		if err := appendAttr(attrName, false); err != nil {
			return ObjectClassSpec{}, err
		}
	}

	return spec.normalize(), nil
}

// resolveAttribute walks the supertype chain for syntax and
// cardinality.
func resolveAttribute(def AttributeTypeDefinition, attrs map[string]AttributeTypeDefinition, visiting map[string]bool) (AttributeSpec, error) {
	name := def.OID
	if len(def.Names) > 0 {
		name = def.Names[0]
	}

	syntaxOID := def.SyntaxOID
	single := def.SingleValue
	current := def
	for syntaxOID == "" && current.Sup != "" {
		low := foldAttr(current.Sup)
		if visiting[low] {
			return AttributeSpec{}, &SchemaError{Name: name, Reason: "attribute supertype cycle"}
		}
		visiting[low] = true
		sup, ok := attrs[low]
		if !ok {
			return AttributeSpec{}, &SchemaError{Name: name, Reason: fmt.Sprintf("supertype %q not among provided definitions", current.Sup)}
		}
		syntaxOID = sup.SyntaxOID
		single = single || sup.SingleValue
		current = sup
	}

	syntax, ok := syntaxFromOID[syntaxOID]
	if !ok {
		syntax = SyntaxDirectoryString
	}

	return AttributeSpec{Name: name, Syntax: syntax, SingleValue: single}, nil
}

// definitionParser tokenizes one parenthesized RFC 4512 definition.
type definitionParser struct {
	source string
	tokens []string
	pos    int
	oid    string
}

func newDefinitionParser(definition string) (*definitionParser, error) {
	p := &definitionParser{source: definition}
	if err := p.tokenize(); err != nil {
		return nil, err
	}

	if len(p.tokens) < 2 || p.tokens[0] != "(" || p.tokens[len(p.tokens)-1] != ")" {
		return nil, p.fail("definition must be parenthesized")
	}
	p.tokens = p.tokens[1 : len(p.tokens)-1]

	if p.done() {
		return nil, p.fail("empty definition")
	}
	p.oid = p.next()
	return p, nil
}

func (p *definitionParser) tokenize() error {
	s := p.source
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(' || c == ')' || c == '$':
			p.tokens = append(p.tokens, string(c))
			i++
		case c == '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return p.fail("unterminated quoted string")
			}
			// Keep the quotes so quoted tokens stay distinguishable.
			p.tokens = append(p.tokens, s[i:i+end+2])
			i += end + 2
		default:
			j := i
			for j < len(s) && !strings.ContainsRune(" \t\n\r()$'", rune(s[j])) {
				j++
			}
			p.tokens = append(p.tokens, s[i:j])
			i = j
		}
	}
	return nil
}

func (p *definitionParser) done() bool {
	return p.pos >= len(p.tokens)
}

func (p *definitionParser) next() string {
	if p.done() {
		return ""
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

func (p *definitionParser) peek() string {
	if p.done() {
		return ""
	}
	return p.tokens[p.pos]
}

// quotedString consumes one 'quoted' token.
func (p *definitionParser) quotedString() (string, error) {
	tok := p.next()
	if len(tok) < 2 || tok[0] != '\'' || tok[len(tok)-1] != '\'' {
		return "", p.fail("expected quoted string, got %q", tok)
	}
	return tok[1 : len(tok)-1], nil
}

// nameList consumes NAME's argument: either 'one' or ( 'a' 'b' ).
func (p *definitionParser) nameList() ([]string, error) {
	if p.peek() != "(" {
		name, err := p.quotedString()
		if err != nil {
			return nil, err
		}
		return []string{name}, nil
	}
	p.next()
	var names []string
	for p.peek() != ")" {
		if p.done() {
			return nil, p.fail("unterminated name list")
		}
		name, err := p.quotedString()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	p.next()
	if len(names) == 0 {
		return nil, p.fail("empty name list")
	}
	return names, nil
}

// oidList consumes either a single descriptor or ( a $ b $ c ).
func (p *definitionParser) oidList() ([]string, error) {
	if p.peek() != "(" {
		tok := p.next()
		if tok == "" {
			return nil, p.fail("expected oid")
		}
		return []string{tok}, nil
	}
	p.next()
	var oids []string
	expectOID := true
	for p.peek() != ")" {
		if p.done() {
			return nil, p.fail("unterminated oid list")
		}
		tok := p.next()
		if tok == "$" {
			if expectOID {
				return nil, p.fail("misplaced $ in oid list")
			}
			expectOID = true
			continue
		}
		if !expectOID {
			return nil, p.fail("expected $ between oids, got %q", tok)
		}
		oids = append(oids, tok)
		expectOID = false
	}
	p.next()
	if len(oids) == 0 {
		return nil, p.fail("empty oid list")
	}
	if expectOID {
		return nil, p.fail("trailing $ in oid list")
	}
	return oids, nil
}

func (p *definitionParser) fail(format string, args ...any) error {
	return &SchemaError{
		Name:   truncateDefinition(p.source),
		Reason: fmt.Sprintf(format, args...),
	}
}

func truncateDefinition(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
