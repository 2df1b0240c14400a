package term

import (
	"fmt"
	"strings"
)

// Node is a named node whose IRI is split into an interned namespace
// prefix (referenced by numeric key) and a local value.
type Node struct {
	Namespace uint64
	Value     string
}

func (n Node) Equal(other Node) bool {
	return n.Namespace == other.Namespace && n.Value == other.Value
}

// SubjectKind discriminates the Subject variants
type SubjectKind byte

const (
	SubjectNamed SubjectKind = iota + 1
	SubjectBlank
)

// Subject is either a named node or a blank node
type Subject struct {
	Kind  SubjectKind
	Node  Node
	Blank string
}

func NamedSubject(node Node) Subject {
	return Subject{Kind: SubjectNamed, Node: node}
}

func BlankSubject(id string) Subject {
	return Subject{Kind: SubjectBlank, Blank: id}
}

func (s Subject) Equal(other Subject) bool {
	if s.Kind != other.Kind {
		return false
	}
	switch s.Kind {
	case SubjectNamed:
		return s.Node.Equal(other.Node)
	case SubjectBlank:
		return s.Blank == other.Blank
	}
	return false
}

// LiteralKind discriminates the Literal variants
type LiteralKind byte

const (
	LiteralSimple LiteralKind = iota + 1
	LiteralI18N
	LiteralTyped
)

// Literal is a simple, language-tagged or datatyped literal value
type Literal struct {
	Kind     LiteralKind
	Value    string
	Language string
	Datatype Node
}

func SimpleLiteral(value string) Literal {
	return Literal{Kind: LiteralSimple, Value: value}
}

func I18NLiteral(value, language string) Literal {
	return Literal{Kind: LiteralI18N, Value: value, Language: language}
}

func TypedLiteral(value string, datatype Node) Literal {
	return Literal{Kind: LiteralTyped, Value: value, Datatype: datatype}
}

func (l Literal) Equal(other Literal) bool {
	if l.Kind != other.Kind || l.Value != other.Value {
		return false
	}
	switch l.Kind {
	case LiteralI18N:
		return l.Language == other.Language
	case LiteralTyped:
		return l.Datatype.Equal(other.Datatype)
	}
	return true
}

// ObjectKind discriminates the Object variants
type ObjectKind byte

const (
	ObjectNamed ObjectKind = iota + 1
	ObjectBlank
	ObjectLiteral
)

// Object is a named node, a blank node or a literal
type Object struct {
	Kind    ObjectKind
	Node    Node
	Blank   string
	Literal Literal
}

func NamedObject(node Node) Object {
	return Object{Kind: ObjectNamed, Node: node}
}

func BlankObject(id string) Object {
	return Object{Kind: ObjectBlank, Blank: id}
}

func LiteralObject(lit Literal) Object {
	return Object{Kind: ObjectLiteral, Literal: lit}
}

func (o Object) Equal(other Object) bool {
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind {
	case ObjectNamed:
		return o.Node.Equal(other.Node)
	case ObjectBlank:
		return o.Blank == other.Blank
	case ObjectLiteral:
		return o.Literal.Equal(other.Literal)
	}
	return false
}

// Triple is an immutable RDF statement. The predicate is always a
// named node.
type Triple struct {
	Subject   Subject
	Predicate Node
	Object    Object
}

func (t Triple) Equal(other Triple) bool {
	return t.Subject.Equal(other.Subject) &&
		t.Predicate.Equal(other.Predicate) &&
		t.Object.Equal(other.Object)
}

// SplitIRI splits a full IRI into a namespace prefix and a local value.
// The split point is after the last '#' or '/', whichever comes last.
func SplitIRI(iri string) (string, string, error) {
	idx := strings.LastIndexAny(iri, "#/")
	if idx < 0 || idx == len(iri)-1 {
		return "", "", fmt.Errorf("invalid IRI %q: no namespace separator", iri)
	}
	return iri[:idx+1], iri[idx+1:], nil
}
