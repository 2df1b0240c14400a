package query

import (
	"github.com/ternstore/ternstore/internal/term"
	"github.com/ternstore/ternstore/pkg/rdf"
)

// ResolvedKind discriminates which triple position a variable was
// bound from.
type ResolvedKind byte

const (
	ResolvedSubject ResolvedKind = iota + 1
	ResolvedPredicate
	ResolvedObject
)

// ResolvedVariable is a typed value bound to a variable slot
type ResolvedVariable struct {
	kind      ResolvedKind
	subject   term.Subject
	predicate term.Node
	object    term.Object
}

func BoundSubject(s term.Subject) ResolvedVariable {
	return ResolvedVariable{kind: ResolvedSubject, subject: s}
}

func BoundPredicate(p term.Node) ResolvedVariable {
	return ResolvedVariable{kind: ResolvedPredicate, predicate: p}
}

func BoundObject(o term.Object) ResolvedVariable {
	return ResolvedVariable{kind: ResolvedObject, object: o}
}

// AsSubject projects the bound value into subject position. Named and
// blank values convert; literals do not.
func (v ResolvedVariable) AsSubject() (term.Subject, bool) {
	switch v.kind {
	case ResolvedSubject:
		return v.subject, true
	case ResolvedPredicate:
		return term.NamedSubject(v.predicate), true
	case ResolvedObject:
		switch v.object.Kind {
		case term.ObjectNamed:
			return term.NamedSubject(v.object.Node), true
		case term.ObjectBlank:
			return term.BlankSubject(v.object.Blank), true
		}
	}
	return term.Subject{}, false
}

// AsPredicate projects the bound value into predicate position. Only
// named values convert.
func (v ResolvedVariable) AsPredicate() (term.Node, bool) {
	switch v.kind {
	case ResolvedSubject:
		if v.subject.Kind == term.SubjectNamed {
			return v.subject.Node, true
		}
	case ResolvedPredicate:
		return v.predicate, true
	case ResolvedObject:
		if v.object.Kind == term.ObjectNamed {
			return v.object.Node, true
		}
	}
	return term.Node{}, false
}

// AsObject projects the bound value into object position
func (v ResolvedVariable) AsObject() (term.Object, bool) {
	switch v.kind {
	case ResolvedSubject:
		switch v.subject.Kind {
		case term.SubjectNamed:
			return term.NamedObject(v.subject.Node), true
		case term.SubjectBlank:
			return term.BlankObject(v.subject.Blank), true
		}
	case ResolvedPredicate:
		return term.NamedObject(v.predicate), true
	case ResolvedObject:
		return v.object, true
	}
	return term.Object{}, false
}

// Equal reports whether two bound values are the same variant holding
// the same value.
func (v ResolvedVariable) Equal(other ResolvedVariable) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ResolvedSubject:
		return v.subject.Equal(other.subject)
	case ResolvedPredicate:
		return v.predicate.Equal(other.predicate)
	case ResolvedObject:
		return v.object.Equal(other.object)
	}
	return false
}

// Term converts the bound value to its external representation,
// resolving namespace keys through resolve.
func (v ResolvedVariable) Term(resolve func(uint64) (string, error)) (rdf.Term, error) {
	switch v.kind {
	case ResolvedSubject:
		switch v.subject.Kind {
		case term.SubjectNamed:
			return nodeTerm(v.subject.Node, resolve)
		case term.SubjectBlank:
			return rdf.NewBlankNode(v.subject.Blank), nil
		}
	case ResolvedPredicate:
		return nodeTerm(v.predicate, resolve)
	case ResolvedObject:
		switch v.object.Kind {
		case term.ObjectNamed:
			return nodeTerm(v.object.Node, resolve)
		case term.ObjectBlank:
			return rdf.NewBlankNode(v.object.Blank), nil
		case term.ObjectLiteral:
			return literalTerm(v.object.Literal, resolve)
		}
	}
	return nil, ErrUnboundVariable
}

func nodeTerm(n term.Node, resolve func(uint64) (string, error)) (rdf.Term, error) {
	prefix, err := resolve(n.Namespace)
	if err != nil {
		return nil, err
	}
	return rdf.NewNamedNode(prefix + n.Value), nil
}

func literalTerm(l term.Literal, resolve func(uint64) (string, error)) (rdf.Term, error) {
	switch l.Kind {
	case term.LiteralI18N:
		return rdf.NewLiteralWithLanguage(l.Value, l.Language), nil
	case term.LiteralTyped:
		prefix, err := resolve(l.Datatype.Namespace)
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteralWithDatatype(l.Value, rdf.NewNamedNode(prefix+l.Datatype.Value)), nil
	default:
		return rdf.NewLiteral(l.Value), nil
	}
}

// ResolvedVariables is the binding frame of one evaluation path: a
// plan-sized sequence of optional slots. A slot, once set on a path,
// is never unset; joins clone the frame at each branch point.
type ResolvedVariables struct {
	slots []*ResolvedVariable
}

// NewResolvedVariables creates an empty frame with the given capacity
func NewResolvedVariables(capacity int) ResolvedVariables {
	return ResolvedVariables{slots: make([]*ResolvedVariable, capacity)}
}

// Clone returns an independent copy of the frame. Slot values are
// shared; they are immutable once set.
func (rv ResolvedVariables) Clone() ResolvedVariables {
	slots := make([]*ResolvedVariable, len(rv.slots))
	copy(slots, rv.slots)
	return ResolvedVariables{slots: slots}
}

// Set binds a slot
func (rv ResolvedVariables) Set(slot int, v ResolvedVariable) {
	rv.slots[slot] = &v
}

// Get returns the value bound to a slot, if any
func (rv ResolvedVariables) Get(slot int) (ResolvedVariable, bool) {
	if slot < 0 || slot >= len(rv.slots) || rv.slots[slot] == nil {
		return ResolvedVariable{}, false
	}
	return *rv.slots[slot], true
}

// MergeWith combines two frames into their union. The merge succeeds
// only if every slot bound in both frames holds equal values.
func (rv ResolvedVariables) MergeWith(other ResolvedVariables) (ResolvedVariables, bool) {
	merged := rv.Clone()
	for i, v := range other.slots {
		if v == nil {
			continue
		}
		if existing := merged.slots[i]; existing != nil {
			if !existing.Equal(*v) {
				return ResolvedVariables{}, false
			}
			continue
		}
		merged.slots[i] = v
	}
	return merged, true
}
