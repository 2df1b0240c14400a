package server

import (
	"fmt"
	"math"

	"github.com/ternstore/ternstore/internal/query"
	"github.com/ternstore/ternstore/internal/store"
	"github.com/ternstore/ternstore/internal/term"
	"github.com/ternstore/ternstore/pkg/rdf"
)

// queryRequest is the wire form of an already-built query plan plus
// the selected variable names.
type queryRequest struct {
	Variables []string  `json:"variables"`
	Root      *planNode `json:"root"`
	Select    []string  `json:"select"`
}

// planNode is the JSON form of one plan tree node, tagged by Type
type planNode struct {
	Type string `json:"type"`

	// triple_pattern
	Subject   *termValue `json:"subject,omitempty"`
	Predicate *termValue `json:"predicate,omitempty"`
	Object    *termValue `json:"object,omitempty"`

	// for_loop_join, cartesian_product_join
	Left  *planNode `json:"left,omitempty"`
	Right *planNode `json:"right,omitempty"`

	// skip, limit
	Child *planNode `json:"child,omitempty"`
	Count int       `json:"count,omitempty"`
}

// termValue is the JSON form of a pattern part or an inserted term:
// exactly one field is set.
type termValue struct {
	Variable string        `json:"variable,omitempty"`
	IRI      string        `json:"iri,omitempty"`
	Blank    string        `json:"blank,omitempty"`
	Literal  *literalValue `json:"literal,omitempty"`
}

type literalValue struct {
	Value    string `json:"value"`
	Language string `json:"language,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// tripleRequest is the wire form of triples to insert or delete
type tripleRequest struct {
	Triples []struct {
		Subject   termValue `json:"subject"`
		Predicate termValue `json:"predicate"`
		Object    termValue `json:"object"`
	} `json:"triples"`
}

func (r *tripleRequest) toTriples() ([]*rdf.Triple, error) {
	triples := make([]*rdf.Triple, 0, len(r.Triples))
	for _, t := range r.Triples {
		subject, err := t.Subject.toTerm()
		if err != nil {
			return nil, fmt.Errorf("invalid subject: %w", err)
		}
		predicate, err := t.Predicate.toTerm()
		if err != nil {
			return nil, fmt.Errorf("invalid predicate: %w", err)
		}
		object, err := t.Object.toTerm()
		if err != nil {
			return nil, fmt.Errorf("invalid object: %w", err)
		}
		triples = append(triples, rdf.NewTriple(subject, predicate, object))
	}
	return triples, nil
}

func (v *termValue) toTerm() (rdf.Term, error) {
	switch {
	case v.IRI != "":
		return rdf.NewNamedNode(v.IRI), nil
	case v.Blank != "":
		return rdf.NewBlankNode(v.Blank), nil
	case v.Literal != nil:
		switch {
		case v.Literal.Language != "":
			return rdf.NewLiteralWithLanguage(v.Literal.Value, v.Literal.Language), nil
		case v.Literal.Datatype != "":
			return rdf.NewLiteralWithDatatype(v.Literal.Value, rdf.NewNamedNode(v.Literal.Datatype)), nil
		default:
			return rdf.NewLiteral(v.Literal.Value), nil
		}
	case v.Variable != "":
		return nil, fmt.Errorf("variables are not allowed here")
	default:
		return nil, fmt.Errorf("empty term")
	}
}

// planBuilder converts the wire plan into an engine plan, resolving
// constant IRIs against the interned namespaces.
type planBuilder struct {
	reader *store.Reader
	slots  map[string]int
}

// unknownNamespace marks constants whose namespace the store has
// never interned. Namespace keys are assigned sequentially, so this
// key matches no stored triple and the pattern naturally yields
// nothing.
const unknownNamespace = math.MaxUint64

func buildPlan(reader *store.Reader, req *queryRequest) (query.Plan, error) {
	if req.Root == nil {
		return query.Plan{}, fmt.Errorf("missing plan root")
	}

	slots := make(map[string]int, len(req.Variables))
	for i, name := range req.Variables {
		if _, exists := slots[name]; exists {
			return query.Plan{}, fmt.Errorf("duplicate variable %q", name)
		}
		slots[name] = i
	}

	b := &planBuilder{reader: reader, slots: slots}
	root, err := b.buildNode(req.Root)
	if err != nil {
		return query.Plan{}, err
	}

	return query.Plan{Entrypoint: root, Variables: req.Variables}, nil
}

func (b *planBuilder) buildNode(n *planNode) (query.Node, error) {
	switch n.Type {
	case "triple_pattern":
		subject, err := b.buildSubject(n.Subject)
		if err != nil {
			return nil, err
		}
		predicate, err := b.buildPredicate(n.Predicate)
		if err != nil {
			return nil, err
		}
		object, err := b.buildObject(n.Object)
		if err != nil {
			return nil, err
		}
		return query.TriplePatternNode{Subject: subject, Predicate: predicate, Object: object}, nil

	case "for_loop_join", "cartesian_product_join":
		if n.Left == nil || n.Right == nil {
			return nil, fmt.Errorf("%s requires left and right", n.Type)
		}
		left, err := b.buildNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.buildNode(n.Right)
		if err != nil {
			return nil, err
		}
		if n.Type == "for_loop_join" {
			return query.ForLoopJoinNode{Left: left, Right: right}, nil
		}
		return query.CartesianProductJoinNode{Left: left, Right: right}, nil

	case "skip", "limit":
		if n.Child == nil {
			return nil, fmt.Errorf("%s requires a child", n.Type)
		}
		child, err := b.buildNode(n.Child)
		if err != nil {
			return nil, err
		}
		if n.Type == "skip" {
			return query.SkipNode{Child: child, First: n.Count}, nil
		}
		return query.LimitNode{Child: child, First: n.Count}, nil

	default:
		return nil, fmt.Errorf("unknown plan node type %q", n.Type)
	}
}

func (b *planBuilder) buildSubject(v *termValue) (query.PatternValue[term.Subject], error) {
	var zero query.PatternValue[term.Subject]
	if v == nil {
		return zero, fmt.Errorf("missing subject")
	}

	switch {
	case v.Variable != "":
		slot, err := b.slot(v.Variable)
		if err != nil {
			return zero, err
		}
		return query.Variable[term.Subject](slot), nil
	case v.IRI != "":
		node, err := b.node(v.IRI)
		if err != nil {
			return zero, err
		}
		return query.Constant(term.NamedSubject(node)), nil
	case v.Blank != "":
		return query.Constant(term.BlankSubject(v.Blank)), nil
	default:
		return zero, fmt.Errorf("subject must be a variable, IRI or blank node")
	}
}

func (b *planBuilder) buildPredicate(v *termValue) (query.PatternValue[term.Node], error) {
	var zero query.PatternValue[term.Node]
	if v == nil {
		return zero, fmt.Errorf("missing predicate")
	}

	switch {
	case v.Variable != "":
		slot, err := b.slot(v.Variable)
		if err != nil {
			return zero, err
		}
		return query.Variable[term.Node](slot), nil
	case v.IRI != "":
		node, err := b.node(v.IRI)
		if err != nil {
			return zero, err
		}
		return query.Constant(node), nil
	default:
		return zero, fmt.Errorf("predicate must be a variable or IRI")
	}
}

func (b *planBuilder) buildObject(v *termValue) (query.PatternValue[term.Object], error) {
	var zero query.PatternValue[term.Object]
	if v == nil {
		return zero, fmt.Errorf("missing object")
	}

	switch {
	case v.Variable != "":
		slot, err := b.slot(v.Variable)
		if err != nil {
			return zero, err
		}
		return query.Variable[term.Object](slot), nil
	case v.IRI != "":
		node, err := b.node(v.IRI)
		if err != nil {
			return zero, err
		}
		return query.Constant(term.NamedObject(node)), nil
	case v.Blank != "":
		return query.Constant(term.BlankObject(v.Blank)), nil
	case v.Literal != nil:
		lit, err := b.literal(v.Literal)
		if err != nil {
			return zero, err
		}
		return query.Constant(term.LiteralObject(lit)), nil
	default:
		return zero, fmt.Errorf("empty object")
	}
}

func (b *planBuilder) literal(v *literalValue) (term.Literal, error) {
	switch {
	case v.Language != "":
		return term.I18NLiteral(v.Value, v.Language), nil
	case v.Datatype != "":
		node, err := b.node(v.Datatype)
		if err != nil {
			return term.Literal{}, err
		}
		return term.TypedLiteral(v.Value, node), nil
	default:
		return term.SimpleLiteral(v.Value), nil
	}
}

func (b *planBuilder) slot(name string) (int, error) {
	slot, ok := b.slots[name]
	if !ok {
		return 0, fmt.Errorf("undeclared variable %q", name)
	}
	return slot, nil
}

func (b *planBuilder) node(iri string) (term.Node, error) {
	prefix, value, err := term.SplitIRI(iri)
	if err != nil {
		return term.Node{}, err
	}

	key, err := b.reader.NamespaceKey(prefix)
	if err == store.ErrNamespaceNotFound {
		return term.Node{Namespace: unknownNamespace, Value: value}, nil
	}
	if err != nil {
		return term.Node{}, err
	}

	return term.Node{Namespace: key, Value: value}, nil
}
