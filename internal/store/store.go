package store

import (
	"fmt"

	"github.com/ternstore/ternstore/internal/encoding"
	"github.com/ternstore/ternstore/internal/storage"
	"github.com/ternstore/ternstore/internal/term"
	"github.com/ternstore/ternstore/pkg/rdf"
)

// TripleStore manages the triple set over two indexes: a primary one
// keyed by (object hash, predicate, subject) and a secondary one keyed
// by (subject, predicate, object hash). Both hold the encoded triple
// as their value.
type TripleStore struct {
	storage storage.Storage
}

// NewTripleStore creates a new triplestore
func NewTripleStore(storage storage.Storage) *TripleStore {
	return &TripleStore{storage: storage}
}

// Close closes the triplestore
func (s *TripleStore) Close() error {
	return s.storage.Close()
}

// Insert stores the given triples, interning the namespaces of every
// named node along the way.
func (s *TripleStore) Insert(triples []*rdf.Triple) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	for _, triple := range triples {
		t, err := internTriple(txn, triple)
		if err != nil {
			return err
		}

		value := encoding.MarshalTriple(t)
		if err := txn.Set(storage.TableTriples, encoding.TripleKey(t), value); err != nil {
			return err
		}
		if err := txn.Set(storage.TableSubjectIndex, encoding.SubjectIndexKey(t), value); err != nil {
			return err
		}
	}

	return txn.Commit()
}

// Delete removes the given triples. Triples referencing namespaces the
// store has never seen cannot exist and are skipped. Namespace records
// are kept; they may be referenced by other triples.
func (s *TripleStore) Delete(triples []*rdf.Triple) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	for _, triple := range triples {
		t, err := resolveTriple(txn, triple)
		if err == ErrNamespaceNotFound {
			continue
		}
		if err != nil {
			return err
		}

		if err := txn.Delete(storage.TableTriples, encoding.TripleKey(t)); err != nil {
			return err
		}
		if err := txn.Delete(storage.TableSubjectIndex, encoding.SubjectIndexKey(t)); err != nil {
			return err
		}
	}

	return txn.Commit()
}

// Count returns the number of stored triples
func (s *TripleStore) Count() (uint64, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	it, err := txn.Scan(storage.TableTriples, nil)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	count := uint64(0)
	for it.Next() {
		count++
	}

	return count, nil
}

// Reader opens a read-only snapshot of the store. The snapshot stays
// consistent until closed; one query evaluation borrows one reader.
func (s *TripleStore) Reader() (*Reader, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	return &Reader{txn: txn}, nil
}

// Reader is a read-only view over the triple and namespace tables
type Reader struct {
	txn storage.Transaction
}

// Namespace resolves an interned namespace key to its IRI prefix.
// Returns ErrNamespaceNotFound for unknown keys.
func (r *Reader) Namespace(key uint64) (string, error) {
	return lookupNamespace(r.txn, key)
}

// NamespaceKey resolves an IRI prefix to its interned key. Returns
// ErrNamespaceNotFound for prefixes the store has never interned.
func (r *Reader) NamespaceKey(prefix string) (uint64, error) {
	return lookupNamespaceKey(r.txn, prefix)
}

// Close releases the snapshot
func (r *Reader) Close() error {
	return r.txn.Rollback()
}

// internTriple converts an external triple to its stored form,
// interning namespaces as needed.
func internTriple(txn storage.Transaction, triple *rdf.Triple) (term.Triple, error) {
	return convertTriple(txn, triple, internNamespace)
}

// resolveTriple converts an external triple using only namespaces that
// already exist.
func resolveTriple(txn storage.Transaction, triple *rdf.Triple) (term.Triple, error) {
	return convertTriple(txn, triple, lookupNamespaceKey)
}

func convertTriple(
	txn storage.Transaction,
	triple *rdf.Triple,
	namespaceKey func(storage.Transaction, string) (uint64, error),
) (term.Triple, error) {
	var t term.Triple

	subject, err := convertSubject(txn, triple.Subject, namespaceKey)
	if err != nil {
		return t, fmt.Errorf("failed to convert subject: %w", err)
	}

	predicate, err := convertPredicate(txn, triple.Predicate, namespaceKey)
	if err != nil {
		return t, fmt.Errorf("failed to convert predicate: %w", err)
	}

	object, err := convertObject(txn, triple.Object, namespaceKey)
	if err != nil {
		return t, fmt.Errorf("failed to convert object: %w", err)
	}

	return term.Triple{Subject: subject, Predicate: predicate, Object: object}, nil
}

func convertSubject(
	txn storage.Transaction,
	t rdf.Term,
	namespaceKey func(storage.Transaction, string) (uint64, error),
) (term.Subject, error) {
	switch v := t.(type) {
	case *rdf.NamedNode:
		node, err := convertNode(txn, v.IRI, namespaceKey)
		if err != nil {
			return term.Subject{}, err
		}
		return term.NamedSubject(node), nil
	case *rdf.BlankNode:
		return term.BlankSubject(v.ID), nil
	default:
		return term.Subject{}, fmt.Errorf("%s cannot be used as subject", t)
	}
}

func convertPredicate(
	txn storage.Transaction,
	t rdf.Term,
	namespaceKey func(storage.Transaction, string) (uint64, error),
) (term.Node, error) {
	named, ok := t.(*rdf.NamedNode)
	if !ok {
		return term.Node{}, fmt.Errorf("%s cannot be used as predicate", t)
	}
	return convertNode(txn, named.IRI, namespaceKey)
}

func convertObject(
	txn storage.Transaction,
	t rdf.Term,
	namespaceKey func(storage.Transaction, string) (uint64, error),
) (term.Object, error) {
	switch v := t.(type) {
	case *rdf.NamedNode:
		node, err := convertNode(txn, v.IRI, namespaceKey)
		if err != nil {
			return term.Object{}, err
		}
		return term.NamedObject(node), nil
	case *rdf.BlankNode:
		return term.BlankObject(v.ID), nil
	case *rdf.Literal:
		lit, err := convertLiteral(txn, v, namespaceKey)
		if err != nil {
			return term.Object{}, err
		}
		return term.LiteralObject(lit), nil
	default:
		return term.Object{}, fmt.Errorf("%s cannot be used as object", t)
	}
}

func convertLiteral(
	txn storage.Transaction,
	l *rdf.Literal,
	namespaceKey func(storage.Transaction, string) (uint64, error),
) (term.Literal, error) {
	switch {
	case l.Language != "":
		return term.I18NLiteral(l.Value, l.Language), nil
	case l.Datatype != nil:
		datatype, err := convertNode(txn, l.Datatype.IRI, namespaceKey)
		if err != nil {
			return term.Literal{}, err
		}
		return term.TypedLiteral(l.Value, datatype), nil
	default:
		return term.SimpleLiteral(l.Value), nil
	}
}

func convertNode(
	txn storage.Transaction,
	iri string,
	namespaceKey func(storage.Transaction, string) (uint64, error),
) (term.Node, error) {
	prefix, value, err := term.SplitIRI(iri)
	if err != nil {
		return term.Node{}, err
	}

	key, err := namespaceKey(txn, prefix)
	if err != nil {
		return term.Node{}, err
	}

	return term.Node{Namespace: key, Value: value}, nil
}
