package store

import (
	"github.com/ternstore/ternstore/internal/encoding"
	"github.com/ternstore/ternstore/internal/storage"
	"github.com/ternstore/ternstore/internal/term"
)

// TripleFilters holds the concrete values a pattern has fixed. A nil
// field means the position is free and will be bound from the scan.
type TripleFilters struct {
	Subject   *term.Subject
	Predicate *term.Node
	Object    *term.Object
}

// TripleIterator streams triples in ascending key order of the chosen
// index. Storage failures are elements of the stream: Next reports an
// element is available, Triple returns either the triple or the error
// that occurred producing it.
type TripleIterator interface {
	Next() bool
	Triple() (term.Triple, error)
	Close() error
}

// ScanPattern selects an access strategy from the bound positions and
// opens the matching scan. The choice depends only on which of
// subject, predicate and object are set:
//
//	S P O -> point lookup on the primary key
//	S P - -> secondary index prefix (subject, predicate)
//	- P O -> primary index prefix (object hash, predicate)
//	S - O -> secondary index prefix (subject), object equality filter
//	S - - -> secondary index prefix (subject)
//	- P - -> full primary scan, predicate equality filter
//	- - O -> primary index prefix (object hash)
//	- - - -> full primary scan
func (r *Reader) ScanPattern(f TripleFilters) TripleIterator {
	switch {
	case f.Subject != nil && f.Predicate != nil && f.Object != nil:
		return r.lookup(term.Triple{Subject: *f.Subject, Predicate: *f.Predicate, Object: *f.Object})

	case f.Subject != nil && f.Predicate != nil:
		return r.scan(storage.TableSubjectIndex, encoding.SubjectPredicatePrefix(*f.Subject, *f.Predicate), nil)

	case f.Predicate != nil && f.Object != nil:
		return r.scan(storage.TableTriples, encoding.ObjectPredicatePrefix(*f.Object, *f.Predicate), nil)

	case f.Subject != nil && f.Object != nil:
		// No combined subject+object index exists; filter in memory.
		key := encoding.SubjectKey(*f.Subject)
		object := *f.Object
		return r.scan(storage.TableSubjectIndex, key[:], func(t term.Triple) bool {
			return t.Object.Equal(object)
		})

	case f.Subject != nil:
		key := encoding.SubjectKey(*f.Subject)
		return r.scan(storage.TableSubjectIndex, key[:], nil)

	case f.Predicate != nil:
		predicate := *f.Predicate
		return r.scan(storage.TableTriples, nil, func(t term.Triple) bool {
			return t.Predicate.Equal(predicate)
		})

	case f.Object != nil:
		hash := encoding.ObjectHash(*f.Object)
		return r.scan(storage.TableTriples, hash[:], nil)

	default:
		return r.scan(storage.TableTriples, nil, nil)
	}
}

func (r *Reader) lookup(t term.Triple) TripleIterator {
	value, err := r.txn.Get(storage.TableTriples, encoding.TripleKey(t))
	if err == storage.ErrNotFound {
		return emptyIterator{}
	}
	if err != nil {
		return &onceIterator{err: err}
	}

	triple, err := encoding.UnmarshalTriple(value)
	if err != nil {
		return &onceIterator{err: err}
	}
	return &onceIterator{triple: triple}
}

func (r *Reader) scan(table storage.Table, prefix []byte, filter func(term.Triple) bool) TripleIterator {
	it, err := r.txn.Scan(table, prefix)
	if err != nil {
		return &onceIterator{err: err}
	}
	return &scanIterator{it: it, filter: filter}
}

// scanIterator decodes triples from a storage scan, applying an
// optional in-memory filter. Decode and read failures pass the filter
// and surface as stream elements.
type scanIterator struct {
	it      storage.Iterator
	filter  func(term.Triple) bool
	current term.Triple
	err     error
}

func (s *scanIterator) Next() bool {
	for s.it.Next() {
		value, err := s.it.Value()
		if err != nil {
			s.current, s.err = term.Triple{}, err
			return true
		}

		t, err := encoding.UnmarshalTriple(value)
		if err != nil {
			s.current, s.err = term.Triple{}, err
			return true
		}

		if s.filter != nil && !s.filter(t) {
			continue
		}

		s.current, s.err = t, nil
		return true
	}
	return false
}

func (s *scanIterator) Triple() (term.Triple, error) {
	return s.current, s.err
}

func (s *scanIterator) Close() error {
	return s.it.Close()
}

// onceIterator yields a single triple or a single error
type onceIterator struct {
	triple term.Triple
	err    error
	done   bool
}

func (o *onceIterator) Next() bool {
	if o.done {
		return false
	}
	o.done = true
	return true
}

func (o *onceIterator) Triple() (term.Triple, error) {
	return o.triple, o.err
}

func (o *onceIterator) Close() error {
	return nil
}

type emptyIterator struct{}

func (emptyIterator) Next() bool { return false }

func (emptyIterator) Triple() (term.Triple, error) { return term.Triple{}, nil }

func (emptyIterator) Close() error { return nil }
