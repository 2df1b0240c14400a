package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternstore/ternstore/internal/storage"
	"github.com/ternstore/ternstore/internal/term"
	"github.com/ternstore/ternstore/pkg/rdf"
)

const (
	exNS   = "http://example.org/"
	foafNS = "http://xmlns.com/foaf/0.1/"
)

func newTestStore(t *testing.T) *TripleStore {
	t.Helper()

	badgerStorage, err := storage.NewBadgerStorage(t.TempDir())
	require.NoError(t, err)

	s := NewTripleStore(badgerStorage)
	t.Cleanup(func() { s.Close() })
	return s
}

func socialGraph() []*rdf.Triple {
	alice := rdf.NewNamedNode(exNS + "alice")
	bob := rdf.NewNamedNode(exNS + "bob")
	name := rdf.NewNamedNode(foafNS + "name")
	knows := rdf.NewNamedNode(foafNS + "knows")

	return []*rdf.Triple{
		rdf.NewTriple(alice, name, rdf.NewLiteral("Alice")),
		rdf.NewTriple(alice, knows, bob),
		rdf.NewTriple(bob, name, rdf.NewLiteral("Bob")),
		rdf.NewTriple(bob, knows, alice),
		rdf.NewTriple(rdf.NewBlankNode("b0"), name, rdf.NewLiteral("Anon")),
	}
}

func collect(t *testing.T, it TripleIterator) []term.Triple {
	t.Helper()
	defer it.Close()

	var triples []term.Triple
	for it.Next() {
		triple, err := it.Triple()
		require.NoError(t, err)
		triples = append(triples, triple)
	}
	return triples
}

func TestInsertAndCount(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Insert(socialGraph()))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)

	// Re-inserting the same triples does not grow the store
	require.NoError(t, s.Insert(socialGraph()))

	count, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
}

func TestScanPatternStrategies(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(socialGraph()))

	reader, err := s.Reader()
	require.NoError(t, err)
	defer reader.Close()

	ex, err := reader.NamespaceKey(exNS)
	require.NoError(t, err)
	foaf, err := reader.NamespaceKey(foafNS)
	require.NoError(t, err)

	alice := term.NamedSubject(term.Node{Namespace: ex, Value: "alice"})
	aliceObject := term.NamedObject(term.Node{Namespace: ex, Value: "alice"})
	bobObject := term.NamedObject(term.Node{Namespace: ex, Value: "bob"})
	anon := term.BlankSubject("b0")
	name := term.Node{Namespace: foaf, Value: "name"}
	knows := term.Node{Namespace: foaf, Value: "knows"}

	tests := []struct {
		name    string
		filters TripleFilters
		want    int
	}{
		{"all free", TripleFilters{}, 5},
		{"subject", TripleFilters{Subject: &alice}, 2},
		{"blank subject", TripleFilters{Subject: &anon}, 1},
		{"predicate", TripleFilters{Predicate: &name}, 3},
		{"object", TripleFilters{Object: &bobObject}, 1},
		{"subject predicate", TripleFilters{Subject: &alice, Predicate: &name}, 1},
		{"predicate object", TripleFilters{Predicate: &knows, Object: &aliceObject}, 1},
		{"subject object", TripleFilters{Subject: &alice, Object: &bobObject}, 1},
		{"full triple", TripleFilters{Subject: &alice, Predicate: &knows, Object: &bobObject}, 1},
		{"full triple absent", TripleFilters{Subject: &alice, Predicate: &knows, Object: &aliceObject}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			triples := collect(t, reader.ScanPattern(tt.filters))
			assert.Len(t, triples, tt.want)

			for _, triple := range triples {
				if tt.filters.Subject != nil {
					assert.True(t, triple.Subject.Equal(*tt.filters.Subject))
				}
				if tt.filters.Predicate != nil {
					assert.True(t, triple.Predicate.Equal(*tt.filters.Predicate))
				}
				if tt.filters.Object != nil {
					assert.True(t, triple.Object.Equal(*tt.filters.Object))
				}
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	triples := socialGraph()
	require.NoError(t, s.Insert(triples))

	require.NoError(t, s.Delete(triples[:2]))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	// Triples in a namespace the store never saw cannot exist; deleting
	// them is a no-op.
	unknown := rdf.NewTriple(
		rdf.NewNamedNode("http://nowhere.invalid/x"),
		rdf.NewNamedNode("http://nowhere.invalid/y"),
		rdf.NewNamedNode("http://nowhere.invalid/z"),
	)
	require.NoError(t, s.Delete([]*rdf.Triple{unknown}))

	count, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestNamespaceInterning(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(socialGraph()))

	reader, err := s.Reader()
	require.NoError(t, err)

	ex, err := reader.NamespaceKey(exNS)
	require.NoError(t, err)
	foaf, err := reader.NamespaceKey(foafNS)
	require.NoError(t, err)
	assert.NotEqual(t, ex, foaf)

	prefix, err := reader.Namespace(ex)
	require.NoError(t, err)
	assert.Equal(t, exNS, prefix)

	_, err = reader.NamespaceKey("http://nowhere.invalid/")
	assert.ErrorIs(t, err, ErrNamespaceNotFound)

	_, err = reader.Namespace(9999)
	assert.ErrorIs(t, err, ErrNamespaceNotFound)
	require.NoError(t, reader.Close())

	// Keys are stable across later inserts
	more := rdf.NewTriple(
		rdf.NewNamedNode("http://schema.org/thing"),
		rdf.NewNamedNode(foafNS+"name"),
		rdf.NewLiteral("Thing"),
	)
	require.NoError(t, s.Insert([]*rdf.Triple{more}))

	reader, err = s.Reader()
	require.NoError(t, err)
	defer reader.Close()

	exAgain, err := reader.NamespaceKey(exNS)
	require.NoError(t, err)
	assert.Equal(t, ex, exAgain)

	schema, err := reader.NamespaceKey("http://schema.org/")
	require.NoError(t, err)
	assert.NotEqual(t, ex, schema)
	assert.NotEqual(t, foaf, schema)
}

func TestInsertRejectsMalformedTriples(t *testing.T) {
	s := newTestStore(t)

	// Literal subjects are not valid RDF
	bad := rdf.NewTriple(
		rdf.NewLiteral("nope"),
		rdf.NewNamedNode(foafNS+"name"),
		rdf.NewLiteral("x"),
	)
	assert.Error(t, s.Insert([]*rdf.Triple{bad}))

	// Blank predicates are not valid RDF
	bad = rdf.NewTriple(
		rdf.NewNamedNode(exNS+"alice"),
		rdf.NewBlankNode("p"),
		rdf.NewLiteral("x"),
	)
	assert.Error(t, s.Insert([]*rdf.Triple{bad}))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
