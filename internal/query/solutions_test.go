package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternstore/ternstore/internal/storage"
	"github.com/ternstore/ternstore/internal/store"
	"github.com/ternstore/ternstore/internal/term"
	"github.com/ternstore/ternstore/pkg/rdf"
)

// countingStorage counts transactions and reads of the namespace key
// table.
type countingStorage struct {
	storage.Storage
	begins  int
	lookups int
}

func (s *countingStorage) Begin(writable bool) (storage.Transaction, error) {
	s.begins++
	txn, err := s.Storage.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &countingTransaction{Transaction: txn, storage: s}, nil
}

type countingTransaction struct {
	storage.Transaction
	storage *countingStorage
}

func (t *countingTransaction) Get(table storage.Table, key []byte) ([]byte, error) {
	if table == storage.TableNamespaceKeys {
		t.storage.lookups++
	}
	return t.Transaction.Get(table, key)
}

func TestSelectCachesNamespaceLookups(t *testing.T) {
	badgerStorage, err := storage.NewBadgerStorage(t.TempDir())
	require.NoError(t, err)

	counting := &countingStorage{Storage: badgerStorage}
	s := store.NewTripleStore(counting)
	t.Cleanup(func() { s.Close() })

	name := rdf.NewNamedNode(foafNS + "name")
	require.NoError(t, s.Insert([]*rdf.Triple{
		rdf.NewTriple(rdf.NewNamedNode(exNS+"alice"), name, rdf.NewLiteral("Alice")),
		rdf.NewTriple(rdf.NewNamedNode(exNS+"bob"), name, rdf.NewLiteral("Bob")),
		rdf.NewTriple(rdf.NewNamedNode(exNS+"carol"), name, rdf.NewLiteral("Carol")),
	}))

	reader, err := s.Reader()
	require.NoError(t, err)
	foaf, err := reader.NamespaceKey(foafNS)
	require.NoError(t, err)
	require.NoError(t, reader.Close())

	plan := Plan{
		Variables: []string{"s", "o"},
		Entrypoint: TriplePatternNode{
			Subject:   Variable[term.Subject](0),
			Predicate: Constant(term.Node{Namespace: foaf, Value: "name"}),
			Object:    Variable[term.Object](1),
		},
	}

	counting.lookups = 0
	result, err := NewEngine(s).Select(plan, []string{"s", "o"})
	require.NoError(t, err)
	require.Len(t, result.Bindings, 3)

	// Three rows share one subject namespace; the cache resolves it once
	assert.Equal(t, 1, counting.lookups)
}

func TestSelectValidatesSelectionBeforeStorage(t *testing.T) {
	badgerStorage, err := storage.NewBadgerStorage(t.TempDir())
	require.NoError(t, err)

	counting := &countingStorage{Storage: badgerStorage}
	s := store.NewTripleStore(counting)
	t.Cleanup(func() { s.Close() })

	plan := Plan{
		Variables: []string{"s"},
		Entrypoint: TriplePatternNode{
			Subject:   Variable[term.Subject](0),
			Predicate: Variable[term.Node](0),
			Object:    Variable[term.Object](0),
		},
	}

	counting.begins = 0
	_, err = NewEngine(s).Select(plan, []string{"nope"})
	require.ErrorIs(t, err, ErrVariableNotFound)
	assert.Zero(t, counting.begins, "selection validation must precede storage access")
}
