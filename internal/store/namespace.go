package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ternstore/ternstore/internal/encoding"
	"github.com/ternstore/ternstore/internal/storage"
)

// ErrNamespaceNotFound reports a namespace record missing for a key
// that a stored triple references.
var ErrNamespaceNotFound = errors.New("namespace not found")

// Namespace is an interned IRI prefix. Keys are assigned from an
// append-only sequence; a key's value never changes once assigned.
type Namespace struct {
	Value string
	Key   uint64
}

var namespaceSeqKey = []byte("namespace_seq")

// lookupNamespaceKey resolves an IRI prefix to its interned key
func lookupNamespaceKey(txn storage.Transaction, prefix string) (uint64, error) {
	value, err := txn.Get(storage.TableNamespaces, []byte(prefix))
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, ErrNamespaceNotFound
		}
		return 0, err
	}
	return binary.BigEndian.Uint64(value), nil
}

// lookupNamespace resolves an interned key back to its IRI prefix
func lookupNamespace(txn storage.Transaction, key uint64) (string, error) {
	value, err := txn.Get(storage.TableNamespaceKeys, encoding.Uint64Key(key))
	if err != nil {
		if err == storage.ErrNotFound {
			return "", ErrNamespaceNotFound
		}
		return "", err
	}
	return string(value), nil
}

// internNamespace returns the key for prefix, assigning the next key
// from the sequence when the prefix has not been seen before.
func internNamespace(txn storage.Transaction, prefix string) (uint64, error) {
	key, err := lookupNamespaceKey(txn, prefix)
	if err == nil {
		return key, nil
	}
	if err != ErrNamespaceNotFound {
		return 0, err
	}

	key, err = nextNamespaceKey(txn)
	if err != nil {
		return 0, err
	}

	if err := txn.Set(storage.TableNamespaces, []byte(prefix), encoding.Uint64Key(key)); err != nil {
		return 0, fmt.Errorf("failed to store namespace: %w", err)
	}
	if err := txn.Set(storage.TableNamespaceKeys, encoding.Uint64Key(key), []byte(prefix)); err != nil {
		return 0, fmt.Errorf("failed to store namespace key: %w", err)
	}

	return key, nil
}

func nextNamespaceKey(txn storage.Transaction) (uint64, error) {
	var next uint64

	value, err := txn.Get(storage.TableMeta, namespaceSeqKey)
	switch err {
	case nil:
		next = binary.BigEndian.Uint64(value)
	case storage.ErrNotFound:
		next = 0
	default:
		return 0, err
	}

	if err := txn.Set(storage.TableMeta, namespaceSeqKey, encoding.Uint64Key(next+1)); err != nil {
		return 0, fmt.Errorf("failed to advance namespace sequence: %w", err)
	}

	return next, nil
}
