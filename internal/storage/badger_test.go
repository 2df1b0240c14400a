package storage

import (
	"bytes"
	"testing"
)

func TestBadgerSetGetDelete(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewBadgerStorage(tmpDir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer storage.Close()

	txn, err := storage.Begin(true)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}

	if err := txn.Set(TableMeta, []byte("key"), []byte("value")); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	txn, err = storage.Begin(false)
	if err != nil {
		t.Fatalf("failed to begin read transaction: %v", err)
	}
	defer txn.Rollback()

	value, err := txn.Get(TableMeta, []byte("key"))
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if !bytes.Equal(value, []byte("value")) {
		t.Errorf("expected 'value', got %q", value)
	}

	// Missing keys report ErrNotFound
	if _, err := txn.Get(TableMeta, []byte("missing")); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Read-only transactions reject writes
	if err := txn.Set(TableMeta, []byte("k"), []byte("v")); err != ErrTransactionRO {
		t.Errorf("expected ErrTransactionRO, got %v", err)
	}
	if err := txn.Delete(TableMeta, []byte("k")); err != ErrTransactionRO {
		t.Errorf("expected ErrTransactionRO, got %v", err)
	}
}

func TestBadgerScanIsolatesTables(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewBadgerStorage(tmpDir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer storage.Close()

	txn, err := storage.Begin(true)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}

	entries := map[string]Table{
		"aa":  TableTriples,
		"ab":  TableTriples,
		"ba":  TableTriples,
		"aa2": TableSubjectIndex,
	}
	for key, table := range entries {
		if err := txn.Set(table, []byte(key), []byte("v")); err != nil {
			t.Fatalf("failed to set %q: %v", key, err)
		}
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	txn, err = storage.Begin(false)
	if err != nil {
		t.Fatalf("failed to begin read transaction: %v", err)
	}
	defer txn.Rollback()

	// Prefix scan stays within the table and strips the table prefix
	it, err := txn.Scan(TableTriples, []byte("a"))
	if err != nil {
		t.Fatalf("failed to scan: %v", err)
	}
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
	if keys[0] != "aa" || keys[1] != "ab" {
		t.Errorf("expected ascending [aa ab], got %v", keys)
	}

	// A nil prefix scans the whole table
	all, err := txn.Scan(TableTriples, nil)
	if err != nil {
		t.Fatalf("failed to scan: %v", err)
	}
	defer all.Close()

	count := 0
	for all.Next() {
		count++
	}
	if count != 3 {
		t.Errorf("expected 3 keys in triples table, got %d", count)
	}
}
