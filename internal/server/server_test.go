package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternstore/ternstore/internal/storage"
	"github.com/ternstore/ternstore/internal/store"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	badgerStorage, err := storage.NewBadgerStorage(t.TempDir())
	require.NoError(t, err)

	s := store.NewTripleStore(badgerStorage)
	t.Cleanup(func() { s.Close() })

	return NewServer(s, "localhost:0").Handler()
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

const insertBody = `{
	"triples": [
		{
			"subject": {"iri": "http://example.org/alice"},
			"predicate": {"iri": "http://xmlns.com/foaf/0.1/name"},
			"object": {"literal": {"value": "Alice"}}
		},
		{
			"subject": {"iri": "http://example.org/alice"},
			"predicate": {"iri": "http://xmlns.com/foaf/0.1/knows"},
			"object": {"iri": "http://example.org/bob"}
		},
		{
			"subject": {"iri": "http://example.org/bob"},
			"predicate": {"iri": "http://xmlns.com/foaf/0.1/name"},
			"object": {"literal": {"value": "Bob"}}
		}
	]
}`

func TestInsertQueryDelete(t *testing.T) {
	handler := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/triples", insertBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, handler, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, uint64(3), stats["triples"])

	queryBody := `{
		"variables": ["s", "n"],
		"root": {
			"type": "triple_pattern",
			"subject": {"variable": "s"},
			"predicate": {"iri": "http://xmlns.com/foaf/0.1/name"},
			"object": {"variable": "n"}
		},
		"select": ["s", "n"]
	}`
	rec = do(t, handler, http.MethodPost, "/query", queryBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Head struct {
			Vars []string `json:"vars"`
		} `json:"head"`
		Results struct {
			Bindings []map[string]struct {
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"n", "s"}, result.Head.Vars)
	require.Len(t, result.Results.Bindings, 2)

	names := make(map[string]string)
	for _, binding := range result.Results.Bindings {
		assert.Equal(t, "uri", binding["s"].Type)
		assert.Equal(t, "literal", binding["n"].Type)
		names[binding["s"].Value] = binding["n"].Value
	}
	assert.Equal(t, map[string]string{
		"http://example.org/alice": "Alice",
		"http://example.org/bob":   "Bob",
	}, names)

	deleteBody := `{
		"triples": [
			{
				"subject": {"iri": "http://example.org/alice"},
				"predicate": {"iri": "http://xmlns.com/foaf/0.1/name"},
				"object": {"literal": {"value": "Alice"}}
			}
		]
	}`
	rec = do(t, handler, http.MethodDelete, "/triples", deleteBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, handler, http.MethodGet, "/stats", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, uint64(2), stats["triples"])
}

func TestQueryJoin(t *testing.T) {
	handler := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/triples", insertBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	queryBody := `{
		"variables": ["x", "n"],
		"root": {
			"type": "for_loop_join",
			"left": {
				"type": "triple_pattern",
				"subject": {"iri": "http://example.org/alice"},
				"predicate": {"iri": "http://xmlns.com/foaf/0.1/knows"},
				"object": {"variable": "x"}
			},
			"right": {
				"type": "triple_pattern",
				"subject": {"variable": "x"},
				"predicate": {"iri": "http://xmlns.com/foaf/0.1/name"},
				"object": {"variable": "n"}
			}
		},
		"select": ["n"]
	}`
	rec = do(t, handler, http.MethodPost, "/query", queryBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Results struct {
			Bindings []map[string]struct {
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Results.Bindings, 1)
	assert.Equal(t, "Bob", result.Results.Bindings[0]["n"].Value)
}

func TestQueryUnknownNamespaceMatchesNothing(t *testing.T) {
	handler := newTestServer(t)

	rec := do(t, handler, http.MethodPost, "/triples", insertBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	queryBody := `{
		"variables": ["s", "o"],
		"root": {
			"type": "triple_pattern",
			"subject": {"variable": "s"},
			"predicate": {"iri": "http://nowhere.invalid/name"},
			"object": {"variable": "o"}
		},
		"select": ["s", "o"]
	}`
	rec = do(t, handler, http.MethodPost, "/query", queryBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Results struct {
			Bindings []map[string]any `json:"bindings"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Empty(t, result.Results.Bindings)
}

func TestQueryBadRequests(t *testing.T) {
	handler := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"missing root", `{"variables": ["s"], "select": ["s"]}`},
		{"unknown node type", `{
			"variables": ["s"],
			"root": {"type": "hash_join"},
			"select": ["s"]
		}`},
		{"undeclared variable", `{
			"variables": ["s"],
			"root": {
				"type": "triple_pattern",
				"subject": {"variable": "s"},
				"predicate": {"variable": "p"},
				"object": {"variable": "o"}
			},
			"select": ["s"]
		}`},
		{"unknown selection", `{
			"variables": ["s"],
			"root": {
				"type": "triple_pattern",
				"subject": {"variable": "s"},
				"predicate": {"iri": "http://xmlns.com/foaf/0.1/name"},
				"object": {"literal": {"value": "Alice"}}
			},
			"select": ["nope"]
		}`},
		{"literal subject", `{
			"variables": ["o"],
			"root": {
				"type": "triple_pattern",
				"subject": {"literal": {"value": "Alice"}},
				"predicate": {"iri": "http://xmlns.com/foaf/0.1/name"},
				"object": {"variable": "o"}
			},
			"select": ["o"]
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, "/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestTriplesRejectsVariables(t *testing.T) {
	handler := newTestServer(t)

	body := `{
		"triples": [
			{
				"subject": {"variable": "s"},
				"predicate": {"iri": "http://xmlns.com/foaf/0.1/name"},
				"object": {"literal": {"value": "Alice"}}
			}
		]
	}`
	rec := do(t, handler, http.MethodPost, "/triples", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestServer(t)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, handler, http.MethodGet, "/query", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, handler, http.MethodPut, "/triples", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, handler, http.MethodPost, "/stats", "").Code)
}
