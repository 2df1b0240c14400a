package server

import (
	"encoding/json"

	"github.com/ternstore/ternstore/internal/query"
	"github.com/ternstore/ternstore/pkg/rdf"
)

// SPARQL JSON Results Format
// https://www.w3.org/TR/sparql11-results-json/

// resultsJSON represents the JSON format for query results
type resultsJSON struct {
	Head    resultHead     `json:"head"`
	Results resultBindings `json:"results"`
}

// resultHead contains the variable names
type resultHead struct {
	Vars []string `json:"vars"`
}

// resultBindings contains the result bindings
type resultBindings struct {
	Bindings []map[string]bindingValue `json:"bindings"`
}

// bindingValue represents a single bound value
type bindingValue struct {
	Type     string  `json:"type"`
	Value    string  `json:"value"`
	Datatype *string `json:"datatype,omitempty"`
	XMLLang  *string `json:"xml:lang,omitempty"`
}

// formatSelectResults converts a select result to SPARQL JSON format
func formatSelectResults(result *query.SelectResult) ([]byte, error) {
	bindings := make([]map[string]bindingValue, 0, len(result.Bindings))
	for _, row := range result.Bindings {
		binding := make(map[string]bindingValue, len(row))
		for name, t := range row {
			binding[name] = termToBindingValue(t)
		}
		bindings = append(bindings, binding)
	}

	out := resultsJSON{
		Head:    resultHead{Vars: result.Head},
		Results: resultBindings{Bindings: bindings},
	}

	return json.MarshalIndent(out, "", "  ")
}

// termToBindingValue converts an RDF term to a SPARQL JSON binding value
func termToBindingValue(t rdf.Term) bindingValue {
	switch t := t.(type) {
	case *rdf.NamedNode:
		return bindingValue{
			Type:  "uri",
			Value: t.IRI,
		}

	case *rdf.BlankNode:
		return bindingValue{
			Type:  "bnode",
			Value: t.ID,
		}

	case *rdf.Literal:
		bv := bindingValue{
			Type:  "literal",
			Value: t.Value,
		}

		if t.Language != "" {
			bv.XMLLang = &t.Language
		} else if t.Datatype != nil {
			datatypeIRI := t.Datatype.IRI
			bv.Datatype = &datatypeIRI
		}

		return bv

	default:
		return bindingValue{
			Type:  "literal",
			Value: t.String(),
		}
	}
}
