package query

import (
	"fmt"
	"sort"

	"github.com/ternstore/ternstore/internal/store"
	"github.com/ternstore/ternstore/pkg/rdf"
)

// SelectResult is the projected result table: the sorted selected
// variable names and one row per accepted solution, in pipeline
// order.
type SelectResult struct {
	Head     []string
	Bindings []map[string]rdf.Term
}

// Select evaluates the plan and projects each solution onto the
// selected variables. The selection is validated eagerly; evaluation
// stops at the first error the pipeline yields.
func (e *Engine) Select(plan Plan, selection []string) (*SelectResult, error) {
	selected, err := selectionBindings(plan, selection)
	if err != nil {
		return nil, err
	}

	reader, err := e.store.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	root, err := compileNode(reader, plan.Entrypoint)
	if err != nil {
		return nil, err
	}

	inner := root.run(NewResolvedVariables(len(plan.Variables)))
	defer inner.Close()

	solutions := &solutionsIterator{
		reader:   reader,
		inner:    inner,
		selected: selected,
		nsCache:  make(map[uint64]string),
	}

	head := make([]string, 0, len(selected))
	for _, sel := range selected {
		head = append(head, sel.name)
	}

	bindings := make([]map[string]rdf.Term, 0)
	for {
		row, ok, err := solutions.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		bindings = append(bindings, row)
	}

	return &SelectResult{Head: head, Bindings: bindings}, nil
}

type selectedVariable struct {
	name string
	slot int
}

// selectionBindings maps the selected names to plan slots, sorted by
// name with duplicates collapsed. Unknown names fail here, before any
// storage access.
func selectionBindings(plan Plan, selection []string) ([]selectedVariable, error) {
	seen := make(map[string]bool, len(selection))
	names := make([]string, 0, len(selection))
	for _, name := range selection {
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)

	selected := make([]selectedVariable, 0, len(names))
	for _, name := range names {
		slot, ok := plan.VariableIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrVariableNotFound, name)
		}
		selected = append(selected, selectedVariable{name: name, slot: slot})
	}

	return selected, nil
}

// solutionsIterator projects binding frames onto the selected
// variables, converting internal values to external terms. Namespace
// keys resolve through a per-query cache; namespaces are append-only,
// so cached entries never go stale within one evaluation.
type solutionsIterator struct {
	reader   *store.Reader
	inner    BindingIterator
	selected []selectedVariable
	nsCache  map[uint64]string
}

func (it *solutionsIterator) next() (map[string]rdf.Term, bool, error) {
	if !it.inner.Next() {
		return nil, false, nil
	}

	vars, err := it.inner.Binding()
	if err != nil {
		return nil, false, err
	}

	row := make(map[string]rdf.Term, len(it.selected))
	for _, sel := range it.selected {
		value, bound := vars.Get(sel.slot)
		if !bound {
			return nil, false, fmt.Errorf("%w: %q", ErrUnboundVariable, sel.name)
		}

		t, err := value.Term(it.resolveNamespace)
		if err != nil {
			return nil, false, err
		}
		row[sel.name] = t
	}

	return row, true, nil
}

func (it *solutionsIterator) resolveNamespace(key uint64) (string, error) {
	if prefix, ok := it.nsCache[key]; ok {
		return prefix, nil
	}

	prefix, err := it.reader.Namespace(key)
	if err != nil {
		return "", err
	}

	it.nsCache[key] = prefix
	return prefix, nil
}
