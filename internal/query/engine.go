package query

import (
	"fmt"

	"github.com/ternstore/ternstore/internal/store"
)

// Engine evaluates query plans against a triple store. Evaluation is
// single-threaded and pull-based: compiling a plan allocates the
// operator tree up front, but no storage access happens until the
// caller pulls the first element.
type Engine struct {
	store *store.TripleStore
}

// NewEngine creates a new query engine
func NewEngine(store *store.TripleStore) *Engine {
	return &Engine{store: store}
}

// BindingIterator streams binding frames. Failures are elements of
// the stream: Next reports an element is available, Binding returns
// either the frame or the error that occurred producing it.
type BindingIterator interface {
	Next() bool
	Binding() (ResolvedVariables, error)
	Close() error
}

// Evaluate compiles the plan and returns the lazy binding stream over
// a read snapshot of the store. The caller must close the iterator to
// release the snapshot.
func (e *Engine) Evaluate(plan Plan) (BindingIterator, error) {
	reader, err := e.store.Reader()
	if err != nil {
		return nil, err
	}

	root, err := compileNode(reader, plan.Entrypoint)
	if err != nil {
		reader.Close()
		return nil, err
	}

	return &planCursor{
		reader: reader,
		inner:  root.run(NewResolvedVariables(len(plan.Variables))),
	}, nil
}

// planCursor ties the lifetime of the store snapshot to the outermost
// iterator.
type planCursor struct {
	reader *store.Reader
	inner  BindingIterator
}

func (c *planCursor) Next() bool {
	return c.inner.Next()
}

func (c *planCursor) Binding() (ResolvedVariables, error) {
	return c.inner.Binding()
}

func (c *planCursor) Close() error {
	err := c.inner.Close()
	if cerr := c.reader.Close(); err == nil {
		err = cerr
	}
	return err
}

// compiled is one node of the operator tree. run opens a fresh cursor
// over the node for the given input frame; the compiled structure
// itself is read-only and shared between invocations.
type compiled interface {
	run(input ResolvedVariables) BindingIterator
}

func compileNode(reader *store.Reader, node Node) (compiled, error) {
	switch n := node.(type) {
	case TriplePatternNode:
		return &patternNode{reader: reader, pattern: n}, nil

	case ForLoopJoinNode:
		left, err := compileNode(reader, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := compileNode(reader, n.Right)
		if err != nil {
			return nil, err
		}
		return &forLoopJoinNode{left: left, right: right}, nil

	case CartesianProductJoinNode:
		left, err := compileNode(reader, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := compileNode(reader, n.Right)
		if err != nil {
			return nil, err
		}
		return &cartesianJoinNode{left: left, right: right}, nil

	case SkipNode:
		child, err := compileNode(reader, n.Child)
		if err != nil {
			return nil, err
		}
		return &skipNode{child: child, first: n.First}, nil

	case LimitNode:
		child, err := compileNode(reader, n.Child)
		if err != nil {
			return nil, err
		}
		return &limitNode{child: child, first: n.First}, nil

	default:
		return nil, fmt.Errorf("unsupported plan node: %T", node)
	}
}

// patternNode evaluates a triple pattern against the store
type patternNode struct {
	reader  *store.Reader
	pattern TriplePatternNode
}

func (n *patternNode) run(input ResolvedVariables) BindingIterator {
	filters, outputs, ok := resolvePattern(input, n.pattern)
	if !ok {
		// A bound value that cannot act as the required pattern part
		// makes the pattern unsatisfiable, not an error.
		return emptyBindings{}
	}

	return &triplePatternIterator{
		input:   input,
		outputs: outputs,
		triples: n.reader.ScanPattern(filters),
	}
}

// outputBindings records which variable slots the scan must fill.
// A negative slot means the position produces no binding.
type outputBindings struct {
	subject   int
	predicate int
	object    int
}

// resolvePattern splits a pattern into hard filters and output
// bindings given the current frame. It reports ok=false when a bound
// value cannot be projected to the position it is used in.
func resolvePattern(input ResolvedVariables, pattern TriplePatternNode) (store.TripleFilters, outputBindings, bool) {
	var filters store.TripleFilters
	outputs := outputBindings{subject: -1, predicate: -1, object: -1}

	var ok bool
	if filters.Subject, outputs.subject, ok = resolvePart(pattern.Subject, input, ResolvedVariable.AsSubject); !ok {
		return store.TripleFilters{}, outputs, false
	}
	if filters.Predicate, outputs.predicate, ok = resolvePart(pattern.Predicate, input, ResolvedVariable.AsPredicate); !ok {
		return store.TripleFilters{}, outputs, false
	}
	if filters.Object, outputs.object, ok = resolvePart(pattern.Object, input, ResolvedVariable.AsObject); !ok {
		return store.TripleFilters{}, outputs, false
	}

	return filters, outputs, true
}

func resolvePart[T any](
	pv PatternValue[T],
	input ResolvedVariables,
	cast func(ResolvedVariable) (T, bool),
) (*T, int, bool) {
	if c, isConst := pv.Constant(); isConst {
		return &c, -1, true
	}

	slot, _ := pv.Slot()
	if bound, isBound := input.Get(slot); isBound {
		value, ok := cast(bound)
		if !ok {
			return nil, -1, false
		}
		return &value, -1, true
	}

	return nil, slot, true
}

// triplePatternIterator extends the input frame once per scanned
// triple.
type triplePatternIterator struct {
	input   ResolvedVariables
	outputs outputBindings
	triples store.TripleIterator
	current ResolvedVariables
	err     error
}

func (it *triplePatternIterator) Next() bool {
	if !it.triples.Next() {
		return false
	}

	t, err := it.triples.Triple()
	if err != nil {
		it.current, it.err = ResolvedVariables{}, err
		return true
	}

	vars := it.input.Clone()
	if it.outputs.subject >= 0 {
		vars.Set(it.outputs.subject, BoundSubject(t.Subject))
	}
	if it.outputs.predicate >= 0 {
		vars.Set(it.outputs.predicate, BoundPredicate(t.Predicate))
	}
	if it.outputs.object >= 0 {
		vars.Set(it.outputs.object, BoundObject(t.Object))
	}

	it.current, it.err = vars, nil
	return true
}

func (it *triplePatternIterator) Binding() (ResolvedVariables, error) {
	return it.current, it.err
}

func (it *triplePatternIterator) Close() error {
	return it.triples.Close()
}

// forLoopJoinNode is the streaming nested-loop join: the right
// sub-plan is re-run once per left solution, with that solution as
// its input.
type forLoopJoinNode struct {
	left  compiled
	right compiled
}

func (n *forLoopJoinNode) run(input ResolvedVariables) BindingIterator {
	return &forLoopJoinIterator{
		left:  n.left.run(input),
		right: n.right,
	}
}

type forLoopJoinIterator struct {
	left    BindingIterator
	right   compiled
	current BindingIterator
}

func (it *forLoopJoinIterator) Next() bool {
	for {
		if it.current != nil {
			if it.current.Next() {
				return true
			}
			it.current.Close()
			it.current = nil
		}

		if !it.left.Next() {
			return false
		}

		vars, err := it.left.Binding()
		if err != nil {
			// A failed left element is forwarded once; the branch
			// produces nothing further.
			it.current = &errorBindings{err: err}
			continue
		}
		it.current = it.right.run(vars)
	}
}

func (it *forLoopJoinIterator) Binding() (ResolvedVariables, error) {
	return it.current.Binding()
}

func (it *forLoopJoinIterator) Close() error {
	var err error
	if it.current != nil {
		err = it.current.Close()
	}
	if cerr := it.left.Close(); err == nil {
		err = cerr
	}
	return err
}

// cartesianJoinNode materializes the right sub-plan once, with the
// same outer input, and pairs every left solution against the
// materialized set. Right-side errors are queued and drained before
// any merged solution.
type cartesianJoinNode struct {
	left  compiled
	right compiled
}

func (n *cartesianJoinNode) run(input ResolvedVariables) BindingIterator {
	var values []ResolvedVariables
	var buffer []bindingResult

	right := n.right.run(input.Clone())
	for right.Next() {
		vars, err := right.Binding()
		if err != nil {
			buffer = append(buffer, bindingResult{err: err})
			continue
		}
		values = append(values, vars)
	}
	right.Close()

	return &cartesianJoinIterator{
		values: values,
		left:   n.left.run(input),
		buffer: buffer,
	}
}

type bindingResult struct {
	vars ResolvedVariables
	err  error
}

type cartesianJoinIterator struct {
	values []ResolvedVariables
	left   BindingIterator
	buffer []bindingResult
	head   bindingResult
}

func (it *cartesianJoinIterator) Next() bool {
	for {
		if len(it.buffer) > 0 {
			it.head = it.buffer[0]
			it.buffer = it.buffer[1:]
			return true
		}

		if !it.left.Next() {
			return false
		}

		vars, err := it.left.Binding()
		if err != nil {
			it.buffer = append(it.buffer, bindingResult{err: err})
			continue
		}

		for _, value := range it.values {
			if merged, ok := vars.MergeWith(value); ok {
				it.buffer = append(it.buffer, bindingResult{vars: merged})
			}
		}
	}
}

func (it *cartesianJoinIterator) Binding() (ResolvedVariables, error) {
	return it.head.vars, it.head.err
}

func (it *cartesianJoinIterator) Close() error {
	return it.left.Close()
}

// skipNode discards the first N elements, errors included
type skipNode struct {
	child compiled
	first int
}

func (n *skipNode) run(input ResolvedVariables) BindingIterator {
	return &skipIterator{upstream: n.child.run(input), first: n.first}
}

type skipIterator struct {
	upstream BindingIterator
	first    int
	skipped  int
}

func (it *skipIterator) Next() bool {
	for it.skipped < it.first {
		if !it.upstream.Next() {
			return false
		}
		it.skipped++
	}
	return it.upstream.Next()
}

func (it *skipIterator) Binding() (ResolvedVariables, error) {
	return it.upstream.Binding()
}

func (it *skipIterator) Close() error {
	return it.upstream.Close()
}

// limitNode truncates the stream after N elements, errors included
type limitNode struct {
	child compiled
	first int
}

func (n *limitNode) run(input ResolvedVariables) BindingIterator {
	return &limitIterator{upstream: n.child.run(input), first: n.first}
}

type limitIterator struct {
	upstream BindingIterator
	first    int
	count    int
}

func (it *limitIterator) Next() bool {
	if it.count >= it.first {
		return false
	}
	if it.upstream.Next() {
		it.count++
		return true
	}
	return false
}

func (it *limitIterator) Binding() (ResolvedVariables, error) {
	return it.upstream.Binding()
}

func (it *limitIterator) Close() error {
	return it.upstream.Close()
}

// errorBindings yields a single error element
type errorBindings struct {
	err  error
	done bool
}

func (it *errorBindings) Next() bool {
	if it.done {
		return false
	}
	it.done = true
	return true
}

func (it *errorBindings) Binding() (ResolvedVariables, error) {
	return ResolvedVariables{}, it.err
}

func (it *errorBindings) Close() error {
	return nil
}

// emptyBindings yields nothing
type emptyBindings struct{}

func (emptyBindings) Next() bool { return false }

func (emptyBindings) Binding() (ResolvedVariables, error) { return ResolvedVariables{}, nil }

func (emptyBindings) Close() error { return nil }
