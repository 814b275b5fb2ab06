package gojaview

import (
	"fmt"
	"log"
	"sync"

	"github.com/dop251/goja"
	"github.com/goydb/viewengine/internal/adapter/reducer"
	"github.com/goydb/viewengine/pkg/port"
)

var _ port.Reducer = (*Reducer)(nil)

// Reducer executes one compiled reduce function. Builtin sources
// (_sum, _count, _stats) bypass script compilation entirely.
type Reducer struct {
	source string
	prog   *goja.Program
	pool   sync.Pool
}

func NewReducer(source string) (port.Reducer, error) {
	if kind, ok := reducer.ParseKind(source); ok {
		return reducer.NewBuiltin(kind), nil
	}

	prog, err := goja.Compile("reduce", "var reduce = "+source+";", false)
	if err != nil {
		return nil, &port.CompileError{Language: "javascript", Source: source, Err: err}
	}

	return &Reducer{source: source, prog: prog}, nil
}

type reduceRuntime struct {
	vm *goja.Runtime
	fn goja.Callable
}

// Reduce invokes the function with (keys, values, rereduce). A
// runtime error never aborts sibling groups, the group reduces to
// null and the error is reported to the caller.
func (r *Reducer) Reduce(keys, values []interface{}, rereduce bool) (interface{}, error) {
	rt, err := r.runtime()
	if err != nil {
		return nil, &port.EvalError{Source: r.source, Err: err}
	}
	defer r.pool.Put(rt)

	res, err := rt.fn(goja.Undefined(),
		rt.vm.ToValue(keys),
		rt.vm.ToValue(values),
		rt.vm.ToValue(rereduce),
	)
	if err != nil {
		log.Printf("error executing reduce function %q: %v", r.source, err)
		return nil, &port.EvalError{Source: r.source, Err: err}
	}

	return exportValue(res), nil
}

func (r *Reducer) runtime() (*reduceRuntime, error) {
	if rt, ok := r.pool.Get().(*reduceRuntime); ok && rt != nil {
		return rt, nil
	}

	vm := goja.New()
	_, err := vm.RunProgram(r.prog)
	if err != nil {
		return nil, err
	}

	fn, ok := goja.AssertFunction(vm.Get("reduce"))
	if !ok {
		return nil, fmt.Errorf("source is not a function: %s", r.source)
	}

	return &reduceRuntime{vm: vm, fn: fn}, nil
}
