package gojaview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
)

var _ port.Mapper = (*Mapper)(nil)

// Mapper executes one compiled map function, one document at a time.
//
// The program is compiled once and immutable afterwards. Every Map
// call runs on a runtime taken from the pool, so concurrent calls on
// the same Mapper never share call-local state and the emit bindings
// always write into the buffer of the active call.
type Mapper struct {
	source  string
	prog    *goja.Program
	modules map[string]*goja.Program
	pool    sync.Pool
}

func NewMapper(source string, resolver port.ModuleResolver) (port.Mapper, error) {
	prog, err := goja.Compile("map", "var map = "+source+";", false)
	if err != nil {
		return nil, &port.CompileError{Language: "javascript", Source: source, Err: err}
	}

	modules, err := compileModules(source, resolver)
	if err != nil {
		return nil, err
	}

	return &Mapper{
		source:  source,
		prog:    prog,
		modules: modules,
	}, nil
}

// mapRuntime is one isolated execution scope. It is used by exactly
// one Map call at a time.
type mapRuntime struct {
	vm      *goja.Runtime
	mapFn   goja.Callable
	parse   goja.Callable
	exports map[string]goja.Value
	buf     []*model.Emission
	docID   string
}

func (m *Mapper) Map(ctx context.Context, doc *model.Document, sink port.Sink) error {
	r, err := m.runtime()
	if err != nil {
		return &port.EvalError{Source: m.source, DocID: doc.ID, Err: err}
	}
	defer m.pool.Put(r)

	// The document goes through its own JSON encoding so the view
	// observes exactly the values the store would serve. Legacy
	// indexes replace the U+2028 line separator with a null byte,
	// kept for compatibility. json.Marshal always escapes U+2028,
	// so the substitution happens on the escape sequence.
	data, err := json.Marshal(doc.View())
	if err != nil {
		return &port.EvalError{Source: m.source, DocID: doc.ID, Err: err}
	}
	text := strings.ReplaceAll(string(data), `\u2028`, `\u0000`)

	r.docID = doc.ID
	r.buf = r.buf[:0]

	stop := r.watch(ctx)
	defer stop()

	docVal, err := r.parse(goja.Undefined(), r.vm.ToValue(text))
	if err != nil {
		return &port.EvalError{Source: m.source, DocID: doc.ID, Err: err}
	}

	_, err = r.mapFn(goja.Undefined(), docVal)
	if err != nil {
		// error in the view function, the document emits nothing
		// and the caller continues with the next one
		return &port.EvalError{Source: m.source, DocID: doc.ID, Err: err}
	}

	for _, e := range r.buf {
		sink.Emit(e)
	}

	return nil
}

func (m *Mapper) runtime() (*mapRuntime, error) {
	if r, ok := m.pool.Get().(*mapRuntime); ok && r != nil {
		return r, nil
	}
	return m.newRuntime()
}

func (m *Mapper) newRuntime() (*mapRuntime, error) {
	vm := goja.New()
	r := &mapRuntime{
		vm:      vm,
		exports: make(map[string]goja.Value),
	}

	err := vm.Set("emit", func(key, value goja.Value) error {
		return r.emit(key, value, false)
	})
	if err != nil {
		return nil, err
	}
	err = vm.Set("emit_fts", func(key, value goja.Value) error {
		return r.emit(key, value, true)
	})
	if err != nil {
		return nil, err
	}
	err = vm.Set("require", func(name string) (goja.Value, error) {
		return r.require(m, name)
	})
	if err != nil {
		return nil, err
	}

	_, err = vm.RunProgram(m.prog)
	if err != nil {
		return nil, err
	}

	mapFn, ok := goja.AssertFunction(vm.Get("map"))
	if !ok {
		return nil, fmt.Errorf("source is not a function: %s", m.source)
	}
	r.mapFn = mapFn

	parse, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
	if !ok {
		return nil, fmt.Errorf("JSON.parse unavailable")
	}
	r.parse = parse

	return r, nil
}

func (r *mapRuntime) emit(key, value goja.Value, fulltext bool) error {
	k := exportValue(key)
	v := exportValue(value)

	// both halves must survive the document encoder, an engine
	// internal value that can't is an error, not an index entry
	if _, err := json.Marshal(k); err != nil {
		return fmt.Errorf("emit key not serializable: %w", err)
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Errorf("emit value not serializable: %w", err)
	}

	r.buf = append(r.buf, &model.Emission{
		DocID:    r.docID,
		Key:      k,
		Value:    v,
		Fulltext: fulltext,
	})
	return nil
}

// watch interrupts the runtime when the context is canceled or its
// deadline passes, turning an over-budget map call into a regular
// per-document error.
func (r *mapRuntime) watch(ctx context.Context) func() {
	if ctx == nil || ctx.Done() == nil {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	return func() {
		close(done)
		<-finished
		r.vm.ClearInterrupt()
	}
}

// exportValue converts an engine value into its Go representation,
// normalizing missing/undefined values to null.
func exportValue(v goja.Value) interface{} {
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	return v.Export()
}
