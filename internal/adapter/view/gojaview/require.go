package gojaview

import (
	"fmt"
	"regexp"

	"github.com/dop251/goja"
	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
)

var requirePattern = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)

// compileModules resolves and compiles every module the map source
// requires, transitively. Resolution happens once at compile time, a
// missing module fails the whole view compilation.
func compileModules(source string, resolver port.ModuleResolver) (map[string]*goja.Program, error) {
	queue := requireNames(source)
	if len(queue) == 0 {
		return nil, nil
	}
	if resolver == nil {
		return nil, &port.CompileError{
			Language: "javascript",
			Source:   source,
			Err:      fmt.Errorf("module %q: %w", queue[0], model.ErrModuleNotFound),
		}
	}

	modules := make(map[string]*goja.Program)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := modules[name]; ok {
			continue
		}

		src, err := resolver.Resolve(name)
		if err != nil {
			return nil, &port.CompileError{Language: "javascript", Source: source, Err: err}
		}

		prog, err := goja.Compile(name, "(function(exports, require, module) {"+src+"\n})", false)
		if err != nil {
			return nil, &port.CompileError{Language: "javascript", Source: src, Err: err}
		}

		modules[name] = prog
		queue = append(queue, requireNames(src)...)
	}

	return modules, nil
}

func requireNames(source string) []string {
	var names []string
	for _, match := range requirePattern.FindAllStringSubmatch(source, -1) {
		names = append(names, match[1])
	}
	return names
}

// require instantiates a compiled module in this runtime, caching
// its exports so a module runs at most once per runtime.
func (r *mapRuntime) require(m *Mapper, name string) (goja.Value, error) {
	if v, ok := r.exports[name]; ok {
		return v, nil
	}

	prog, ok := m.modules[name]
	if !ok {
		return nil, fmt.Errorf("module %q: %w", name, model.ErrModuleNotFound)
	}

	fnVal, err := r.vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("module %q did not compile to a function", name)
	}

	module := r.vm.NewObject()
	exports := r.vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}

	// cache before running the body so require cycles terminate
	r.exports[name] = exports

	_, err = fn(goja.Undefined(), exports, r.vm.Get("require"), module)
	if err != nil {
		delete(r.exports, name)
		return nil, err
	}

	result := module.Get("exports")
	r.exports[name] = result
	return result, nil
}
