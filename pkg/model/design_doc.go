package model

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ViewDef is one view definition inside a design document.
type ViewDef struct {
	Map    string `mapstructure:"map" json:"map"`
	Reduce string `mapstructure:"reduce" json:"reduce,omitempty"`
}

type ViewFunctions struct {
	Name     string
	MapFn    string
	ReduceFn string
}

// libKey is the reserved name inside the views mapping that holds
// shared module sources instead of a view definition.
const libKey = "lib"

func (doc Document) ViewFunctions() []*ViewFunctions {
	var vfn []*ViewFunctions

	views, ok := doc.Data["views"].(map[string]interface{})
	if !ok {
		return nil
	}

	for name, viewInterface := range views {
		if name == libKey {
			continue
		}

		var view ViewDef
		err := mapstructure.Decode(viewInterface, &view)
		if err != nil {
			continue
		}

		vfn = append(vfn, &ViewFunctions{
			Name:     name,
			MapFn:    view.Map,
			ReduceFn: view.Reduce,
		})
	}

	return vfn
}

// Modules exposes the design document's embedded script sources
// for require() resolution inside map functions.
func (doc Document) Modules() *DesignDocModules {
	return &DesignDocModules{doc: doc}
}

type DesignDocModules struct {
	doc Document
}

// Resolve looks up a module source by name. Plain names are resolved
// below views/lib, slash separated names are resolved against the
// document root (e.g. "views/lib/helper").
func (m *DesignDocModules) Resolve(name string) (string, error) {
	parts := strings.Split(name, "/")
	if len(parts) == 1 {
		parts = []string{"views", libKey, name}
	}

	var node interface{} = m.doc.Data
	for _, part := range parts {
		current, ok := node.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("module %q: %w", name, ErrModuleNotFound)
		}
		node, ok = current[part]
		if !ok {
			return "", fmt.Errorf("module %q: %w", name, ErrModuleNotFound)
		}
	}

	source, ok := node.(string)
	if !ok {
		return "", fmt.Errorf("module %q is not a source string: %w", name, ErrModuleNotFound)
	}

	return source, nil
}
