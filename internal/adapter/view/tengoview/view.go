package tengoview

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
)

var _ port.Mapper = (*Mapper)(nil)

// Mapper executes one compiled tengo map function, one document at a
// time. The pristine compiled script is never run directly, every
// call runs on its own clone so concurrent calls stay isolated.
type Mapper struct {
	source   string
	compiled *tengo.Compiled
}

func NewMapper(source string, _ port.ModuleResolver) (port.Mapper, error) {
	fn := `text := import("text")
	math := import("math")
	times := import("times")
	rand := import("rand")
	fmt := import("fmt")
	json := import("json")
	enum := import("enum")
	hex := import("hex")
	base64 := import("base64")

	_result := []
	emit := func (key, value) {
		_result = append(_result, [key, value, false])
	}
	emit_fts := func (key, value) {
		_result = append(_result, [key, value, true])
	}
	docFn := ` + source + `
	docFn(doc)`

	script := tengo.NewScript([]byte(fn))
	script.SetImports(stdlib.GetModuleMap(
		"text",   // regular expressions, string conversion, and manipulation
		"math",   // mathematical constants and functions
		"times",  // time-related functions
		"rand",   // random functions
		"fmt",    // formatting functions
		"json",   // JSON functions
		"enum",   // Enumeration functions
		"hex",    // hex encoding and decoding functions
		"base64", // base64 encoding and decoding functions
	))

	err := script.Add("doc", map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, &port.CompileError{Language: "tengo", Source: source, Err: err}
	}

	return &Mapper{
		source:   source,
		compiled: compiled,
	}, nil
}

func (m *Mapper) Map(ctx context.Context, doc *model.Document, sink port.Sink) error {
	run := m.compiled.Clone()

	err := run.Set("doc", doc.View())
	if err != nil {
		return &port.EvalError{Source: m.source, DocID: doc.ID, Err: err}
	}

	err = run.RunContext(ctx)
	if err != nil {
		// error in the view function, the document emits nothing
		return &port.EvalError{Source: m.source, DocID: doc.ID, Err: err}
	}

	emissions := make([]*model.Emission, 0)
	for _, rd := range run.Get("_result").Array() {
		row, ok := rd.([]interface{})
		if !ok || len(row) != 3 {
			return &port.EvalError{Source: m.source, DocID: doc.ID, Err: fmt.Errorf("unexpected emit row %v", rd)}
		}

		if _, err := json.Marshal(row[0]); err != nil {
			return &port.EvalError{Source: m.source, DocID: doc.ID, Err: fmt.Errorf("emit key not serializable: %w", err)}
		}
		if _, err := json.Marshal(row[1]); err != nil {
			return &port.EvalError{Source: m.source, DocID: doc.ID, Err: fmt.Errorf("emit value not serializable: %w", err)}
		}

		emissions = append(emissions, &model.Emission{
			DocID:    doc.ID,
			Key:      row[0],
			Value:    row[1],
			Fulltext: row[2] == true,
		})
	}

	for _, e := range emissions {
		sink.Emit(e)
	}

	return nil
}
