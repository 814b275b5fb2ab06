package port

import (
	"context"

	"github.com/goydb/viewengine/pkg/model"
)

// Sink receives the emissions of one map invocation in emit call order.
// Emissions only reach the sink after the map function returned
// successfully, a failed document emits nothing.
type Sink interface {
	Emit(e *model.Emission)
}

// Mapper is one compiled map function. Compiled once per view
// definition and safe for concurrent Map calls.
type Mapper interface {
	Map(ctx context.Context, doc *model.Document, sink Sink) error
}

// ModuleResolver resolves require() imports against the owning
// design document's embedded script sources.
type ModuleResolver interface {
	Resolve(name string) (string, error)
}

type MapperBuilder func(source string, modules ModuleResolver) (Mapper, error)

type ViewEngines map[string]MapperBuilder
