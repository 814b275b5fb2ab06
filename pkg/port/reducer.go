package port

// Reducer is one compiled reduce function or builtin aggregator.
// Compiled once per view definition and safe for concurrent Reduce
// calls. keys and values are matched pairwise by index; with
// rereduce the values are previously computed reduce outputs.
type Reducer interface {
	Reduce(keys, values []interface{}, rereduce bool) (interface{}, error)
}

type ReducerBuilder func(source string) (Reducer, error)

type ReducerEngines map[string]ReducerBuilder
