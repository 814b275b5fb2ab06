package port

import "fmt"

// CompileError reports source text that failed to compile. The view
// is non-functional until recompiled with corrected source, the unit
// is never retried per document.
type CompileError struct {
	Language string
	Source   string
	Err      error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s compile error in view %q: %v", e.Language, snippet(e.Source), e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// EvalError reports a runtime failure of a single map or reduce
// call. It is isolated to the offending document or group, the rest
// of the batch continues.
type EvalError struct {
	Source string
	DocID  string
	Err    error
}

func (e *EvalError) Error() string {
	if e.DocID != "" {
		return fmt.Sprintf("eval error in view %q with document %q: %v", snippet(e.Source), e.DocID, e.Err)
	}
	return fmt.Sprintf("eval error in view %q: %v", snippet(e.Source), e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

const snippetLen = 80

func snippet(source string) string {
	if len(source) > snippetLen {
		return source[:snippetLen] + "..."
	}
	return source
}
