package port

import "github.com/goydb/viewengine/pkg/model"

type Iterator interface {
	Total() int
	First() *model.Document
	Next() *model.Document
	Continue() bool

	SetSkip(int)
	SetLimit(int)
	SetSkipDesignDoc(bool)
	SetSkipLocalDoc(bool)
}
