package port

import (
	"context"

	"github.com/goydb/viewengine/pkg/model"
)

// Database is the storage boundary the view engine works against:
// a document source plus the view and search indexes fed by
// emissions.
type Database interface {
	Name() string

	PutDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, docID string) (*model.Document, error)
	DeleteDocument(ctx context.Context, docID string) error
	Iterator(ctx context.Context, fn func(i Iterator) error) error

	ResetView(ctx context.Context, ddfn model.DesignDocFn) error
	UpdateView(ctx context.Context, ddfn model.DesignDocFn, emissions []*model.Emission) error
	ViewIterator(ctx context.Context, ddfn model.DesignDocFn, fn func(i Iterator) error) error
	ResetViewIndexForDoc(ctx context.Context, docID string) error

	ResetSearchIndex(ctx context.Context, ddfn model.DesignDocFn) error
	UpdateSearch(ctx context.Context, ddfn model.DesignDocFn, emissions []*model.Emission) error
	SearchDocuments(ctx context.Context, ddfn model.DesignDocFn, sq *SearchQuery) (*SearchResult, error)
}
