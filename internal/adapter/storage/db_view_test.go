package storage

import (
	"context"
	"testing"

	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabase_PutGetDocument(t *testing.T) {
	WithTestDatabase(t, func(ctx context.Context, db *Database) {
		err := db.PutDocument(ctx, &model.Document{
			ID:   "doc-1",
			Data: map[string]interface{}{"n": int64(1)},
		})
		require.NoError(t, err)

		doc, err := db.GetDocument(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "doc-1", doc.ID)
		assert.EqualValues(t, 1, doc.Data["n"])

		_, err = db.GetDocument(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDatabase_Iterator(t *testing.T) {
	WithTestDatabase(t, func(ctx context.Context, db *Database) {
		for _, doc := range []*model.Document{
			{ID: "_design/test", Data: map[string]interface{}{}},
			{ID: "a", Data: map[string]interface{}{}},
			{ID: "b", Data: map[string]interface{}{}},
			{ID: "c", Data: map[string]interface{}{}},
		} {
			require.NoError(t, db.PutDocument(ctx, doc))
		}

		var ids []string
		err := db.Iterator(ctx, func(i port.Iterator) error {
			i.SetSkipDesignDoc(true)
			for doc := i.First(); i.Continue(); doc = i.Next() {
				ids = append(ids, doc.ID)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids)

		// skip and limit count filtered documents
		ids = nil
		err = db.Iterator(ctx, func(i port.Iterator) error {
			i.SetSkipDesignDoc(true)
			i.SetSkip(1)
			i.SetLimit(1)
			for doc := i.First(); i.Continue(); doc = i.Next() {
				ids = append(ids, doc.ID)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids)
	})
}

func TestDatabase_UpdateView(t *testing.T) {
	WithTestDatabase(t, func(ctx context.Context, db *Database) {
		ddfn := model.NewViewFn("_design/test", "by_type")

		err := db.UpdateView(ctx, ddfn, []*model.Emission{
			{DocID: "doc-1", Key: "alpha", Value: int64(1)},
			{DocID: "doc-2", Key: "gamma", Value: int64(2)},
			{DocID: "doc-3", Key: "alpha", Value: int64(3)},
		})
		require.NoError(t, err)

		var rows []*model.Document
		err = db.ViewIterator(ctx, ddfn, func(i port.Iterator) error {
			assert.Equal(t, 3, i.Total())
			for doc := i.First(); i.Continue(); doc = i.Next() {
				rows = append(rows, doc)
			}
			return nil
		})
		require.NoError(t, err)
		require.Len(t, rows, 3)

		// rows are sorted by key, equal keys stay adjacent in
		// insertion order
		assert.Equal(t, "alpha", rows[0].Key)
		assert.Equal(t, "doc-1", rows[0].ID)
		assert.Equal(t, "alpha", rows[1].Key)
		assert.Equal(t, "doc-3", rows[1].ID)
		assert.Equal(t, "gamma", rows[2].Key)
		assert.EqualValues(t, 2, rows[2].Value)
	})
}

func TestDatabase_ResetView(t *testing.T) {
	WithTestDatabase(t, func(ctx context.Context, db *Database) {
		ddfn := model.NewViewFn("_design/test", "by_type")

		err := db.UpdateView(ctx, ddfn, []*model.Emission{
			{DocID: "doc-1", Key: "alpha", Value: int64(1)},
		})
		require.NoError(t, err)

		require.NoError(t, db.ResetView(ctx, ddfn))

		err = db.ViewIterator(ctx, ddfn, func(i port.Iterator) error {
			assert.Equal(t, 0, i.Total())
			assert.Nil(t, i.First())
			return nil
		})
		require.NoError(t, err)
	})
}

func TestDatabase_ResetViewIndexForDoc(t *testing.T) {
	WithTestDatabase(t, func(ctx context.Context, db *Database) {
		ddfn := model.NewViewFn("_design/test", "by_type")

		err := db.UpdateView(ctx, ddfn, []*model.Emission{
			{DocID: "doc-1", Key: "alpha", Value: int64(1)},
			{DocID: "doc-2", Key: "beta", Value: int64(2)},
		})
		require.NoError(t, err)

		require.NoError(t, db.ResetViewIndexForDoc(ctx, "doc-1"))

		var rows []*model.Document
		err = db.ViewIterator(ctx, ddfn, func(i port.Iterator) error {
			for doc := i.First(); i.Continue(); doc = i.Next() {
				rows = append(rows, doc)
			}
			return nil
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "doc-2", rows[0].ID)
	})
}

func TestDatabase_Search(t *testing.T) {
	WithTestDatabase(t, func(ctx context.Context, db *Database) {
		ddfn := model.NewSearchFn("_design/test", "text")

		err := db.UpdateSearch(ctx, ddfn, []*model.Emission{
			{DocID: "doc-1", Key: "brown fox", Value: int64(1), Fulltext: true},
			{DocID: "doc-2", Key: "lazy dog", Value: int64(2), Fulltext: true},
			{DocID: "doc-3", Key: "brown fox", Value: int64(3)}, // plain, ignored
		})
		require.NoError(t, err)

		res, err := db.SearchDocuments(ctx, ddfn, &port.SearchQuery{
			Query: "fox",
			Limit: 10,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, res.Total)
		require.Len(t, res.Records, 1)
		assert.Equal(t, "doc-1:0", res.Records[0].ID)
	})
}
