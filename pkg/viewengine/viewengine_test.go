package viewengine

import (
	"context"
	"testing"
	"time"

	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.MapTimeout)
}

func TestNewConfig_Env(t *testing.T) {
	t.Setenv("VIEWENGINE_DATA_DIR", "/tmp/views")
	t.Setenv("VIEWENGINE_MAP_TIMEOUT", "250ms")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/views", cfg.DataDir)
	assert.Equal(t, 250*time.Millisecond, cfg.MapTimeout)
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	cfg := &Config{DataDir: t.TempDir(), BatchSize: 1000, Workers: 4}
	engine, err := cfg.BuildEngine()
	require.NoError(t, err)
	defer engine.Close()

	db, err := engine.Database(ctx, "test")
	require.NoError(t, err)

	require.NoError(t, db.PutDocument(ctx, &model.Document{
		ID:   "doc-1",
		Data: map[string]interface{}{"note": "quick brown fox"},
	}))
	ddoc := &model.Document{
		ID: "_design/test",
		Data: map[string]interface{}{
			"views": map[string]interface{}{
				"notes": map[string]interface{}{
					"map": `function(doc) {
						emit(doc._id, null)
						emit_fts(doc.note, null)
					}`,
				},
			},
		},
	}
	require.NoError(t, db.PutDocument(ctx, ddoc))

	err = engine.RebuildViews(ctx, db, ddoc, "notes", nil)
	require.NoError(t, err)

	docs, total, err := engine.ReduceDocs(ctx, db, ddoc, "notes", false)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].Key)

	res, err := engine.Search(ctx, db, ddoc, "notes", &port.SearchQuery{Query: "fox", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
}
