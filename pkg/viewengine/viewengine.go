// Package viewengine is the embedding surface of the view
// computation engine: it turns the views of a design document into
// persisted index rows and reduces them on demand.
package viewengine

import (
	"context"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/goydb/viewengine/internal/adapter/storage"
	"github.com/goydb/viewengine/internal/controller"
	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
)

type Config struct {
	DataDir    string        `env:"VIEWENGINE_DATA_DIR" envDefault:"./data"`
	BatchSize  int           `env:"VIEWENGINE_BATCH_SIZE" envDefault:"1000"`
	Workers    int           `env:"VIEWENGINE_WORKERS" envDefault:"4"`
	MapTimeout time.Duration `env:"VIEWENGINE_MAP_TIMEOUT" envDefault:"5s"`
}

func NewConfig() (*Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) BuildEngine() (*Engine, error) {
	s, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	return &Engine{
		storage: s,
		cfg:     cfg,
	}, nil
}

type Engine struct {
	storage *storage.Storage
	cfg     *Config
}

func (e *Engine) Database(ctx context.Context, name string) (port.Database, error) {
	return e.storage.Database(ctx, name)
}

func (e *Engine) Close() error {
	return e.storage.Close()
}

func (e *Engine) view(db port.Database, designDoc *model.Document, viewName string) controller.View {
	return controller.View{
		DB:         db,
		ViewDoc:    designDoc,
		ViewName:   viewName,
		BatchSize:  e.cfg.BatchSize,
		Workers:    e.cfg.Workers,
		MapTimeout: e.cfg.MapTimeout,
	}
}

// RebuildViews reindexes the views of the design document, all of
// them when viewName is empty. Progress is reported on the task.
func (e *Engine) RebuildViews(ctx context.Context, db port.Database, designDoc *model.Document, viewName string, task *model.Task) error {
	return e.view(db, designDoc, viewName).RebuildViews(ctx, task)
}

// ReduceDocs computes the reduction of one view, one row per group
// key when group is requested.
func (e *Engine) ReduceDocs(ctx context.Context, db port.Database, designDoc *model.Document, viewName string, group bool) ([]*model.Document, int, error) {
	return e.view(db, designDoc, viewName).ReduceDocs(ctx, group)
}

// Search queries the full-text index fed by the view's emit_fts
// emissions.
func (e *Engine) Search(ctx context.Context, db port.Database, designDoc *model.Document, viewName string, sq *port.SearchQuery) (*port.SearchResult, error) {
	return db.SearchDocuments(ctx, model.NewSearchFn(designDoc.ID, viewName), sq)
}
