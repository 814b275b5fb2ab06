package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/goydb/viewengine/internal/adapter/view/gojaview"
	"github.com/goydb/viewengine/internal/adapter/view/tengoview"
	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
)

var ErrNoViewFunctions = errors.New("no view functions in the document")

const (
	defaultBatchSize = 1000
	defaultWorkers   = 4

	// rows per reduce invocation, larger groups are combined via
	// rereduce over the partial results
	reduceOver = 100
)

// View indexes and reduces the views of one design document.
type View struct {
	DB       port.Database
	ViewDoc  *model.Document
	ViewName string

	BatchSize  int
	Workers    int
	MapTimeout time.Duration
}

func (v View) Mapper(fn string) (port.Mapper, error) {
	lang := v.ViewDoc.Language()
	switch lang {
	case "javascript", "":
		return gojaview.NewMapper(fn, v.ViewDoc.Modules())
	case "tengo":
		return tengoview.NewMapper(fn, nil)
	default:
		return nil, fmt.Errorf("language %q unknown", lang)
	}
}

func (v View) Reducer(fn string) (port.Reducer, error) {
	return gojaview.NewReducer(fn)
}

func (v View) Reset(ctx context.Context) error {
	vfns := v.ViewDoc.ViewFunctions()
	for _, vfn := range vfns {
		if v.ViewName != "" && vfn.Name != v.ViewName {
			continue
		}
		err := v.DB.ResetView(ctx, model.NewViewFn(v.ViewDoc.ID, vfn.Name))
		if err != nil {
			return err
		}
		err = v.DB.ResetSearchIndex(ctx, model.NewSearchFn(v.ViewDoc.ID, vfn.Name))
		if err != nil {
			return err
		}
	}
	return nil
}

// RebuildViews recompiles and reindexes the views of the design
// document. A compile error halts the affected view, a failing
// document is logged and skipped.
func (v View) RebuildViews(ctx context.Context, task *model.Task) error {
	vfns := v.ViewDoc.ViewFunctions()
	if vfns == nil {
		return ErrNoViewFunctions
	}

	for _, vfn := range vfns {
		// filter for specific view function
		if v.ViewName != "" && vfn.Name != v.ViewName {
			continue
		}

		mapper, err := v.Mapper(vfn.MapFn)
		if err != nil {
			return err
		}

		ddfn := model.NewViewFn(v.ViewDoc.ID, vfn.Name)
		err = v.DB.ResetView(ctx, ddfn)
		if err != nil {
			return err
		}
		err = v.DB.ResetSearchIndex(ctx, model.NewSearchFn(v.ViewDoc.ID, vfn.Name))
		if err != nil {
			return err
		}

		j := 0
		batchSize := v.BatchSize
		if batchSize <= 0 {
			batchSize = defaultBatchSize
		}
		for {
			var docs []*model.Document
			err := v.DB.Iterator(ctx, func(i port.Iterator) error {
				total := i.Total()
				if total == 0 {
					return nil
				}
				if task != nil {
					if v.ViewName == "" { // no single view update
						task.ProcessingTotal = total * len(vfns)
					} else {
						task.ProcessingTotal = total
					}
				}

				i.SetSkip(j * batchSize)
				i.SetLimit(batchSize)
				i.SetSkipDesignDoc(true)
				i.SetSkipLocalDoc(true)

				for doc := i.First(); i.Continue(); doc = i.Next() {
					docs = append(docs, doc)
				}

				return nil
			})
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				break
			}

			emissions := v.mapBatch(ctx, mapper, docs)

			var plain, fulltext []*model.Emission
			for _, e := range emissions {
				if e.Fulltext {
					fulltext = append(fulltext, e)
				} else {
					plain = append(plain, e)
				}
			}

			err = v.DB.UpdateView(ctx, ddfn, plain)
			if err != nil {
				return err
			}
			if len(fulltext) > 0 {
				err = v.DB.UpdateSearch(ctx, model.NewSearchFn(v.ViewDoc.ID, vfn.Name), fulltext)
				if err != nil {
					return err
				}
			}

			if task != nil {
				task.Processed += len(docs)
				task.UpdatedAt = time.Now()
			}

			j++
			if len(docs) < batchSize {
				break
			}
		}
	}

	return nil
}

// mapBatch runs the map function over the batch on a bounded worker
// pool. The emissions keep document order, a failing document
// contributes nothing and the batch continues.
func (v View) mapBatch(ctx context.Context, mapper port.Mapper, docs []*model.Document) []*model.Emission {
	workers := v.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	results := make([][]*model.Emission, len(docs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, doc := range docs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, doc *model.Document) {
			defer wg.Done()
			defer func() { <-sem }()

			mctx := ctx
			cancel := func() {}
			if v.MapTimeout > 0 {
				mctx, cancel = context.WithTimeout(ctx, v.MapTimeout)
			}
			defer cancel()

			var sink model.EmissionList
			err := mapper.Map(mctx, doc, &sink)
			if err != nil {
				log.Printf("map error, skipping document: %v", err)
				return
			}
			results[i] = sink.Emissions()
		}(i, doc)
	}
	wg.Wait()

	var emissions []*model.Emission
	for _, r := range results {
		emissions = append(emissions, r...)
	}
	return emissions
}

func (v View) ViewFunctions() (*model.ViewFunctions, error) {
	if v.ViewName == "" {
		panic("can only be called with ViewName defined")
	}

	vfns := v.ViewDoc.ViewFunctions()
	if vfns == nil {
		return nil, ErrNoViewFunctions
	}

	for _, vfn := range vfns {
		if vfn.Name == v.ViewName {
			return vfn, nil
		}
	}

	return nil, fmt.Errorf("view function %q not found", v.ViewName)
}

// ReduceDocs reduces the view rows, one result row per group when
// group is requested, otherwise a single row. Rows in the view
// bucket are sorted by key, so a group is always contiguous.
func (v View) ReduceDocs(ctx context.Context, group bool) ([]*model.Document, int, error) {
	vfn, err := v.ViewFunctions()
	if err != nil {
		return nil, 0, err
	}

	ddfn := model.NewViewFn(v.ViewDoc.ID, vfn.Name)

	if vfn.ReduceFn == "" { // NONE
		var total int
		var docs []*model.Document
		err := v.DB.ViewIterator(ctx, ddfn, func(i port.Iterator) error {
			total = i.Total()
			for doc := i.First(); i.Continue(); doc = i.Next() {
				docs = append(docs, doc)
			}
			return nil
		})
		if err != nil {
			return nil, 0, err
		}
		return docs, total, nil
	}

	red, err := v.Reducer(vfn.ReduceFn)
	if err != nil {
		return nil, 0, err
	}

	var (
		total   int
		out     []*model.Document
		keys    []interface{}
		values  []interface{}
		curKey  interface{}
		started bool
	)

	flush := func() {
		if len(values) == 0 {
			return
		}
		out = append(out, &model.Document{
			Key:   curKey,
			Value: reduceGroup(red, keys, values),
		})
		keys = nil
		values = nil
	}

	err = v.DB.ViewIterator(ctx, ddfn, func(i port.Iterator) error {
		total = i.Total()
		if total == 0 {
			return nil
		}

		for doc := i.First(); i.Continue(); doc = i.Next() {
			if group && started && !reflect.DeepEqual(doc.Key, curKey) {
				flush()
			}
			curKey = doc.Key
			started = true
			keys = append(keys, doc.Key)
			values = append(values, doc.Value)
		}

		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	flush()

	if !group && len(out) == 1 {
		out[0].Key = nil
	}

	return out, total, nil
}

// reduceGroup reduces one group, batching large groups and
// combining the partial results with rereduce. A reduce error
// yields null for the group, sibling groups are unaffected.
func reduceGroup(red port.Reducer, keys, values []interface{}) interface{} {
	if len(values) <= reduceOver {
		val, err := red.Reduce(keys, values, false)
		if err != nil {
			return nil
		}
		return val
	}

	var partials []interface{}
	for start := 0; start < len(values); start += reduceOver {
		end := start + reduceOver
		if end > len(values) {
			end = len(values)
		}
		val, err := red.Reduce(keys[start:end], values[start:end], false)
		if err != nil {
			return nil
		}
		partials = append(partials, val)
	}

	val, err := red.Reduce(nil, partials, true)
	if err != nil {
		return nil
	}
	return val
}
