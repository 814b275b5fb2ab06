package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
)

const (
	SearchDir = "search_indices"
	indexExt  = ".bleve"
)

// SearchIndex is one bleve index fed by the full-text emissions of
// one design document function.
type SearchIndex struct {
	idx bleve.Index
}

func (si *SearchIndex) Close() error {
	return si.idx.Close()
}

func (d *Database) searchIndexPath(ddfn model.DesignDocFn) string {
	return filepath.Join(d.databaseDir, SearchDir, ddfn.String()+indexExt)
}

func (d *Database) EnsureSearchIndex(ddfn model.DesignDocFn) (*SearchIndex, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := ddfn.String()
	if si, ok := d.searchIndices[name]; ok {
		return si, nil
	}

	path := d.searchIndexPath(ddfn)
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, err
	}

	index, err := bleve.Open(path)
	if err != nil {
		mapping := bleve.NewIndexMapping()
		index, err = bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("failed to create search index %q: %w", path, err)
		}
	}

	si := &SearchIndex{idx: index}
	d.searchIndices[name] = si
	return si, nil
}

func (d *Database) ResetSearchIndex(ctx context.Context, ddfn model.DesignDocFn) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := ddfn.String()
	if si, ok := d.searchIndices[name]; ok {
		err := si.Close()
		if err != nil {
			return err
		}
		delete(d.searchIndices, name)
	}

	return os.RemoveAll(d.searchIndexPath(ddfn))
}

// UpdateSearch indexes the full-text tagged emissions. Plain
// emissions are ignored, they belong to the view bucket.
func (d *Database) UpdateSearch(ctx context.Context, ddfn model.DesignDocFn, emissions []*model.Emission) error {
	si, err := d.EnsureSearchIndex(ddfn)
	if err != nil {
		return err
	}

	batch := si.idx.NewBatch()
	n := 0
	for i, e := range emissions {
		if !e.Fulltext {
			continue
		}

		err := batch.Index(fmt.Sprintf("%s:%d", e.DocID, i), map[string]interface{}{
			"key":   e.Key,
			"value": e.Value,
		})
		if err != nil {
			return err
		}
		n++
	}
	if n == 0 {
		return nil
	}

	return si.idx.Batch(batch)
}

func (d *Database) SearchDocuments(ctx context.Context, ddfn model.DesignDocFn, sq *port.SearchQuery) (*port.SearchResult, error) {
	si, err := d.EnsureSearchIndex(ddfn)
	if err != nil {
		return nil, err
	}

	q := bleve.NewQueryStringQuery(sq.Query)
	searchRequest := bleve.NewSearchRequestOptions(q, sq.Limit, sq.Skip, false)
	searchRequest.Fields = []string{"*"}
	res, err := si.idx.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, err
	}

	var sr port.SearchResult
	sr.Total = res.Total

	for _, hit := range res.Hits {
		sr.Records = append(sr.Records, &port.SearchRecord{
			ID:     hit.ID,
			Order:  []float64{hit.Score, float64(hit.HitNumber)},
			Fields: hit.Fields,
		})
	}

	return &sr, nil
}
