package storage

import (
	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/mgo.v2/bson"
)

var _ port.Iterator = (*Iterator)(nil)

// Iterator walks the bson encoded rows of one bucket. Only valid
// within the transaction it was created in. Skip and limit count
// documents that pass the filters, not raw bucket entries.
type Iterator struct {
	skip          int
	limit         int
	skipDesignDoc bool
	skipLocalDoc  bool

	bucket    *bolt.Bucket
	cursor    *bolt.Cursor
	total     int
	doc       *model.Document
	returned  int
	toSkip    int
}

func newIterator(bucket *bolt.Bucket) *Iterator {
	i := &Iterator{bucket: bucket}
	if bucket != nil {
		i.total = bucket.Stats().KeyN
	}
	return i
}

func (i *Iterator) Total() int              { return i.total }
func (i *Iterator) SetSkip(n int)           { i.skip = n }
func (i *Iterator) SetLimit(n int)          { i.limit = n }
func (i *Iterator) SetSkipDesignDoc(b bool) { i.skipDesignDoc = b }
func (i *Iterator) SetSkipLocalDoc(b bool)  { i.skipLocalDoc = b }

func (i *Iterator) First() *model.Document {
	if i.bucket == nil {
		return nil
	}

	i.cursor = i.bucket.Cursor()
	i.returned = 0
	i.toSkip = i.skip

	k, v := i.cursor.First()
	return i.load(k, v)
}

func (i *Iterator) Next() *model.Document {
	if i.cursor == nil {
		return nil
	}

	k, v := i.cursor.Next()
	return i.load(k, v)
}

func (i *Iterator) Continue() bool {
	if i.doc == nil {
		return false
	}
	if i.limit > 0 && i.returned > i.limit {
		return false
	}
	return true
}

func (i *Iterator) load(k, v []byte) *model.Document {
	for k != nil {
		var doc model.Document
		err := bson.Unmarshal(v, &doc)
		if err != nil || i.filtered(&doc) {
			k, v = i.cursor.Next()
			continue
		}

		if i.toSkip > 0 {
			i.toSkip--
			k, v = i.cursor.Next()
			continue
		}

		i.doc = &doc
		i.returned++
		return &doc
	}

	i.doc = nil
	return nil
}

func (i *Iterator) filtered(doc *model.Document) bool {
	if i.skipDesignDoc && doc.IsDesignDoc() {
		return true
	}
	if i.skipLocalDoc && doc.IsLocalDoc() {
		return true
	}
	return false
}
