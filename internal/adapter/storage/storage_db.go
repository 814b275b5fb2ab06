package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/mgo.v2/bson"
)

var docsBucket = []byte("_docs")

var _ port.Database = (*Database)(nil)

// Database holds the documents, view index buckets and search
// indexes of one database.
type Database struct {
	name        string
	databaseDir string
	db          *bolt.DB

	mu            sync.Mutex
	searchIndices map[string]*SearchIndex
}

func OpenDatabase(dir, name string) (*Database, error) {
	databaseDir := filepath.Join(dir, name)
	err := os.MkdirAll(databaseDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create database dir %q: %w", databaseDir, err)
	}

	db, err := bolt.Open(filepath.Join(databaseDir, "data.db"), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", name, err)
	}

	return &Database{
		name:          name,
		databaseDir:   databaseDir,
		db:            db,
		searchIndices: make(map[string]*SearchIndex),
	}, nil
}

func (d *Database) Name() string {
	return d.name
}

func (d *Database) String() string {
	return fmt.Sprintf("<Database name=%q>", d.name)
}

func (d *Database) Close() error {
	d.mu.Lock()
	for name, si := range d.searchIndices {
		err := si.Close()
		if err != nil {
			d.mu.Unlock()
			return fmt.Errorf("failed to close search index %q: %w", name, err)
		}
	}
	d.searchIndices = make(map[string]*SearchIndex)
	d.mu.Unlock()

	return d.db.Close()
}

func (d *Database) PutDocument(ctx context.Context, doc *model.Document) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(docsBucket)
		if err != nil {
			return err
		}

		data, err := bson.Marshal(doc)
		if err != nil {
			return err
		}

		return bucket.Put([]byte(doc.ID), data)
	})
}

func (d *Database) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	var doc model.Document
	err := d.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(docsBucket)
		if bucket == nil {
			return ErrNotFound
		}

		data := bucket.Get([]byte(docID))
		if data == nil {
			return ErrNotFound
		}

		return bson.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func (d *Database) DeleteDocument(ctx context.Context, docID string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(docsBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(docID))
	})
}

// Iterator iterates all documents of the database.
func (d *Database) Iterator(ctx context.Context, fn func(i port.Iterator) error) error {
	return d.db.View(func(tx *bolt.Tx) error {
		return fn(newIterator(tx.Bucket(docsBucket)))
	})
}
