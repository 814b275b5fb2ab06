package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/goydb/viewengine/pkg/model"
	"github.com/goydb/viewengine/pkg/port"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/mgo.v2/bson"
)

var indexBucket = []byte("_index")

func (d *Database) ResetView(ctx context.Context, ddfn model.DesignDocFn) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(ddfn.Bucket()) != nil {
			return tx.DeleteBucket(ddfn.Bucket())
		}
		return nil
	})
}

// UpdateView appends the emitted rows to the view bucket. Keys are
// the cbor encoded emission key plus a sequence suffix, so rows with
// equal keys stay adjacent and insertion order is preserved within a
// key.
func (d *Database) UpdateView(ctx context.Context, ddfn model.DesignDocFn, emissions []*model.Emission) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		bucketName := ddfn.Bucket()
		bucket, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}

		viewIndexBucket, err := tx.CreateBucketIfNotExists(indexBucket)
		if err != nil {
			return err
		}

		for _, e := range emissions {
			row := &model.Document{
				ID:    e.DocID,
				Key:   e.Key,
				Value: e.Value,
			}
			data, err := bson.Marshal(row)
			if err != nil {
				return err
			}
			key, err := cbor.Marshal(e.Key)
			if err != nil {
				return err
			}
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			key = []byte(string(key) + " " + strconv.FormatInt(int64(seq), 10))
			err = bucket.Put(key, data)
			if err != nil {
				return err
			}
			err = addDocKeyToView(viewIndexBucket, e.DocID, bucketName, key)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// ViewIterator iterates the rows of one view bucket in key order.
func (d *Database) ViewIterator(ctx context.Context, ddfn model.DesignDocFn, fn func(i port.Iterator) error) error {
	return d.db.View(func(tx *bolt.Tx) error {
		return fn(newIterator(tx.Bucket(ddfn.Bucket())))
	})
}

type ViewKey struct {
	V []byte // name of the view
	K []byte // name of the key
}

func (vk ViewKey) String() string {
	return fmt.Sprintf("<ViewKey View=%q Key=%q>", vk.V, vk.K)
}

// addDocKeyToView records which view keys a document produced, so
// the rows can be removed again when the document changes.
func addDocKeyToView(index *bolt.Bucket, docID string, bucketName, key []byte) error {
	var keys []*ViewKey
	val := index.Get([]byte(docID))

	newKey := &ViewKey{
		V: bucketName,
		K: key,
	}
	if len(val) > 0 {
		err := cbor.Unmarshal(val, &keys)
		if err != nil {
			return err
		}
	}
	keys = append(keys, newKey)

	newVal, err := cbor.Marshal(keys)
	if err != nil {
		return err
	}

	return index.Put([]byte(docID), newVal)
}

func (d *Database) ResetViewIndex() error {
	return d.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(indexBucket) != nil {
			return tx.DeleteBucket(indexBucket)
		}
		return nil
	})
}

// ResetViewIndexForDoc removes all view rows produced by the doc.
func (d *Database) ResetViewIndexForDoc(ctx context.Context, docID string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		index, err := tx.CreateBucketIfNotExists(indexBucket)
		if err != nil {
			return err
		}

		val := index.Get([]byte(docID))
		if len(val) == 0 {
			return nil
		}

		var keys []*ViewKey
		err = cbor.Unmarshal(val, &keys)
		if err != nil {
			return err
		}

		for _, vk := range keys {
			bucket := tx.Bucket(vk.V)
			if bucket == nil {
				continue
			}
			err := bucket.Delete(vk.K)
			if err != nil {
				return err
			}
		}

		return index.Delete([]byte(docID))
	})
}
