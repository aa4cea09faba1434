package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/gcbaptista/go-vsr-engine/config"
	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/model"
)

// SourceStore keeps the raw text of every document and the settings of every index,
// so indexes can be rebuilt after a restart. Built indexes are never stored.
type SourceStore interface {
	SaveSettings(settings config.IndexSettings) error
	DeleteIndex(name string) error
	AppendDocuments(index string, docs []model.RawDocument) error
	Documents(index string) ([]model.RawDocument, error)
	Document(index, id string) (model.RawDocument, error)
	Indexes() ([]config.IndexSettings, error)
	Close() error
}

const DatabaseFile = "vsr.db"

var (
	bucketIndexes = []byte("indexes")
	bucketDocs    = []byte("docs")
	bucketIDs     = []byte("ids")
	keySettings   = []byte("settings")
)

// DocumentStore is the bolt-backed SourceStore.
//
// Layout: indexes/<name>/settings holds the JSON settings, indexes/<name>/docs maps a
// big-endian sequence number to the JSON raw document (so iteration replays insertion
// order) and indexes/<name>/ids maps a document ID to its sequence number.
type DocumentStore struct {
	db *bbolt.DB
}

// OpenDocumentStore opens (or creates) the store under dataDir.
func OpenDocumentStore(dataDir string) (*DocumentStore, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	path := filepath.Join(dataDir, DatabaseFile)
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketIndexes); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketIndexes, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DocumentStore{db: db}, nil
}

func indexBucket(tx *bbolt.Tx, name string) *bbolt.Bucket {
	return tx.Bucket(bucketIndexes).Bucket([]byte(name))
}

// SaveSettings creates the index buckets if needed and stores the settings.
func (s *DocumentStore) SaveSettings(settings config.IndexSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings of index '%s': %w", settings.Name, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketIndexes).CreateBucketIfNotExists([]byte(settings.Name))
		if err != nil {
			return fmt.Errorf("failed to create bucket for index '%s': %w", settings.Name, err)
		}
		for _, sub := range [][]byte{bucketDocs, bucketIDs} {
			if _, err := b.CreateBucketIfNotExists(sub); err != nil {
				return fmt.Errorf("failed to create bucket %s for index '%s': %w", sub, settings.Name, err)
			}
		}
		return b.Put(keySettings, data)
	})
}

// DeleteIndex removes the index and all its documents. Unknown indexes are ignored.
func (s *DocumentStore) DeleteIndex(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketIndexes).DeleteBucket([]byte(name))
		if err == bbolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

// AppendDocuments stores docs in order, all or nothing. Duplicate IDs fail the batch.
func (s *DocumentStore) AppendDocuments(index string, docs []model.RawDocument) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := indexBucket(tx, index)
		if b == nil {
			return internalErrors.NewIndexNotFoundError(index)
		}
		docsBucket := b.Bucket(bucketDocs)
		ids := b.Bucket(bucketIDs)

		for _, doc := range docs {
			if ids.Get([]byte(doc.ID)) != nil {
				return internalErrors.NewDuplicateDocumentError(doc.ID)
			}

			seq, err := docsBucket.NextSequence()
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)

			data, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("failed to encode document '%s': %w", doc.ID, err)
			}
			if err := docsBucket.Put(key, data); err != nil {
				return err
			}
			if err := ids.Put([]byte(doc.ID), key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Documents returns the raw documents of index in insertion order.
func (s *DocumentStore) Documents(index string) ([]model.RawDocument, error) {
	docs := make([]model.RawDocument, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := indexBucket(tx, index)
		if b == nil {
			return internalErrors.NewIndexNotFoundError(index)
		}
		return b.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var doc model.RawDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to decode document in index '%s': %w", index, err)
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Document returns one raw document.
func (s *DocumentStore) Document(index, id string) (model.RawDocument, error) {
	var doc model.RawDocument
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := indexBucket(tx, index)
		if b == nil {
			return internalErrors.NewIndexNotFoundError(index)
		}
		key := b.Bucket(bucketIDs).Get([]byte(id))
		if key == nil {
			return internalErrors.NewDocumentNotFoundError(id, index)
		}
		return json.Unmarshal(b.Bucket(bucketDocs).Get(key), &doc)
	})
	return doc, err
}

// Indexes returns the settings of every stored index, ordered by name.
func (s *DocumentStore) Indexes() ([]config.IndexSettings, error) {
	indexes := make([]config.IndexSettings, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketIndexes)
		return root.ForEach(func(k, v []byte) error {
			b := root.Bucket(k)
			if b == nil {
				return nil
			}
			var settings config.IndexSettings
			if err := json.Unmarshal(b.Get(keySettings), &settings); err != nil {
				return fmt.Errorf("failed to decode settings of index '%s': %w", k, err)
			}
			indexes = append(indexes, settings)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return indexes, nil
}

func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// NopSourceStore keeps nothing. It backs engines running purely in memory.
type NopSourceStore struct{}

func (NopSourceStore) SaveSettings(config.IndexSettings) error           { return nil }
func (NopSourceStore) DeleteIndex(string) error                          { return nil }
func (NopSourceStore) AppendDocuments(string, []model.RawDocument) error { return nil }
func (NopSourceStore) Documents(string) ([]model.RawDocument, error) {
	return []model.RawDocument{}, nil
}
func (NopSourceStore) Document(index, id string) (model.RawDocument, error) {
	return model.RawDocument{}, internalErrors.NewDocumentNotFoundError(id, index)
}
func (NopSourceStore) Indexes() ([]config.IndexSettings, error) {
	return []config.IndexSettings{}, nil
}
func (NopSourceStore) Close() error { return nil }
