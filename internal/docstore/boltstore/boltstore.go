// Package boltstore is the persistent engine: one bbolt bucket per
// collection, documents stored under their id in the tagged JSON encoding.
// It must behave exactly like memstore for everything the conformance
// testsuite covers; the only extra behavior is surviving a reopen.
package boltstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/driftbase/driftdb/internal/docstore"
	"github.com/driftbase/driftdb/internal/docstore/hub"
)

const storeFileName = "documents.db"

type Store struct {
	mu    sync.Mutex
	db    *bbolt.DB
	clock docstore.Clock
	hub   *hub.Hub
}

type Options struct {
	// RootDir is the directory holding the database file. Created when
	// missing.
	RootDir string
	// Clock resolves the server-timestamp sentinel. Defaults to the system
	// clock when nil.
	Clock docstore.Clock
}

// New opens (or creates) the database and primes the subscription hub's
// value cache from disk, so watches attached before the first mutation see
// the persisted state.
func New(options Options) (*Store, error) {
	if options.RootDir == "" {
		return nil, errors.New("root directory is not specified")
	}
	if err := os.MkdirAll(options.RootDir, 0o744); err != nil {
		return nil, errors.Wrap(err, "failed to open data directory")
	}
	filePath := filepath.Join(options.RootDir, storeFileName)
	db, err := bbolt.Open(filePath, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open store file")
	}
	log.Infof("opened document store at %s", filePath)

	clock := options.Clock
	if clock == nil {
		clock = docstore.SystemClock()
	}
	s := &Store{
		db:    db,
		clock: clock,
		hub:   hub.New(),
	}
	if err := s.primeHub(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) primeHub() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, bucket *bbolt.Bucket) error {
			docs := make(map[string]docstore.Document)
			err := bucket.ForEach(func(k, v []byte) error {
				doc, err := decodeDocument(v)
				if err != nil {
					return err
				}
				docs[string(k)] = doc
				return nil
			})
			if err != nil {
				return err
			}
			s.hub.Prime(string(name), docs)
			return nil
		})
	})
}

func (s *Store) Set(collection, id string, data docstore.Document) error {
	if err := docstore.ValidateNames(collection, id); err != nil {
		return err
	}
	if data == nil {
		return docstore.ErrDataInvalid
	}
	resolved := docstore.ResolveTimestamps(data, s.clock)
	payload, err := encodeDocument(resolved)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var docs map[string]docstore.Document
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(id), payload); err != nil {
			return err
		}
		docs, err = readBucket(bucket)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to write document")
	}
	s.hub.Publish(collection, id, docs)
	return nil
}

func (s *Store) Update(collection, id string, data docstore.Document) error {
	if err := docstore.ValidateNames(collection, id); err != nil {
		return err
	}
	if data == nil {
		return docstore.ErrDataInvalid
	}
	resolved := docstore.ResolveTimestamps(data, s.clock)

	s.mu.Lock()
	defer s.mu.Unlock()
	var docs map[string]docstore.Document
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		var existing docstore.Document
		if raw := bucket.Get([]byte(id)); raw != nil {
			existing, err = decodeDocument(raw)
			if err != nil {
				return err
			}
		}
		payload, err := encodeDocument(existing.Merge(resolved))
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(id), payload); err != nil {
			return err
		}
		docs, err = readBucket(bucket)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to update document")
	}
	s.hub.Publish(collection, id, docs)
	return nil
}

func (s *Store) Delete(collection, id string) error {
	if err := docstore.ValidateNames(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var docs map[string]docstore.Document
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return err
		}
		var err error
		docs, err = readBucket(bucket)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	s.hub.Publish(collection, id, docs)
	return nil
}

func (s *Store) Get(collection, id string) (docstore.Document, bool, error) {
	if err := docstore.ValidateNames(collection, id); err != nil {
		return nil, false, err
	}
	var doc docstore.Document
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return nil
		}
		var err error
		doc, err = decodeDocument(raw)
		found = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return doc, found, nil
}

func (s *Store) GetAll(collection string) (map[string]docstore.Document, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}
	var docs map[string]docstore.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		var err error
		docs, err = readBucket(bucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs, nil
}

func (s *Store) Exists(collection, id string) (bool, error) {
	if err := docstore.ValidateNames(collection, id); err != nil {
		return false, err
	}
	exists := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		exists = bucket.Get([]byte(id)) != nil
		return nil
	})
	return exists, err
}

func (s *Store) ExistsWhere(collection string, where docstore.Where) (bool, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return false, err
	}
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			if found {
				return nil
			}
			doc, err := decodeDocument(v)
			if err != nil {
				return err
			}
			if where.Matches(doc) {
				found = true
			}
			return nil
		})
	})
	return found, err
}

func (s *Store) Query(collection string, where docstore.Where) ([]docstore.Match, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}
	matches := make([]docstore.Match, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			doc, err := decodeDocument(v)
			if err != nil {
				return err
			}
			if where.Matches(doc) {
				matches = append(matches, docstore.Match{ID: string(k), Doc: doc})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *Store) WatchDoc(collection, id string) (*docstore.Subscription[docstore.DocEvent], error) {
	return s.hub.WatchDoc(collection, id)
}

func (s *Store) WatchCollection(collection string) (*docstore.Subscription[docstore.CollectionEvent], error) {
	return s.hub.WatchCollection(collection)
}

func (s *Store) WatchQuery(collection string, where docstore.Where) (*docstore.Subscription[docstore.QueryEvent], error) {
	return s.hub.WatchQuery(collection, where)
}

func (s *Store) Close() error {
	hubErr := s.hub.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return hubErr
}

func readBucket(bucket *bbolt.Bucket) (map[string]docstore.Document, error) {
	docs := make(map[string]docstore.Document)
	err := bucket.ForEach(func(k, v []byte) error {
		doc, err := decodeDocument(v)
		if err != nil {
			return err
		}
		docs[string(k)] = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func encodeDocument(doc docstore.Document) ([]byte, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode document")
	}
	return payload, nil
}

func decodeDocument(payload []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode document")
	}
	return doc, nil
}
