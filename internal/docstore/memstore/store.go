// Package memstore is the in-memory reference engine. It is the behavioral
// baseline for every other engine: anything the conformance testsuite
// asserts is defined by what this implementation does.
package memstore

import (
	"sync"

	"github.com/driftbase/driftdb/internal/docstore"
	"github.com/driftbase/driftdb/internal/docstore/hub"
)

// Store holds collections of documents entirely in memory. Mutations are
// atomic with respect to each other; the hub is notified while the write
// lock is still held so emission order always matches mutation order.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Document
	clock       docstore.Clock
	closed      bool

	hub *hub.Hub
}

type Options struct {
	// Clock resolves the server-timestamp sentinel. Defaults to the system
	// clock when nil.
	Clock docstore.Clock
}

func New(options Options) *Store {
	clock := options.Clock
	if clock == nil {
		clock = docstore.SystemClock()
	}
	return &Store{
		collections: make(map[string]map[string]docstore.Document),
		clock:       clock,
		hub:         hub.New(),
	}
}

func (s *Store) Set(collection, id string, data docstore.Document) error {
	if err := docstore.ValidateNames(collection, id); err != nil {
		return err
	}
	if data == nil {
		return docstore.ErrDataInvalid
	}
	resolved := docstore.ResolveTimestamps(data, s.clock)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrStoreClosed
	}
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]docstore.Document)
		s.collections[collection] = docs
	}
	docs[id] = resolved
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
	if s.closed {
		return docstore.ErrStoreClosed
	}
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]docstore.Document)
		s.collections[collection] = docs
	}
	docs[id] = docs[id].Merge(resolved)
	s.hub.Publish(collection, id, docs)
	return nil
}

func (s *Store) Delete(collection, id string) error {
	if err := docstore.ValidateNames(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrStoreClosed
	}
	docs := s.collections[collection]
	delete(docs, id)
	// Watchers of a never-written id still observe the "not found" state.
	s.hub.Publish(collection, id, docs)
	return nil
}

func (s *Store) Get(collection, id string) (docstore.Document, bool, error) {
	if err := docstore.ValidateNames(collection, id); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, false, nil
	}
	return doc.Clone(), true, nil
}

func (s *Store) GetAll(collection string) (map[string]docstore.Document, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.collections[collection]
	if len(docs) == 0 {
		return nil, nil
	}
	out := make(map[string]docstore.Document, len(docs))
	for docID, doc := range docs {
		out[docID] = doc.Clone()
	}
	return out, nil
}

func (s *Store) Exists(collection, id string) (bool, error) {
	if err := docstore.ValidateNames(collection, id); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection][id]
	return ok, nil
}

func (s *Store) ExistsWhere(collection string, where docstore.Where) (bool, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.collections[collection] {
		if where.Matches(doc) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Query(collection string, where docstore.Where) ([]docstore.Match, error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]docstore.Match, 0)
	for id, doc := range s.collections[collection] {
		if where.Matches(doc) {
			matches = append(matches, docstore.Match{ID: id, Doc: doc.Clone()})
		}
	}
	return matches, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.collections = nil
	return s.hub.Close()
}

// WatchDoc follows a single document; see docstore.WatchKeeper.
func (s *Store) WatchDoc(collection, id string) (*docstore.Subscription[docstore.DocEvent], error) {
	return s.hub.WatchDoc(collection, id)
}

// WatchCollection follows the whole collection mapping.
func (s *Store) WatchCollection(collection string) (*docstore.Subscription[docstore.CollectionEvent], error) {
	return s.hub.WatchCollection(collection)
}

// WatchQuery follows the set of documents matching the filter.
func (s *Store) WatchQuery(collection string, where docstore.Where) (*docstore.Subscription[docstore.QueryEvent], error) {
	return s.hub.WatchQuery(collection, where)
}
