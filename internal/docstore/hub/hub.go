// Package hub multiplexes watch subscriptions over the mutations of a
// document engine. It keeps one broadcast group per distinct subscription
// key and a per-collection cache of the engine's current state, so a new
// listener can be handed its initial snapshot without reading the engine.
package hub

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/driftbase/driftdb/internal/docstore"
)

// subscriptionBuffer is the channel capacity of each listener. A listener
// that falls this far behind starts losing emissions rather than blocking
// the write path.
const subscriptionBuffer = 64

type group[T any] struct {
	subs map[uuid.UUID]*docstore.Subscription[T]
}

func newGroup[T any]() *group[T] {
	return &group[T]{subs: make(map[uuid.UUID]*docstore.Subscription[T])}
}

func (g *group[T]) publish(v T) {
	for _, sub := range g.subs {
		sub.Send(v)
	}
}

// queryGroup additionally remembers the filter so emissions can be
// recomputed on every mutation of the collection.
type queryGroup struct {
	collection string
	where      docstore.Where
	group      *group[docstore.QueryEvent]
}

// Hub is the subscription half of an engine. Engines call Publish under
// their own write lock, which serializes emissions in mutation order.
type Hub struct {
	mu     sync.Mutex
	closed bool

	// state is the current-value cache, updated by Prime and Publish.
	// Engines that start empty never need to Prime; persistent engines
	// seed it from disk on open.
	state map[string]map[string]docstore.Document

	docGroups   map[string]*group[docstore.DocEvent]
	collGroups  map[string]*group[docstore.CollectionEvent]
	queryGroups map[string]*queryGroup
}

func New() *Hub {
	return &Hub{
		state:       make(map[string]map[string]docstore.Document),
		docGroups:   make(map[string]*group[docstore.DocEvent]),
		collGroups:  make(map[string]*group[docstore.CollectionEvent]),
		queryGroups: make(map[string]*queryGroup),
	}
}

// Keys quote each component so names holding the separator characters
// cannot make two distinct scopes derive the same key.
func docKey(collection, id string) string {
	return fmt.Sprintf("doc:%s/%s", strconv.Quote(collection), strconv.Quote(id))
}

func queryKey(collection string, where docstore.Where) string {
	return fmt.Sprintf("query:%s?%s", strconv.Quote(collection), where.Canonical())
}

// Prime seeds the current-value cache for a collection without emitting.
func (h *Hub) Prime(collection string, docs map[string]docstore.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.state[collection] = cloneCollection(docs)
}

// Publish records the post-mutation state of a collection and fans the
// change out: the exact document group for id, the whole-collection group,
// and every query group registered against the collection. docs must be the
// complete mapping after the mutation; the hub keeps its own copy.
func (h *Hub) Publish(collection, id string, docs map[string]docstore.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.state[collection] = cloneCollection(docs)

	if g, ok := h.docGroups[docKey(collection, id)]; ok {
		g.publish(h.docEventLocked(collection, id))
	}
	if g, ok := h.collGroups[collection]; ok {
		g.publish(h.collectionEventLocked(collection))
	}
	for _, qg := range h.queryGroups {
		if qg.collection != collection {
			continue
		}
		qg.group.publish(h.queryEventLocked(collection, qg.where))
	}
}

// WatchDoc attaches a listener to the document's broadcast group and queues
// the current value as its first emission.
func (h *Hub) WatchDoc(collection, id string) (*docstore.Subscription[docstore.DocEvent], error) {
	if err := docstore.ValidateNames(collection, id); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, docstore.ErrHubClosed
	}
	key := docKey(collection, id)
	g, ok := h.docGroups[key]
	if !ok {
		g = newGroup[docstore.DocEvent]()
		h.docGroups[key] = g
	}
	sub := docstore.NewSubscription[docstore.DocEvent](subscriptionBuffer, func(subID uuid.UUID) {
		h.cancelDoc(key, subID)
	})
	g.subs[sub.ID()] = sub
	sub.Send(h.docEventLocked(collection, id))
	return sub, nil
}

// WatchCollection attaches a listener to the collection's broadcast group.
func (h *Hub) WatchCollection(collection string) (*docstore.Subscription[docstore.CollectionEvent], error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, docstore.ErrHubClosed
	}
	g, ok := h.collGroups[collection]
	if !ok {
		g = newGroup[docstore.CollectionEvent]()
		h.collGroups[collection] = g
	}
	sub := docstore.NewSubscription[docstore.CollectionEvent](subscriptionBuffer, func(subID uuid.UUID) {
		h.cancelCollection(collection, subID)
	})
	g.subs[sub.ID()] = sub
	sub.Send(h.collectionEventLocked(collection))
	return sub, nil
}

// WatchQuery attaches a listener to the filter's broadcast group. The key is
// derived from the canonical filter form, so logically equal filters land in
// the same group no matter how their maps were built.
func (h *Hub) WatchQuery(collection string, where docstore.Where) (*docstore.Subscription[docstore.QueryEvent], error) {
	if err := docstore.ValidateCollection(collection); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, docstore.ErrHubClosed
	}
	key := queryKey(collection, where)
	qg, ok := h.queryGroups[key]
	if !ok {
		qg = &queryGroup{
			collection: collection,
			where:      cloneWhere(where),
			group:      newGroup[docstore.QueryEvent](),
		}
		h.queryGroups[key] = qg
	}
	sub := docstore.NewSubscription[docstore.QueryEvent](subscriptionBuffer, func(subID uuid.UUID) {
		h.cancelQuery(key, subID)
	})
	qg.group.subs[sub.ID()] = sub
	sub.Send(h.queryEventLocked(collection, qg.where))
	return sub, nil
}

// Close retires every broadcast group. Further Publish calls are dropped and
// further watch calls fail with ErrHubClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, g := range h.docGroups {
		for _, sub := range g.subs {
			sub.CloseChan()
		}
	}
	for _, g := range h.collGroups {
		for _, sub := range g.subs {
			sub.CloseChan()
		}
	}
	for _, qg := range h.queryGroups {
		for _, sub := range qg.group.subs {
			sub.CloseChan()
		}
	}
	h.docGroups = nil
	h.collGroups = nil
	h.queryGroups = nil
	h.state = nil
	log.Debug("subscription hub closed")
	return nil
}

func (h *Hub) cancelDoc(key string, subID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.docGroups[key]
	if !ok {
		return
	}
	sub, ok := g.subs[subID]
	if !ok {
		return
	}
	delete(g.subs, subID)
	sub.CloseChan()
	if len(g.subs) == 0 {
		delete(h.docGroups, key)
	}
}

func (h *Hub) cancelCollection(collection string, subID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.collGroups[collection]
	if !ok {
		return
	}
	sub, ok := g.subs[subID]
	if !ok {
		return
	}
	delete(g.subs, subID)
	sub.CloseChan()
	if len(g.subs) == 0 {
		delete(h.collGroups, collection)
	}
}

func (h *Hub) cancelQuery(key string, subID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	qg, ok := h.queryGroups[key]
	if !ok {
		return
	}
	sub, ok := qg.group.subs[subID]
	if !ok {
		return
	}
	delete(qg.group.subs, subID)
	sub.CloseChan()
	if len(qg.group.subs) == 0 {
		delete(h.queryGroups, key)
	}
}

func (h *Hub) docEventLocked(collection, id string) docstore.DocEvent {
	ev := docstore.DocEvent{Collection: collection, ID: id}
	if doc, ok := h.state[collection][id]; ok {
		ev.Exists = true
		ev.Doc = doc.Clone()
	}
	return ev
}

func (h *Hub) collectionEventLocked(collection string) docstore.CollectionEvent {
	ev := docstore.CollectionEvent{Collection: collection}
	if docs := h.state[collection]; len(docs) > 0 {
		ev.Docs = cloneCollection(docs)
	}
	return ev
}

func (h *Hub) queryEventLocked(collection string, where docstore.Where) docstore.QueryEvent {
	ev := docstore.QueryEvent{Collection: collection}
	for id, doc := range h.state[collection] {
		if where.Matches(doc) {
			ev.Matches = append(ev.Matches, docstore.Match{ID: id, Doc: doc.Clone()})
		}
	}
	return ev
}

func cloneCollection(docs map[string]docstore.Document) map[string]docstore.Document {
	out := make(map[string]docstore.Document, len(docs))
	for id, doc := range docs {
		out[id] = doc.Clone()
	}
	return out
}

func cloneWhere(where docstore.Where) docstore.Where {
	out := make(docstore.Where, len(where))
	for field, v := range where {
		out[field] = v.Clone()
	}
	return out
}
