package testsuite

import "github.com/driftbase/driftdb/internal/docstore"

// Test the subscribe-then-replay contract on a single document: an initial
// "absent" emission, then one emission per mutation, in mutation order.
func (s *storageTestSuite) TestWatchKeeper_DocReplay() {
	sub, err := s.storage.WatchDoc("c", "1")
	s.Require().NoError(err)
	defer sub.Cancel()

	ev, ok := recv(sub.C())
	s.Require().True(ok, "initial emission missing")
	s.Assert().False(ev.Exists, "document should be absent initially")
	s.Assert().Equal("c", ev.Collection)
	s.Assert().Equal("1", ev.ID)

	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{"a": 1})))
	ev, ok = recv(sub.C())
	s.Require().True(ok, "emission after Set missing")
	s.Require().True(ev.Exists)
	s.Assert().True(ev.Doc.Equal(doc(map[string]interface{}{"a": 1})))

	s.Require().NoError(s.storage.Update("c", "1", doc(map[string]interface{}{"b": 2})))
	ev, ok = recv(sub.C())
	s.Require().True(ok, "emission after Update missing")
	s.Assert().True(ev.Doc.Equal(doc(map[string]interface{}{"a": 1, "b": 2})))

	s.Require().NoError(s.storage.Delete("c", "1"))
	ev, ok = recv(sub.C())
	s.Require().True(ok, "emission after Delete missing")
	s.Assert().False(ev.Exists, "watcher should observe the transition to not found")
}

// Test that a watch attached to an existing document replays its current
// value first.
func (s *storageTestSuite) TestWatchKeeper_DocReplayExisting() {
	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{"a": 1})))

	sub, err := s.storage.WatchDoc("c", "1")
	s.Require().NoError(err)
	defer sub.Cancel()

	ev, ok := recv(sub.C())
	s.Require().True(ok)
	s.Require().True(ev.Exists)
	s.Assert().True(ev.Doc.Equal(doc(map[string]interface{}{"a": 1})))
}

// Test whole-collection watches: nil mapping while empty, the full mapping
// after each relevant mutation.
func (s *storageTestSuite) TestWatchKeeper_Collection() {
	sub, err := s.storage.WatchCollection("c")
	s.Require().NoError(err)
	defer sub.Cancel()

	ev, ok := recv(sub.C())
	s.Require().True(ok)
	s.Assert().Nil(ev.Docs, "empty collection should emit a nil mapping")

	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{"a": 1})))
	ev, ok = recv(sub.C())
	s.Require().True(ok)
	s.Require().Len(ev.Docs, 1)

	s.Require().NoError(s.storage.Set("c", "2", doc(map[string]interface{}{"a": 2})))
	ev, ok = recv(sub.C())
	s.Require().True(ok)
	s.Require().Len(ev.Docs, 2)
	s.Assert().True(ev.Docs["2"].Equal(doc(map[string]interface{}{"a": 2})))

	s.Require().NoError(s.storage.Delete("c", "1"))
	ev, ok = recv(sub.C())
	s.Require().True(ok)
	s.Require().Len(ev.Docs, 1)
}

// Test filtered watches: the initial emission carries the current matching
// set and every mutation to the collection recomputes it.
func (s *storageTestSuite) TestWatchKeeper_Query() {
	s.Require().NoError(s.storage.Set("tasks", "1", doc(map[string]interface{}{"status": "active"})))
	s.Require().NoError(s.storage.Set("tasks", "2", doc(map[string]interface{}{"status": "done"})))

	sub, err := s.storage.WatchQuery("tasks", where(map[string]interface{}{"status": "active"}))
	s.Require().NoError(err)
	defer sub.Cancel()

	ev, ok := recv(sub.C())
	s.Require().True(ok)
	s.Require().Len(ev.Matches, 1)
	s.Assert().Equal("1", ev.Matches[0].ID)

	// A mutation that changes the matching set.
	s.Require().NoError(s.storage.Update("tasks", "2", doc(map[string]interface{}{"status": "active"})))
	ev, ok = recv(sub.C())
	s.Require().True(ok)
	s.Assert().Len(ev.Matches, 2)

	// A mutation that shrinks it again.
	s.Require().NoError(s.storage.Delete("tasks", "1"))
	ev, ok = recv(sub.C())
	s.Require().True(ok)
	s.Require().Len(ev.Matches, 1)
	s.Assert().Equal("2", ev.Matches[0].ID)
}

// Test that two filters with the same conditions built in different
// insertion orders attach to the same broadcast group and both observe the
// same emissions after one mutation.
func (s *storageTestSuite) TestWatchKeeper_QueryKeyCanonicalization() {
	w1 := docstore.Where{}
	w1["status"] = docstore.String("active")
	w1["owner"] = docstore.String("ann")
	w2 := docstore.Where{}
	w2["owner"] = docstore.String("ann")
	w2["status"] = docstore.String("active")

	sub1, err := s.storage.WatchQuery("tasks", w1)
	s.Require().NoError(err)
	defer sub1.Cancel()
	sub2, err := s.storage.WatchQuery("tasks", w2)
	s.Require().NoError(err)
	defer sub2.Cancel()

	// Drain both initial snapshots.
	_, ok := recv(sub1.C())
	s.Require().True(ok)
	_, ok = recv(sub2.C())
	s.Require().True(ok)

	s.Require().NoError(s.storage.Set("tasks", "1", doc(map[string]interface{}{"status": "active", "owner": "ann"})))

	ev1, ok := recv(sub1.C())
	s.Require().True(ok, "first listener missed the emission")
	ev2, ok := recv(sub2.C())
	s.Require().True(ok, "second listener missed the emission")
	s.Require().Len(ev1.Matches, 1)
	s.Require().Len(ev2.Matches, 1)
	s.Assert().Equal(ev1.Matches[0].ID, ev2.Matches[0].ID)
}

// Test broadcast fan-out and cancel isolation: many listeners per key each
// see every emission, cancelling one leaves the others attached, and a
// re-subscription after the last cancel starts over cleanly.
func (s *storageTestSuite) TestWatchKeeper_FanOutAndCancel() {
	sub1, err := s.storage.WatchDoc("c", "1")
	s.Require().NoError(err)
	sub2, err := s.storage.WatchDoc("c", "1")
	s.Require().NoError(err)

	_, ok := recv(sub1.C())
	s.Require().True(ok)
	_, ok = recv(sub2.C())
	s.Require().True(ok)

	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{"a": 1})))
	ev1, ok := recv(sub1.C())
	s.Require().True(ok)
	ev2, ok := recv(sub2.C())
	s.Require().True(ok)
	s.Assert().True(ev1.Doc.Equal(ev2.Doc), "both listeners should see the same emission")

	sub1.Cancel()
	sub1.Cancel() // cancel must be idempotent

	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{"a": 2})))
	s.Assert().True(drainEmpty(sub1.C()), "cancelled listener should receive nothing further")
	ev2, ok = recv(sub2.C())
	s.Require().True(ok, "surviving listener should keep receiving")
	s.Assert().True(ev2.Doc.Equal(doc(map[string]interface{}{"a": 2})))

	// Retire the key entirely, then attach a fresh listener.
	sub2.Cancel()
	sub3, err := s.storage.WatchDoc("c", "1")
	s.Require().NoError(err)
	defer sub3.Cancel()

	ev3, ok := recv(sub3.C())
	s.Require().True(ok, "re-subscription after last cancel should replay")
	s.Require().True(ev3.Exists)
	s.Assert().True(ev3.Doc.Equal(doc(map[string]interface{}{"a": 2})))

	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{"a": 3})))
	ev3, ok = recv(sub3.C())
	s.Require().True(ok)
	s.Assert().True(ev3.Doc.Equal(doc(map[string]interface{}{"a": 3})))
}

// Test that mutations in other collections or to other ids do not reach a
// document watch.
func (s *storageTestSuite) TestWatchKeeper_ScopeIsolation() {
	sub, err := s.storage.WatchDoc("c", "1")
	s.Require().NoError(err)
	defer sub.Cancel()
	_, ok := recv(sub.C())
	s.Require().True(ok)

	s.Require().NoError(s.storage.Set("c", "2", doc(map[string]interface{}{"a": 1})))
	s.Require().NoError(s.storage.Set("other", "1", doc(map[string]interface{}{"a": 1})))
	s.Assert().True(drainEmpty(sub.C()), "unrelated mutations should not emit")
}

// Test that names holding separator characters keep watch scopes apart:
// ("a/b", "c") and ("a", "b/c") are different documents and must not share
// a broadcast group.
func (s *storageTestSuite) TestWatchKeeper_SeparatorNamesStayIsolated() {
	other, err := s.storage.WatchDoc("a/b", "c")
	s.Require().NoError(err)
	defer other.Cancel()
	target, err := s.storage.WatchDoc("a", "b/c")
	s.Require().NoError(err)
	defer target.Cancel()

	_, ok := recv(other.C())
	s.Require().True(ok)
	_, ok = recv(target.C())
	s.Require().True(ok)

	s.Require().NoError(s.storage.Set("a", "b/c", doc(map[string]interface{}{"n": 1})))

	ev, ok := recv(target.C())
	s.Require().True(ok, "watcher of the mutated document missed the emission")
	s.Assert().Equal("a", ev.Collection)
	s.Assert().Equal("b/c", ev.ID)
	s.Assert().True(drainEmpty(other.C()), "watcher of an unrelated document must not receive the emission")

	// The same holds for filtered watches: ("a?b", {c:1}) and
	// ("a", {"b?c":1}) are different scopes and must not share a group.
	q1, err := s.storage.WatchQuery("a?b", where(map[string]interface{}{"c": 1}))
	s.Require().NoError(err)
	defer q1.Cancel()
	q2, err := s.storage.WatchQuery("a", where(map[string]interface{}{"b?c": 1}))
	s.Require().NoError(err)
	defer q2.Cancel()
	_, ok = recv(q1.C())
	s.Require().True(ok)
	_, ok = recv(q2.C())
	s.Require().True(ok)

	s.Require().NoError(s.storage.Set("a?b", "1", doc(map[string]interface{}{"c": 1})))
	ev1, ok := recv(q1.C())
	s.Require().True(ok, "query watcher on its own collection missed the emission")
	s.Assert().Len(ev1.Matches, 1)
	s.Assert().True(drainEmpty(q2.C()), "query watcher on another collection must not receive the emission")
}

// Test that watch calls validate their inputs.
func (s *storageTestSuite) TestWatchKeeper_Validation() {
	_, err := s.storage.WatchDoc("", "1")
	s.Assert().ErrorIs(err, docstore.ErrCollectionEmpty)
	_, err = s.storage.WatchDoc("c", " ")
	s.Assert().ErrorIs(err, docstore.ErrDocIDEmpty)
	_, err = s.storage.WatchCollection("")
	s.Assert().ErrorIs(err, docstore.ErrCollectionEmpty)
	_, err = s.storage.WatchQuery("", nil)
	s.Assert().ErrorIs(err, docstore.ErrCollectionEmpty)
}
