package testsuite

import (
	"fmt"

	"github.com/driftbase/driftdb/internal/docstore"
)

// Test for the basic write/read round trip.
// A document written with Set must be returned unchanged by Get, and the
// collection must have been created lazily by the write.
func (s *storageTestSuite) TestDocumentKeeper_SetGet() {
	data := doc(map[string]interface{}{"a": 1, "name": "first"})
	s.Require().NoError(s.storage.Set("c", "1", data))

	got, ok, err := s.storage.Get("c", "1")
	s.Require().NoError(err)
	s.Require().True(ok, "document should exist after Set")
	s.Assert().True(data.Equal(got), "document does not match after round trip")

	exists, err := s.storage.Exists("c", "1")
	s.Require().NoError(err)
	s.Assert().True(exists)
}

// Test that Set replaces the document wholesale instead of merging.
func (s *storageTestSuite) TestDocumentKeeper_SetReplaces() {
	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{"a": 1, "b": 2})))
	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{"b": 3})))

	got, ok, err := s.storage.Get("c", "1")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().True(got.Equal(doc(map[string]interface{}{"b": 3})), "old fields should not survive a Set")
}

// Test that Update is a shallow merge, not a replace.
// Fields absent from the update payload survive; fields present are
// overwritten wholesale, including nested maps.
func (s *storageTestSuite) TestDocumentKeeper_UpdateMerges() {
	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{"a": 1, "b": 2})))
	s.Require().NoError(s.storage.Update("c", "1", doc(map[string]interface{}{"b": 3})))

	got, ok, err := s.storage.Get("c", "1")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().True(got.Equal(doc(map[string]interface{}{"a": 1, "b": 3})))

	// Nested maps are replaced, not merged recursively.
	s.Require().NoError(s.storage.Set("c", "2", doc(map[string]interface{}{
		"meta": map[string]interface{}{"x": 1, "y": 2},
	})))
	s.Require().NoError(s.storage.Update("c", "2", doc(map[string]interface{}{
		"meta": map[string]interface{}{"x": 9},
	})))
	got, _, err = s.storage.Get("c", "2")
	s.Require().NoError(err)
	s.Assert().True(got.Equal(doc(map[string]interface{}{
		"meta": map[string]interface{}{"x": 9},
	})))
}

// Test that Update creates the document when it does not exist yet.
func (s *storageTestSuite) TestDocumentKeeper_UpdateCreates() {
	s.Require().NoError(s.storage.Update("c", "fresh", doc(map[string]interface{}{"a": 1})))

	got, ok, err := s.storage.Get("c", "fresh")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().True(got.Equal(doc(map[string]interface{}{"a": 1})))
}

// Test delete semantics: Get falls back to the default, Exists turns false,
// and deleting again (or deleting something that never existed) is a no-op
// that leaves unrelated documents alone.
func (s *storageTestSuite) TestDocumentKeeper_Delete() {
	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{"a": 1})))
	s.Require().NoError(s.storage.Set("c", "2", doc(map[string]interface{}{"a": 2})))

	s.Require().NoError(s.storage.Delete("c", "1"))

	fallback := doc(map[string]interface{}{})
	got, err := docstore.GetOr(s.storage, "c", "1", fallback)
	s.Require().NoError(err)
	s.Assert().True(got.Equal(fallback), "Get after Delete should return the default")

	exists, err := s.storage.Exists("c", "1")
	s.Require().NoError(err)
	s.Assert().False(exists)

	// Idempotent: repeat delete and delete of a never-written id.
	s.Require().NoError(s.storage.Delete("c", "1"))
	s.Require().NoError(s.storage.Delete("c", "no-such-id"))

	got, ok, err := s.storage.Get("c", "2")
	s.Require().NoError(err)
	s.Require().True(ok, "unrelated document should survive deletes")
	s.Assert().True(got.Equal(doc(map[string]interface{}{"a": 2})))
}

// Test that a missing collection behaves as an empty one for every read.
func (s *storageTestSuite) TestDocumentKeeper_MissingCollection() {
	_, ok, err := s.storage.Get("nope", "1")
	s.Require().NoError(err)
	s.Assert().False(ok)

	all, err := s.storage.GetAll("nope")
	s.Require().NoError(err)
	s.Assert().Nil(all)

	exists, err := s.storage.Exists("nope", "1")
	s.Require().NoError(err)
	s.Assert().False(exists)

	found, err := s.storage.ExistsWhere("nope", where(map[string]interface{}{"a": 1}))
	s.Require().NoError(err)
	s.Assert().False(found)

	matches, err := s.storage.Query("nope", nil)
	s.Require().NoError(err)
	s.Assert().Empty(matches)
}

// Test GetAll over a populated collection.
func (s *storageTestSuite) TestDocumentKeeper_GetAll() {
	n := 10
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%d", i)
		s.Require().NoError(s.storage.Set("c", id, doc(map[string]interface{}{"n": i})))
	}
	all, err := s.storage.GetAll("c")
	s.Require().NoError(err)
	s.Require().Len(all, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%d", i)
		s.Assert().True(all[id].Equal(doc(map[string]interface{}{"n": i})), "document %s does not match", id)
	}
}

// Test the query predicate: exact equality per field, conjunction over
// fields, empty filter as the universal matcher.
func (s *storageTestSuite) TestDocumentKeeper_Query() {
	s.Require().NoError(s.storage.Set("tasks", "1", doc(map[string]interface{}{"status": "active", "owner": "ann"})))
	s.Require().NoError(s.storage.Set("tasks", "2", doc(map[string]interface{}{"status": "done", "owner": "ann"})))
	s.Require().NoError(s.storage.Set("tasks", "3", doc(map[string]interface{}{"status": "active", "owner": "bob"})))

	matches, err := s.storage.Query("tasks", where(map[string]interface{}{"status": "active"}))
	s.Require().NoError(err)
	s.Require().Len(matches, 2)
	for _, m := range matches {
		s.Assert().Contains([]string{"1", "3"}, m.ID)
	}

	matches, err = s.storage.Query("tasks", where(map[string]interface{}{"status": "active", "owner": "ann"}))
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.Assert().Equal("1", matches[0].ID)

	matches, err = s.storage.Query("tasks", nil)
	s.Require().NoError(err)
	s.Assert().Len(matches, 3, "empty filter should match everything")

	matches, err = s.storage.Query("tasks", where(map[string]interface{}{"status": "archived"}))
	s.Require().NoError(err)
	s.Assert().Empty(matches)

	// A document lacking the filtered field never matches a non-null value.
	matches, err = s.storage.Query("tasks", where(map[string]interface{}{"missing": "x"}))
	s.Require().NoError(err)
	s.Assert().Empty(matches)
}

// Test ExistsWhere against present, absent and universal filters.
func (s *storageTestSuite) TestDocumentKeeper_ExistsWhere() {
	s.Require().NoError(s.storage.Set("tasks", "1", doc(map[string]interface{}{"status": "active"})))
	s.Require().NoError(s.storage.Set("tasks", "2", doc(map[string]interface{}{"status": "done"})))

	found, err := s.storage.ExistsWhere("tasks", where(map[string]interface{}{"status": "done"}))
	s.Require().NoError(err)
	s.Assert().True(found)

	found, err = s.storage.ExistsWhere("tasks", where(map[string]interface{}{"status": "archived"}))
	s.Require().NoError(err)
	s.Assert().False(found)

	found, err = s.storage.ExistsWhere("tasks", nil)
	s.Require().NoError(err)
	s.Assert().True(found, "empty filter should match any non-empty collection")
}

// Test that invalid names are rejected before any state changes.
func (s *storageTestSuite) TestDocumentKeeper_Validation() {
	data := doc(map[string]interface{}{"a": 1})

	s.Assert().ErrorIs(s.storage.Set("", "1", data), docstore.ErrCollectionEmpty)
	s.Assert().ErrorIs(s.storage.Set("c", "  ", data), docstore.ErrDocIDEmpty)
	s.Assert().ErrorIs(s.storage.Set("c", "1", nil), docstore.ErrDataInvalid)
	s.Assert().ErrorIs(s.storage.Update("", "1", data), docstore.ErrCollectionEmpty)
	s.Assert().ErrorIs(s.storage.Delete("c", ""), docstore.ErrDocIDEmpty)
	_, _, err := s.storage.Get("", "1")
	s.Assert().ErrorIs(err, docstore.ErrCollectionEmpty)
	_, err = s.storage.GetAll(" ")
	s.Assert().ErrorIs(err, docstore.ErrCollectionEmpty)

	// Nothing was written along the way.
	all, err := s.storage.GetAll("c")
	s.Require().NoError(err)
	s.Assert().Nil(all)
}

// Test that the timestamp sentinel is substituted at the top level only.
func (s *storageTestSuite) TestDocumentKeeper_TimestampSentinel() {
	s.Require().NoError(s.storage.Set("c", "1", doc(map[string]interface{}{
		"created": docstore.TimestampSentinel,
		"nested":  map[string]interface{}{"inner": docstore.TimestampSentinel},
	})))

	got, ok, err := s.storage.Get("c", "1")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().Equal(docstore.KindTime, got["created"].Kind, "top-level sentinel should resolve to a time")
	s.Assert().Equal(docstore.KindServerTimestamp, got["nested"].Map["inner"].Kind, "nested sentinel should be stored as-is")

	s.Require().NoError(s.storage.Update("c", "1", doc(map[string]interface{}{
		"updated": docstore.TimestampSentinel,
	})))
	got, _, err = s.storage.Get("c", "1")
	s.Require().NoError(err)
	s.Assert().Equal(docstore.KindTime, got["updated"].Kind, "Update should resolve the sentinel too")
}
