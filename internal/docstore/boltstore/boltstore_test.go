package boltstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/driftbase/driftdb/internal/docstore"
	"github.com/driftbase/driftdb/internal/docstore/testsuite"
)

func TestStorage(t *testing.T) {
	testSuite := testsuite.NewTestSuite(func() docstore.Storage {
		storage, err := New(Options{RootDir: t.TempDir()})
		if err != nil {
			t.Fatal(err)
		}
		return storage
	})
	suite.Run(t, testSuite)
}

// Documents must survive a close/reopen cycle, and a watch attached after
// reopen must replay the persisted value.
func TestReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := New(Options{RootDir: dir})
	require.NoError(t, err)
	require.NoError(t, store.Set("c", "1", docstore.Document{
		"a":    docstore.Int(1),
		"tags": docstore.List(docstore.String("x"), docstore.String("y")),
	}))
	require.NoError(t, store.Close())

	store, err = New(Options{RootDir: dir})
	require.NoError(t, err)
	defer store.Close()

	got, ok, err := store.Get("c", "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(docstore.Document{
		"a":    docstore.Int(1),
		"tags": docstore.List(docstore.String("x"), docstore.String("y")),
	}))

	sub, err := store.WatchDoc("c", "1")
	require.NoError(t, err)
	defer sub.Cancel()
	ev := <-sub.C()
	require.True(t, ev.Exists, "watch after reopen should replay the persisted document")
	assert.True(t, ev.Doc.Equal(got))
}

// Close must retire the hub (closing subscriber channels) and release the
// database without either error masking the other.
func TestClose(t *testing.T) {
	store, err := New(Options{RootDir: t.TempDir()})
	require.NoError(t, err)

	sub, err := store.WatchDoc("c", "1")
	require.NoError(t, err)
	<-sub.C()

	require.NoError(t, store.Close())
	_, open := <-sub.C()
	assert.False(t, open, "subscriber channel should be closed on store close")
}

func TestMissingRootDir(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
