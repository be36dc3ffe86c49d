package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbase/driftdb/internal/docstore"
)

func TestPrimeSeedsWithoutEmitting(t *testing.T) {
	h := New()
	defer h.Close()

	h.Prime("c", map[string]docstore.Document{
		"1": {"a": docstore.Int(1)},
	})

	sub, err := h.WatchDoc("c", "1")
	require.NoError(t, err)
	defer sub.Cancel()

	ev := <-sub.C()
	require.True(t, ev.Exists, "primed state should back the initial snapshot")
	assert.True(t, ev.Doc.Equal(docstore.Document{"a": docstore.Int(1)}))

	select {
	case ev := <-sub.C():
		t.Fatalf("unexpected emission: %+v", ev)
	default:
	}
}

func TestPublishUpdatesCache(t *testing.T) {
	h := New()
	defer h.Close()

	h.Publish("c", "1", map[string]docstore.Document{
		"1": {"a": docstore.Int(1)},
	})

	sub, err := h.WatchCollection("c")
	require.NoError(t, err)
	defer sub.Cancel()
	ev := <-sub.C()
	require.Len(t, ev.Docs, 1)
}

func TestCloseRetiresEverything(t *testing.T) {
	h := New()
	sub, err := h.WatchDoc("c", "1")
	require.NoError(t, err)
	<-sub.C()

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, open := <-sub.C()
	assert.False(t, open, "channels should be closed by hub shutdown")

	// Publishing into a closed hub is dropped, cancelling is harmless.
	h.Publish("c", "1", nil)
	sub.Cancel()

	_, err = h.WatchDoc("c", "1")
	assert.ErrorIs(t, err, docstore.ErrHubClosed)
	_, err = h.WatchCollection("c")
	assert.ErrorIs(t, err, docstore.ErrHubClosed)
	_, err = h.WatchQuery("c", nil)
	assert.ErrorIs(t, err, docstore.ErrHubClosed)
}

func TestSlowListenerDropsInsteadOfBlocking(t *testing.T) {
	h := New()
	defer h.Close()

	sub, err := h.WatchDoc("c", "1")
	require.NoError(t, err)
	defer sub.Cancel()

	// Never read; overflow the buffer. Publish must not block.
	for i := 0; i < subscriptionBuffer*2; i++ {
		h.Publish("c", "1", map[string]docstore.Document{
			"1": {"n": docstore.Int(int64(i))},
		})
	}
}
