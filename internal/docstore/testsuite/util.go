package testsuite

import (
	"time"

	"github.com/driftbase/driftdb/internal/docstore"
)

const recvTimeout = 2 * time.Second

func doc(fields map[string]interface{}) docstore.Document {
	d, err := docstore.FromGoDocument(fields)
	if err != nil {
		panic(err)
	}
	return d
}

func where(fields map[string]interface{}) docstore.Where {
	w, err := docstore.FromGoWhere(fields)
	if err != nil {
		panic(err)
	}
	return w
}

// recv waits for the next emission or gives up after recvTimeout.
func recv[T any](ch <-chan T) (T, bool) {
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(recvTimeout):
		var zero T
		return zero, false
	}
}

// drainEmpty reports whether no emission arrives within the grace period.
func drainEmpty[T any](ch <-chan T) bool {
	select {
	case _, ok := <-ch:
		return !ok
	case <-time.After(50 * time.Millisecond):
		return true
	}
}
