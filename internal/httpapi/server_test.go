package httpapi

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbase/driftdb/internal/docstore"
	"github.com/driftbase/driftdb/internal/docstore/memstore"
)

func memDoc(t *testing.T, fields map[string]interface{}) docstore.Document {
	t.Helper()
	d, err := docstore.FromGoDocument(fields)
	require.NoError(t, err)
	return d
}

func newTestServer(t *testing.T) (*httptest.Server, *memstore.Store) {
	t.Helper()
	store := memstore.New(memstore.Options{})
	ts := httptest.NewServer(NewServer(store))
	t.Cleanup(func() {
		ts.Close()
		store.Close()
	})
	return ts, store
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestCRUDRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPut, ts.URL+"/v1/c/tasks/1", `{"status":"active","n":1}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodGet, ts.URL+"/v1/c/tasks/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, "active", got["status"])

	resp = do(t, http.MethodPatch, ts.URL+"/v1/c/tasks/1", `{"status":"done"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodGet, ts.URL+"/v1/c/tasks", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all map[string]map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	resp.Body.Close()
	require.Len(t, all, 1)
	assert.Equal(t, "done", all["1"]["status"])

	resp = do(t, http.MethodDelete, ts.URL+"/v1/c/tasks/1", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodGet, ts.URL+"/v1/c/tasks/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestQueryEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPut, ts.URL+"/v1/c/tasks/1", `{"status":"active"}`)
	resp.Body.Close()
	resp = do(t, http.MethodPut, ts.URL+"/v1/c/tasks/2", `{"status":"done"}`)
	resp.Body.Close()

	resp = do(t, http.MethodPost, ts.URL+"/v1/c/tasks/query", `{"status":"active"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	resp.Body.Close()
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0]["id"])
	assert.Equal(t, "active", rows[0]["status"])
}

func TestInvalidInput(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPut, ts.URL+"/v1/c/tasks/1", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, http.MethodPut, ts.URL+"/v1/c/%20/1", `{"a":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestWatchStream(t *testing.T) {
	ts, store := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/v1/c/tasks/1/watch", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)

	readEvent := func() map[string]interface{} {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				var ev map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &ev))
				return ev
			}
		}
	}

	ev := readEvent()
	assert.Equal(t, false, ev["exists"], "initial emission should report the absent document")

	require.NoError(t, store.Set("tasks", "1", memDoc(t, map[string]interface{}{"status": "active"})))
	ev = readEvent()
	assert.Equal(t, true, ev["exists"])
	doc := ev["doc"].(map[string]interface{})
	assert.Equal(t, "active", doc["status"])
}
