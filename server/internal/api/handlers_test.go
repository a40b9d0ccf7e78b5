package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfs/inkfs/internal/model"
	"github.com/inkfs/inkfs/server/internal/api"
	"github.com/inkfs/inkfs/server/internal/contentstore"
	"github.com/inkfs/inkfs/server/internal/metastore/memstore"
	"github.com/inkfs/inkfs/server/internal/nodelock"
)

func newTestServer(t *testing.T) (*httptest.Server, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	content, err := contentstore.New(t.TempDir())
	require.NoError(t, err)
	locker := nodelock.New()

	router := api.NewRouter(store, content, locker)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNodeInfoRoot(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/node/" + model.ROOT.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var wire model.WireNodeInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wire))
	require.NotNil(t, wire.Dir)
	assert.Equal(t, uint64(model.ROOT), wire.Dir.Parent)
}

func TestNodeInfoUnknownIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/node/99999")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNodeInfoMalformedIDIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/node/not-a-number")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func createDir(t *testing.T, srv *httptest.Server, parent model.NodeID, name string) model.NodeID {
	t.Helper()
	body, _ := json.Marshal(model.WireNewNameRequest{Name: name})
	resp, err := http.Post(srv.URL+"/api/dir/"+parent.String()+"/new-dir", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	loc := resp.Header.Get("Location")
	require.NotEmpty(t, loc)
	idx := bytes.LastIndexByte([]byte(loc), '/')
	var id uint64
	_, err = fmt.Sscanf(loc[idx+1:], "%d", &id)
	require.NoError(t, err)
	return model.NodeID(id)
}

func createFile(t *testing.T, srv *httptest.Server, parent model.NodeID, name string) model.NodeID {
	t.Helper()
	body, _ := json.Marshal(model.WireNewNameRequest{Name: name})
	resp, err := http.Post(srv.URL+"/api/dir/"+parent.String()+"/new-file", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	loc := resp.Header.Get("Location")
	idx := bytes.LastIndexByte([]byte(loc), '/')
	var id uint64
	_, err = fmt.Sscanf(loc[idx+1:], "%d", &id)
	require.NoError(t, err)
	return model.NodeID(id)
}

func TestCreateDirThenListAsChild(t *testing.T) {
	srv, _ := newTestServer(t)

	id := createDir(t, srv, model.ROOT, "subdir")
	assert.NotEqual(t, model.ROOT, id)

	resp, err := http.Get(srv.URL + "/api/dir/" + model.ROOT.String() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var wire model.WireDirectoryInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wire))
	assert.Equal(t, uint64(id), wire.Children["subdir"])
}

func TestCreateDirDuplicateNameIsConflictWithLocation(t *testing.T) {
	srv, _ := newTestServer(t)
	createDir(t, srv, model.ROOT, "dup")

	body, _ := json.Marshal(model.WireNewNameRequest{Name: "dup"})
	resp, err := http.Post(srv.URL+"/api/dir/"+model.ROOT.String()+"/new-dir", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Location"))
}

func TestCreateFileStartsEmptyWithEmptyHashETag(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(model.WireNewNameRequest{Name: "f.txt"})
	resp, err := http.Post(srv.URL+"/api/dir/"+model.ROOT.String()+"/new-file", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.EmptyHash.Quote(), resp.Header.Get("ETag"))
}

func TestWriteFileDataRequiresIfMatch(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createFile(t, srv, model.ROOT, "needs-match.txt")

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/file/"+id.String()+"/data", bytes.NewReader([]byte("data")))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)
}

func TestWriteFileDataThenReadBack(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createFile(t, srv, model.ROOT, "roundtrip.txt")

	payload := []byte("hello world")
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/file/"+id.String()+"/data", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("If-Match", model.EmptyHash.Quote())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	wantHash := model.HashBytes(payload)
	assert.Equal(t, wantHash.Quote(), resp.Header.Get("ETag"))

	dataResp, err := http.Get(srv.URL + "/api/file/" + id.String() + "/data")
	require.NoError(t, err)
	defer dataResp.Body.Close()
	require.Equal(t, http.StatusOK, dataResp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(dataResp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, buf.Bytes())
	assert.Equal(t, wantHash.Quote(), dataResp.Header.Get("ETag"))
}

func TestWriteFileDataStaleIfMatchIsPreconditionFailed(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createFile(t, srv, model.ROOT, "stale.txt")

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/file/"+id.String()+"/data", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	req.Header.Set("If-Match", model.HashBytes([]byte("wrong")).Quote())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
}

func TestFileDataIfNoneMatchReturnsNotModified(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createFile(t, srv, model.ROOT, "cacheable.txt")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/file/"+id.String()+"/data", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", model.EmptyHash.Quote())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestDeleteFile(t *testing.T) {
	srv, _ := newTestServer(t)
	createFile(t, srv, model.ROOT, "to-delete.txt")

	body, _ := json.Marshal(model.WireNewNameRequest{Name: "to-delete.txt"})
	resp, err := http.Post(srv.URL+"/api/dir/"+model.ROOT.String()+"/delete-file", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDeleteNonEmptyDirIsConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createDir(t, srv, model.ROOT, "nonempty")
	createFile(t, srv, id, "child.txt")

	body, _ := json.Marshal(model.WireNewNameRequest{Name: "nonempty"})
	resp, err := http.Post(srv.URL+"/api/dir/"+model.ROOT.String()+"/delete-dir", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
