package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicly/labeler/internal/config"
	"github.com/tropicly/labeler/internal/keys"
	"github.com/tropicly/labeler/internal/navigator"
	"github.com/tropicly/labeler/internal/samplecsv"
	"github.com/tropicly/labeler/internal/storage"
	"github.com/tropicly/labeler/internal/storage/memory"
	"github.com/tropicly/labeler/pkg/core"
)

const threeSamples = "x,y,label\n10,10,A\n20,20,B\n30,30,C\n"

func newTestServer(t *testing.T, mutate func(*Dependencies)) (*Server, *httptest.Server) {
	t.Helper()
	deps := Dependencies{
		Navigator: navigator.New(navigator.Dependencies{}),
		Keymap:    keys.New("ArrowRight", "ArrowLeft"),
		Server:    config.ServerConfig{MaxUploadBytes: 1 << 20},
		Map:       config.MapConfig{Zoom: 11, TileURL: "https://tiles.example/{z}/{y}/{x}"},
	}
	if mutate != nil {
		mutate(&deps)
	}
	s, err := New(deps)
	require.NoError(t, err)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}

func upload(t *testing.T, ts *httptest.Server, name, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(ts.URL+"/api/load", w.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func post(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	resp, err := http.Post(ts.URL+path, "application/json", r)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeState(t *testing.T, resp *http.Response) State {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func TestNew_RequiresNavigator(t *testing.T) {
	_, err := New(Dependencies{})
	assert.Error(t, err)
}

func TestHealthcheck(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIndex(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tiles.example")
	assert.Contains(t, string(body), "arrowright")
	assert.Contains(t, string(body), "/api/key")
}

func TestLoad(t *testing.T) {
	_, ts := newTestServer(t, nil)

	st := decodeState(t, upload(t, ts, "grid.csv", threeSamples))
	assert.Equal(t, "grid.csv", st.FileName)
	assert.Equal(t, -1, st.Cursor)
	assert.Equal(t, 3, st.Total)
	assert.Nil(t, st.Sample)
}

func TestLoad_MissingFile(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := post(t, ts, "/api/load", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoad_StrictRejectsMissingColumns(t *testing.T) {
	_, ts := newTestServer(t, func(d *Dependencies) {
		d.CSV = samplecsv.Options{Strict: true}
	})

	resp := upload(t, ts, "bad.csv", "a,b\n1,2\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Contains(t, e.Error, "bad.csv")
}

func TestNavigation(t *testing.T) {
	_, ts := newTestServer(t, nil)
	upload(t, ts, "grid.csv", threeSamples)

	var cursors []int
	for i := 0; i < 4; i++ {
		cursors = append(cursors, decodeState(t, post(t, ts, "/api/next", nil)).Cursor)
	}
	assert.Equal(t, []int{0, 1, 2, 2}, cursors)

	st := decodeState(t, post(t, ts, "/api/previous", nil))
	assert.Equal(t, 1, st.Cursor)
	require.NotNil(t, st.Sample)
	assert.Equal(t, "B", st.Sample.Label)
	assert.Equal(t, 20.0, st.Sample.Lat)
	assert.Equal(t, 20.0, st.Sample.Lng)
}

func TestJump(t *testing.T) {
	_, ts := newTestServer(t, nil)
	upload(t, ts, "grid.csv", threeSamples)

	st := decodeState(t, post(t, ts, "/api/jump?index=2", nil))
	assert.Equal(t, 2, st.Cursor)

	st = decodeState(t, post(t, ts, "/api/jump?index=7", nil))
	assert.Equal(t, 2, st.Cursor)

	resp := post(t, ts, "/api/jump?index=two", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestKey(t *testing.T) {
	_, ts := newTestServer(t, nil)
	upload(t, ts, "grid.csv", threeSamples)

	st := decodeState(t, post(t, ts, "/api/key", keyRequest{Key: "ArrowRight"}))
	assert.Equal(t, "next", st.Action)
	assert.Equal(t, 0, st.Cursor)

	st = decodeState(t, post(t, ts, "/api/key", keyRequest{Key: "x"}))
	assert.Equal(t, "none", st.Action)
	assert.Equal(t, 0, st.Cursor)

	resp := post(t, ts, "/api/key", "not an object")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEditAndExport(t *testing.T) {
	_, ts := newTestServer(t, nil)
	upload(t, ts, "grid.csv", threeSamples)

	// edits before the first sample is shown are ignored
	st := decodeState(t, post(t, ts, "/api/validation", valueRequest{Value: "early"}))
	assert.Nil(t, st.Sample)

	post(t, ts, "/api/next", nil)
	post(t, ts, "/api/next", nil)
	st = decodeState(t, post(t, ts, "/api/validation", valueRequest{Value: "ok"}))
	assert.Equal(t, "ok", st.Sample.Validation)
	st = decodeState(t, post(t, ts, "/api/label", valueRequest{Value: "B2"}))
	assert.Equal(t, "B2", st.Sample.Label)

	resp, err := http.Get(ts.URL + "/api/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="grid.csv"`, resp.Header.Get("Content-Disposition"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "x,y,label,validation\n10,10,A,\n20,20,B2,ok\n30,30,C,\n", string(body))
}

func TestExport_NothingLoaded(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, `attachment; filename="samples.csv"`, resp.Header.Get("Content-Disposition"))
}

func TestExport_SavesToStorage(t *testing.T) {
	dir := t.TempDir()
	backend := memory.New(config.MemoryConfig{OutputDir: dir})
	_, ts := newTestServer(t, func(d *Dependencies) { d.Storage = backend })
	upload(t, ts, "grid.csv", threeSamples)
	post(t, ts, "/api/next", nil)

	resp, err := http.Get(ts.URL + "/api/export")
	require.NoError(t, err)
	resp.Body.Close()

	data, err := os.ReadFile(filepath.Join(dir, "grid.csv"))
	require.NoError(t, err)
	assert.Equal(t, threeSamples, string(data))
}

func TestAutosaveAndRestore(t *testing.T) {
	backend := memory.New(config.MemoryConfig{})
	_, ts := newTestServer(t, func(d *Dependencies) {
		d.Storage = backend
		d.Autosave = true
	})
	upload(t, ts, "grid.csv", threeSamples)
	post(t, ts, "/api/next", nil)
	post(t, ts, "/api/next", nil)
	post(t, ts, "/api/validation", valueRequest{Value: "checked"})

	saved, err := backend.Restore("grid.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Cursor)
	assert.Equal(t, "checked", saved.Set.Samples[1].Validation)

	upload(t, ts, "other.csv", threeSamples)
	st := decodeState(t, post(t, ts, "/api/restore?file=grid.csv", nil))
	assert.Equal(t, "grid.csv", st.FileName)
	assert.Equal(t, 1, st.Cursor)
	assert.Equal(t, "checked", st.Sample.Validation)

	resp := post(t, ts, "/api/restore?file=missing.csv", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = post(t, ts, "/api/restore", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRestore_NoStorage(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := post(t, ts, "/api/restore?file=grid.csv", nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

type failingStorage struct{}

func (failingStorage) Init() error              { return nil }
func (failingStorage) Close() error             { return nil }
func (failingStorage) Save(core.Snapshot) error { return assert.AnError }

var _ storage.Backend = failingStorage{}

func TestExport_StorageFailureStillDownloads(t *testing.T) {
	_, ts := newTestServer(t, func(d *Dependencies) { d.Storage = failingStorage{} })
	upload(t, ts, "grid.csv", threeSamples)

	resp, err := http.Get(ts.URL + "/api/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/next")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServe_Shutdown(t *testing.T) {
	s, err := New(Dependencies{
		Navigator: navigator.New(navigator.Dependencies{}),
		Server:    config.ServerConfig{ShutdownWait: time.Second},
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + s.Addr().String() + "/healthcheck")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", strings.TrimSpace(string(body)))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestProgress(t *testing.T) {
	s, ts := newTestServer(t, nil)
	upload(t, ts, "grid.csv", "x,y,label\n1,1,A\n2,2,\n3,3,C\n")
	post(t, ts, "/api/next", nil)
	post(t, ts, "/api/validation", valueRequest{Value: "ok"})

	p := s.Progress()
	assert.Equal(t, Progress{FileName: "grid.csv", Cursor: 0, Total: 3, Labeled: 2, Validated: 1}, p)
}

func TestLoad_NonFiniteCoordinatesBecomeZero(t *testing.T) {
	_, ts := newTestServer(t, nil)

	st := decodeState(t, upload(t, ts, "odd.csv", "x,y,label\nNaN,1e999,A\nInf,2,B\n"))
	assert.Equal(t, 2, st.Total)

	st = decodeState(t, post(t, ts, "/api/next", nil))
	require.NotNil(t, st.Sample)
	assert.Equal(t, 0.0, st.Sample.Lat)
	assert.Equal(t, 0.0, st.Sample.Lng)

	st = decodeState(t, post(t, ts, "/api/next", nil))
	require.NotNil(t, st.Sample)
	assert.Equal(t, 2.0, st.Sample.Lat)
	assert.Equal(t, 0.0, st.Sample.Lng)
}

func TestLoad_NonFiniteCoordinatesStrict(t *testing.T) {
	_, ts := newTestServer(t, func(d *Dependencies) {
		d.CSV = samplecsv.Options{Strict: true}
	})

	resp := upload(t, ts, "odd.csv", "x,y,label\nNaN,1,A\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "odd.csv")
	assert.Contains(t, body.Error, samplecsv.ErrInvalidNumber.Error())
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()

	err := writeJSON(rec, http.StatusOK, State{Sample: &SampleView{Lat: math.Inf(1)}})
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to encode response"}`, rec.Body.String())
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, writeJSON(rec, http.StatusCreated, State{FileName: "a.csv", Cursor: -1}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"fileName":"a.csv","cursor":-1,"total":0}`, rec.Body.String())
}
