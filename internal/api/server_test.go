package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/namcore/internal/audio"
)

const identityModel = `{
  "version": "0.5.4",
  "architecture": "Linear",
  "config": {"receptive_field": 2, "bias": false},
  "weights": [0.0, 1.0],
  "sample_rate": 44100,
  "metadata": {"name": "identity", "loudness": -20.0}
}`

// doubling multiplies the input by two with a one-sample FIR.
const doublingModel = `{
  "version": "0.5.4",
  "architecture": "Linear",
  "config": {"receptive_field": 1, "bias": false},
  "weights": [2.0]
}`

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func modelsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "identity.nam"), identityModel)
	mustWriteFile(t, filepath.Join(dir, "double.nam"), doublingModel)
	mustWriteFile(t, filepath.Join(dir, "broken.nam"), `{"version":"0.5.4"`)
	mustWriteFile(t, filepath.Join(dir, "notes.txt"), "x")
	return dir
}

func newTestEcho(t *testing.T) (*echo.Echo, *Server) {
	t.Helper()
	e, server, _ := newTestEchoDir(t)
	return e, server
}

func newTestEchoDir(t *testing.T) (*echo.Echo, *Server, string) {
	t.Helper()
	dir := modelsDir(t)
	server := NewServer(Config{
		Resolver: NewModelResolver(ModelResolverConfig{ModelsPath: dir}),
	})
	t.Cleanup(server.Close)
	e := echo.New()
	server.Register(e)
	return e, server, dir
}

func do(t *testing.T, e *echo.Echo, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, e, method, path, echo.MIMEApplicationJSON, []byte(body))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func createHandle(t *testing.T, e *echo.Echo, model string) HandleInfo {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/v1/handles", `{"model":"`+model+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status: got %d body=%s", rec.Code, rec.Body.String())
	}
	return decode[HandleInfo](t, rec)
}

func TestHandleLifecycle(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t)
	created := createHandle(t, e, "identity")
	if !strings.HasPrefix(created.ID, "nam_") {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if created.Architecture != "Linear" || created.SampleRate != 44100 || created.ReceptiveField != 2 {
		t.Fatalf("unexpected handle info: %+v", created)
	}
	if created.Metadata.Name != "identity" {
		t.Fatalf("metadata not reported: %+v", created.Metadata)
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/handles/"+created.ID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}

	listRec := doJSON(t, e, http.MethodGet, "/v1/handles", "")
	list := decode[ListResponse[HandleInfo]](t, listRec)
	if len(list.Data) != 1 || list.Data[0].ID != created.ID {
		t.Fatalf("list = %+v", list)
	}

	delRec := doJSON(t, e, http.MethodDelete, "/v1/handles/"+created.ID, "")
	if delRec.Code != http.StatusOK || !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete: got %d body=%s", delRec.Code, delRec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodGet, "/v1/handles/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	if rec := doJSON(t, e, http.MethodDelete, "/v1/handles/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestCreateHandleErrors(t *testing.T) {
	t.Parallel()

	e, _, dir := newTestEchoDir(t)
	gone := filepath.Join(dir, "gone.nam")
	cases := []struct {
		body string
		code int
		want string
	}{
		{`{"model":"broken"}`, http.StatusUnprocessableEntity, "parse_or_construction_failure"},
		{`{"model":"missing"}`, http.StatusNotFound, "not found"},
		{`{"model":"` + gone + `"}`, http.StatusNotFound, "file_not_found"},
		{`{"model":"/nowhere/amp.nam"}`, http.StatusBadRequest, "outside the models directory"},
		{`{"model":"../identity.nam"}`, http.StatusBadRequest, "outside the models directory"},
		{`{"model":`, http.StatusBadRequest, "invalid JSON body"},
		{`{"model":""}`, http.StatusBadRequest, "multiple models"},
		{`{"model":"identity","max_block_size":-1}`, http.StatusBadRequest, "max_block_size"},
	}
	for _, tc := range cases {
		rec := doJSON(t, e, http.MethodPost, "/v1/handles", tc.body)
		if rec.Code != tc.code || !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("POST %s: got %d body=%s, want %d containing %q", tc.body, rec.Code, rec.Body.String(), tc.code, tc.want)
		}
	}
}

func TestProcessEndpoint(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t)
	h := createHandle(t, e, "double")

	in := []float32{0.5, -0.25, 1}
	rec := do(t, e, http.MethodPost, "/v1/handles/"+h.ID+"/process", mimeOctetStream, audio.EncodeFloat32LE(nil, in))
	if rec.Code != http.StatusOK {
		t.Fatalf("process status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(headerFrames) != "3" {
		t.Fatalf("%s = %q, want 3", headerFrames, rec.Header().Get(headerFrames))
	}
	out, err := audio.DecodeFloat32LE(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	for i := range in {
		if out[i] != 2*in[i] {
			t.Fatalf("out = %v, want double of %v", out, in)
		}
	}

	if rec := do(t, e, http.MethodPost, "/v1/handles/"+h.ID+"/process", mimeOctetStream, []byte{1, 2, 3}); rec.Code != http.StatusBadRequest {
		t.Fatalf("partial sample: got %d", rec.Code)
	}
	if rec := do(t, e, http.MethodPost, "/v1/handles/nam_missing/process", mimeOctetStream, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing handle: got %d", rec.Code)
	}
	if rec := doJSON(t, e, http.MethodPost, "/v1/handles/"+h.ID+"/reset", ""); rec.Code != http.StatusOK {
		t.Fatalf("reset: got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestProcessBodyLimit(t *testing.T) {
	t.Parallel()

	server := NewServer(Config{
		Resolver:     NewModelResolver(ModelResolverConfig{ModelsPath: modelsDir(t)}),
		MaxBodyBytes: 8,
	})
	t.Cleanup(server.Close)
	e := echo.New()
	server.Register(e)

	h := createHandle(t, e, "identity")
	rec := do(t, e, http.MethodPost, "/v1/handles/"+h.ID+"/process", mimeOctetStream, make([]byte, 12))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d body=%s, want 413", rec.Code, rec.Body.String())
	}
}

func TestListModelsEndpoint(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t)
	rec := doJSON(t, e, http.MethodGet, "/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	list := decode[ListResponse[ModelInfo]](t, rec)
	var ids []string
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	if strings.Join(ids, ",") != "broken,double,identity" {
		t.Fatalf("models = %v", ids)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho(t)
	createHandle(t, e, "identity")
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"handles":1`) {
		t.Fatalf("health: got %d body=%s", rec.Code, rec.Body.String())
	}
}
