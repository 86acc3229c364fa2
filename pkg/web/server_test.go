package web

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkendall/layerlens/pkg/config"
	"github.com/mkendall/layerlens/pkg/extract"
)

func glbBytes(payload string) []byte {
	total := 12 + 8 + len(payload)
	buf := make([]byte, 0, total)
	buf = append(buf, 'g', 'l', 'T', 'F')
	buf = binary.LittleEndian.AppendUint32(buf, 2)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(total))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	buf = binary.LittleEndian.AppendUint32(buf, 0x4E4F534A)
	return append(buf, payload...)
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestServer() *Server {
	return NewServer(config.Default())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer()
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer()
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "3D File Layer Extractor")
}

func TestExtractEndpoint(t *testing.T) {
	srv := newTestServer()

	body, contentType := multipartBody(t, map[string][]byte{
		"chair.glb":  glbBytes(`{"materials":[{"name":"Wood"},{},{"name":"Glass"}]}`),
		"broken.glb": []byte("not a glb at all"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var rep extract.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))

	assert.Equal(t, 2, rep.Files)
	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	assert.ElementsMatch(t, []string{"Wood", "Unnamed_2", "Glass"}, rep.UniqueNames)

	byName := make(map[string]extract.Result)
	for _, r := range rep.Results {
		byName[r.Filename] = r
	}
	assert.Equal(t, []string{"Wood", "Unnamed_2", "Glass"}, byName["chair.glb"].Names)
	assert.NotEmpty(t, byName["broken.glb"].ErrorDetail)
}

func TestExtractEndpointNoFiles(t *testing.T) {
	srv := newTestServer()

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractEndpointNotMultipart(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/extract", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractEndpointTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.MaxUploadBytes = 64
	srv := NewServer(cfg)

	body, contentType := multipartBody(t, map[string][]byte{
		"big.glb": make([]byte, 4096),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
