// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/blobreindex/azure/searchindex"
	"github.com/meghashyamc/blobreindex/config"
	"github.com/meghashyamc/blobreindex/db/kvdb"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/meghashyamc/blobreindex/services/reindex"
	"github.com/meghashyamc/blobreindex/validation"
	"github.com/stretchr/testify/require"
)

type testCase struct {
	name             string
	requestHeaders   map[string]string
	queryParams      map[string]string
	expectedStatus   int
	expectedResponse map[string]any
}

type fakeSearch struct {
	mu            sync.Mutex
	calls         []string
	indexes       []string
	runIndexerErr error
	createErr     error
}

func (f *fakeSearch) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSearch) RunIndexer(_ context.Context, indexerName string) error {
	f.record("run_indexer:" + indexerName)
	return f.runIndexerErr
}

func (f *fakeSearch) GetIndexerStatus(_ context.Context, indexerName string) (*searchindex.IndexerStatus, error) {
	f.record("indexer_status:" + indexerName)
	return &searchindex.IndexerStatus{Status: "running", LastResult: &searchindex.IndexerExecutionResult{Status: "success", ItemsProcessed: 3}}, nil
}

func (f *fakeSearch) ListIndexNames(_ context.Context) ([]string, error) {
	f.record("list_indexes")
	return f.indexes, nil
}

func (f *fakeSearch) DeleteIndex(_ context.Context, indexName string) error {
	f.record("delete_index:" + indexName)
	return nil
}

func (f *fakeSearch) CreateIndex(_ context.Context, index searchindex.Index) error {
	f.record("create_index:" + index.Name)
	return f.createErr
}

type fakeBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (f *fakeBlobs) ListBlobNames(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.blobs))
	for name := range f.blobs {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeBlobs) DeleteBlob(_ context.Context, blobName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, blobName)
	return nil
}

func (f *fakeBlobs) Upload(_ context.Context, blobName string, body io.Reader) error {
	content, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[blobName] = content
	return nil
}

func (f *fakeBlobs) Name() string {
	return "documents"
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func setupTestServer(t *testing.T, assert *require.Assertions, search *fakeSearch, blobs *fakeBlobs) *gin.Engine {

	t.Setenv("ENV", "test")
	t.Setenv("KVDB_PATH", filepath.Join(t.TempDir(), "journal.db"))

	cfg, err := config.Load("")
	assert.NoError(err, "could not load config")

	testLogger := newTestLogger()

	kvDB, err := kvdb.New(testLogger, cfg)
	assert.NoError(err, "could not create kv database")
	t.Cleanup(func() {
		assert.NoError(kvDB.Close(), "could not close kv database")
	})

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	service := reindex.New(testLogger, cfg, search, blobs, kvDB)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupIndexer(router, testLogger, service)
	SetupIndex(router, testLogger, service)
	SetupBlobs(router, testLogger, service, validator)
	SetupOperations(router, testLogger, service, validator)

	return router
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, body io.Reader, queryParams map[string]string) *httptest.ResponseRecorder {

	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		endpoint = endpoint + "?"
		for key, value := range queryParams {
			if endpoint[len(endpoint)-1] != '?' {
				endpoint = endpoint + "&"
			}
			endpoint = endpoint + key + "=" + value
		}
	}

	slog.Info("Making test request", "method", method, "endpoint", endpoint, "headers", headers)

	req, err := http.NewRequest(method, endpoint, body)
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

// multipartBody builds an upload form. An empty fileName leaves out the file part.
func multipartBody(assert *require.Assertions, fileName string, content string, fields map[string]string) (io.Reader, map[string]string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		assert.NoError(writer.WriteField(key, value))
	}

	if fileName != "" {
		part, err := writer.CreateFormFile(formFieldFile, fileName)
		assert.NoError(err)
		_, err = io.WriteString(part, content)
		assert.NoError(err)
	}
	assert.NoError(writer.Close())

	return body, map[string]string{"Content-Type": writer.FormDataContentType()}
}

func decodeResponse(assert *require.Assertions, w *httptest.ResponseRecorder) map[string]any {
	var responseMap map[string]any
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &responseMap))
	return responseMap
}
