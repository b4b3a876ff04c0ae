package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/meghashyamc/blobreindex/config"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "test-admin-key"

func newTestLogger() logger.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func setupTestClient(t *testing.T, assert *require.Assertions, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("SEARCH_ENDPOINT", server.URL)
	cfg, err := config.Load("test")
	assert.NoError(err, "could not load config")

	return New(newTestLogger(), cfg)
}

func TestRunIndexer(t *testing.T) {
	testCases := []struct {
		name           string
		responseStatus int
		responseBody   string
		expectedErr    bool
	}{
		{name: "Accepted", responseStatus: http.StatusAccepted},
		{name: "OKIsNotAccepted", responseStatus: http.StatusOK, expectedErr: true},
		{name: "Conflict", responseStatus: http.StatusConflict, responseBody: `{"error":{"message":"indexer already running"}}`, expectedErr: true},
		{name: "Forbidden", responseStatus: http.StatusForbidden, responseBody: "forbidden", expectedErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			client := setupTestClient(t, assert, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(http.MethodPost, r.Method)
				assert.Equal("/indexers/documents-indexer/run", r.URL.Path)
				assert.Equal("2020-06-30", r.URL.Query().Get("api-version"))
				assert.Equal(testAdminKey, r.Header.Get("api-key"))
				assert.Equal("application/json", r.Header.Get("Content-Type"))
				w.WriteHeader(testCase.responseStatus)
				io.WriteString(w, testCase.responseBody)
			})

			err := client.RunIndexer(context.Background(), "documents-indexer")
			if !testCase.expectedErr {
				assert.NoError(err)
				return
			}

			assert.True(errors.Is(err, ErrUnexpectedStatus))
			var statusErr *StatusError
			assert.True(errors.As(err, &statusErr))
			assert.Equal(testCase.responseStatus, statusErr.StatusCode)
			assert.Equal(testCase.responseBody, statusErr.Body)
		})
	}
}

func TestRunIndexerNetworkError(t *testing.T) {
	assert := require.New(t)
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	t.Setenv("SEARCH_ENDPOINT", server.URL)
	cfg, err := config.Load("test")
	assert.NoError(err)

	err = New(newTestLogger(), cfg).RunIndexer(context.Background(), "documents-indexer")
	assert.Error(err)
	assert.False(errors.Is(err, ErrUnexpectedStatus))
}

func TestListIndexNames(t *testing.T) {
	assert := require.New(t)
	client := setupTestClient(t, assert, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodGet, r.Method)
		assert.Equal("/indexes", r.URL.Path)
		assert.Equal("name", r.URL.Query().Get("$select"))
		io.WriteString(w, `{"value":[{"name":"documents"},{"name":"other"}]}`)
	})

	names, err := client.ListIndexNames(context.Background())
	assert.NoError(err)
	assert.Equal([]string{"documents", "other"}, names)
}

func TestDeleteIndex(t *testing.T) {
	testCases := []struct {
		name           string
		responseStatus int
		expectedErr    bool
	}{
		{name: "NoContent", responseStatus: http.StatusNoContent},
		{name: "AlreadyGone", responseStatus: http.StatusNotFound},
		{name: "ServerError", responseStatus: http.StatusInternalServerError, expectedErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			client := setupTestClient(t, assert, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(http.MethodDelete, r.Method)
				assert.Equal("/indexes/documents", r.URL.Path)
				w.WriteHeader(testCase.responseStatus)
			})

			err := client.DeleteIndex(context.Background(), "documents")
			if testCase.expectedErr {
				assert.True(errors.Is(err, ErrUnexpectedStatus))
			} else {
				assert.NoError(err)
			}
		})
	}
}

func TestCreateIndexSendsSchema(t *testing.T) {
	assert := require.New(t)
	client := setupTestClient(t, assert, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodPost, r.Method)
		assert.Equal("/indexes", r.URL.Path)

		var index Index
		assert.NoError(json.NewDecoder(r.Body).Decode(&index))
		assert.Equal("documents", index.Name)
		assert.Equal(DefaultFields(), index.Fields)
		w.WriteHeader(http.StatusCreated)
	})

	assert.NoError(client.CreateIndex(context.Background(), DefaultIndex("documents")))
}

func TestCreateIndexConflict(t *testing.T) {
	assert := require.New(t)
	client := setupTestClient(t, assert, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, "index exists")
	})

	err := client.CreateIndex(context.Background(), DefaultIndex("documents"))
	var statusErr *StatusError
	assert.True(errors.As(err, &statusErr))
	assert.Equal("create index", statusErr.Operation)
	assert.Equal("create index: 409: index exists", err.Error())
}

func TestGetIndexerStatus(t *testing.T) {
	assert := require.New(t)
	client := setupTestClient(t, assert, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/indexers/documents-indexer/status", r.URL.Path)
		io.WriteString(w, `{"status":"running","lastResult":{"status":"success","itemsProcessed":12,"itemsFailed":1,"startTime":"2024-01-02T03:04:05Z"}}`)
	})

	status, err := client.GetIndexerStatus(context.Background(), "documents-indexer")
	assert.NoError(err)
	assert.Equal("running", status.Status)
	assert.NotNil(status.LastResult)
	assert.Equal("success", status.LastResult.Status)
	assert.Equal(12, status.LastResult.ItemsProcessed)
	assert.Equal(1, status.LastResult.ItemsFailed)
	assert.NotNil(status.LastResult.StartTime)
	assert.Nil(status.LastResult.EndTime)
}

func TestDefaultFieldsMatchBlobIndexerSchema(t *testing.T) {
	assert := require.New(t)
	fields := DefaultFields()

	expected := []struct {
		name       string
		fieldType  string
		key        bool
		searchable bool
	}{
		{"id", "Edm.String", true, false},
		{"name", "Edm.String", false, true},
		{"content", "Edm.String", false, true},
		{"metadata_storage_path", "Edm.String", false, false},
		{"metadata_storage_size", "Edm.Int64", false, false},
		{"metadata_storage_last_modified", "Edm.DateTimeOffset", false, false},
	}

	assert.Len(fields, len(expected))
	for i, field := range fields {
		assert.Equal(expected[i].name, field.Name)
		assert.Equal(expected[i].fieldType, field.Type)
		assert.Equal(expected[i].key, field.Key, field.Name)
		assert.Equal(expected[i].searchable, field.Searchable, field.Name)
	}
}
