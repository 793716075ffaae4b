package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/config"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/vectorstore/memory"
)

type fakeIngestor struct {
	ingested []models.Document
	deleted  []string
	err      error
}

func (f *fakeIngestor) Ingest(_ context.Context, doc models.Document) (models.Document, error) {
	if f.err != nil {
		return doc, f.err
	}
	doc.ChunkCount = 1
	f.ingested = append(f.ingested, doc)
	return doc, nil
}

func (f *fakeIngestor) Delete(_ context.Context, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return f.err
}

type fakeQuerier struct {
	result *models.QueryResult
	err    error
}

func (f *fakeQuerier) Query(_ context.Context, query string, topK int) (*models.QueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		RAG:    config.RAGConfig{QueryTimeoutSeconds: 5, IngestTimeoutSecs: 5},
		Upload: config.UploadConfig{Dir: t.TempDir(), MaxFileSizeMB: 1},
	}
}

func newTestServer(t *testing.T, ing *fakeIngestor, q *fakeQuerier) *Server {
	t.Helper()
	return New(testConfig(t), ing, q, memory.NewStore(), parser.Parse)
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeIngestor{}, &fakeQuerier{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestUploadDocument(t *testing.T) {
	ing := &fakeIngestor{}
	srv := newTestServer(t, ing, &fakeQuerier{})

	body, contentType := multipartBody(t, "notes.txt", "hello document world")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/document", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, ing.ingested, 1)
	assert.Equal(t, "notes.txt", ing.ingested[0].Filename)
	assert.Equal(t, models.FileTypeText, ing.ingested[0].FileType)
	assert.Equal(t, "hello document world", ing.ingested[0].Text)
	assert.NotEmpty(t, ing.ingested[0].ID)
}

func TestUploadDocument_MissingFile(t *testing.T) {
	srv := newTestServer(t, &fakeIngestor{}, &fakeQuerier{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/document", strings.NewReader(""))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocument_UnsupportedType(t *testing.T) {
	srv := newTestServer(t, &fakeIngestor{}, &fakeQuerier{})

	body, contentType := multipartBody(t, "malware.exe", "MZ")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/document", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestUploadDocument_EmptyDocument(t *testing.T) {
	ing := &fakeIngestor{err: models.ErrEmptyDocument}
	srv := newTestServer(t, ing, &fakeQuerier{})

	body, contentType := multipartBody(t, "empty.txt", "   ")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/document", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentInfo(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Upsert(context.Background(),
		models.Document{ID: "doc-1", Filename: "a.txt", FileType: models.FileTypeText},
		[]models.Chunk{{DocumentID: "doc-1", Index: 0, Text: "chunk"}},
		[][]float32{{1, 0}}))
	srv := New(testConfig(t), &fakeIngestor{}, &fakeQuerier{}, store, parser.Parse)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/document/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Documents   []models.Document `json:"documents"`
		TotalChunks int               `json:"total_chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "doc-1", resp.Documents[0].ID)
	assert.Equal(t, 1, resp.TotalChunks)
}

func TestDeleteDocument(t *testing.T) {
	ing := &fakeIngestor{}
	srv := newTestServer(t, ing, &fakeQuerier{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/document/doc-1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"doc-1"}, ing.deleted)
}

func TestChat(t *testing.T) {
	q := &fakeQuerier{result: &models.QueryResult{
		Query:  "what is alpha?",
		Answer: "alpha is first",
		TopK:   3,
	}}
	srv := newTestServer(t, &fakeIngestor{}, q)

	body := strings.NewReader(`{"query": "what is alpha?", "top_k": 3}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alpha is first", resp.Answer)
}

func TestChat_MissingQuery(t *testing.T) {
	srv := newTestServer(t, &fakeIngestor{}, &fakeQuerier{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_ErrorDetailNotLeaked(t *testing.T) {
	q := &fakeQuerier{err: fmt.Errorf("%w: dial tcp 127.0.0.1:11434: connection refused",
		models.ErrModelUnavailable)}
	srv := newTestServer(t, &fakeIngestor{}, q)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"query": "q"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "model backend unavailable")
	// The wrapped detail belongs in the log, not the response.
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.NotContains(t, rec.Body.String(), "127.0.0.1")
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"model unavailable", models.ErrModelUnavailable, http.StatusServiceUnavailable},
		{"storage unavailable", models.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"timeout", models.ErrTimeout, http.StatusGatewayTimeout},
		{"invalid input", models.ErrInvalidConfiguration, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeIngestor{}, &fakeQuerier{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
				strings.NewReader(`{"query": "q"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
