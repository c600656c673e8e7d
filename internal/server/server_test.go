package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptwise/expense-tracker/internal/async"
	"github.com/receiptwise/expense-tracker/internal/auth"
	"github.com/receiptwise/expense-tracker/internal/blobstore"
	"github.com/receiptwise/expense-tracker/internal/entity"
	"github.com/receiptwise/expense-tracker/internal/export"
	"github.com/receiptwise/expense-tracker/internal/repository"
)

type fakeQueue struct {
	jobs []async.Job
}

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Shutdown(context.Context) {}

type testEnv struct {
	srv   *Server
	store *repository.MemoryStore
	queue *fakeQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	blob, err := blobstore.NewLocalStore(t.TempDir(), "http://localhost/blobs", nil)
	require.NoError(t, err)
	queue := &fakeQueue{}
	authSvc := auth.NewService("test-secret", time.Hour)

	srv := New(Deps{
		Store:  store,
		Blob:   blob,
		Queue:  queue,
		Auth:   authSvc,
		Export: export.NewService(store, nil),
	})
	return &testEnv{srv: srv, store: store, queue: queue}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.App().Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
}

func (e *testEnv) login(t *testing.T, uid string) string {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/api/auth/token", "", map[string]string{"uid": uid})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tok tokenResponse
	decodeData(t, resp, &tok)
	require.NotEmpty(t, tok.Token)
	return tok.Token
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/api/receipts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/receipts", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReceiptLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice")

	// Create
	resp := env.request(t, http.MethodPost, "/api/receipts", token, receiptRequest{
		Date:         "2026-07-01",
		LocationName: "Cafe",
		Amount:       "12.50",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created entity.Receipt
	decodeData(t, resp, &created)
	assert.Equal(t, "alice", created.UID)
	require.NotNil(t, created.Amount)
	assert.Equal(t, "12.50", *created.Amount)
	assert.False(t, created.NeedsConfirmation)

	// List
	resp = env.request(t, http.MethodGet, "/api/receipts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []entity.Receipt
	decodeData(t, resp, &listed)
	require.Len(t, listed, 1)

	// Update
	resp = env.request(t, http.MethodPut, "/api/receipts/"+created.ID.String(), token, receiptRequest{
		Date:         "2026-07-01",
		LocationName: "Renamed Cafe",
		Amount:       "13.00",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated entity.Receipt
	decodeData(t, resp, &updated)
	assert.Equal(t, "Renamed Cafe", updated.LocationName)

	// Delete, twice: both succeed.
	resp = env.request(t, http.MethodDelete, "/api/receipts/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.request(t, http.MethodDelete, "/api/receipts/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/receipts", token, nil)
	decodeData(t, resp, &listed)
	assert.Empty(t, listed)
}

func TestCreateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice")

	// Future transaction date
	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	resp := env.request(t, http.MethodPost, "/api/receipts", token, receiptRequest{Date: future})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Over-precise amount
	resp = env.request(t, http.MethodPost, "/api/receipts", token, receiptRequest{Amount: "23.456"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Negative amount
	resp = env.request(t, http.MethodPost, "/api/receipts", token, receiptRequest{Amount: "-5.00"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateOtherUsersReceiptForbidden(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.login(t, "alice")
	bobToken := env.login(t, "bob")

	resp := env.request(t, http.MethodPost, "/api/receipts", aliceToken, receiptRequest{LocationName: "Cafe"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created entity.Receipt
	decodeData(t, resp, &created)

	resp = env.request(t, http.MethodPut, "/api/receipts/"+created.ID.String(), bobToken, receiptRequest{LocationName: "Hijacked"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/api/receipts/"+created.ID.String(), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUploadQueuesProcessing(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", "receipt.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/receipts/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.srv.App().Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var up uploadResponse
	decodeData(t, resp, &up)
	assert.Contains(t, up.Key, "alice/")

	require.Len(t, env.queue.jobs, 1)
	assert.Equal(t, up.Key, env.queue.jobs[0].Key)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", "receipt.gif")
	require.NoError(t, err)
	_, err = fw.Write([]byte("gif bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/receipts/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.srv.App().Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.queue.jobs)
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice")

	resp := env.request(t, http.MethodPost, "/api/receipts", token, receiptRequest{
		Date:         "2026-07-01",
		LocationName: "Cafe",
		Amount:       "9.99",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/receipts/export", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
