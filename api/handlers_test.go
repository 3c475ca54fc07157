package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"satellite-catalog/pkg/catalog"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/shared"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

type published struct {
	subject string
	data    string
	msgID   string
}

type fakeBus struct {
	mu         sync.Mutex
	msgs       []published
	publishErr error
	healthErr  error
}

func (b *fakeBus) PublishWithDedup(subject string, data []byte, msgID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.msgs = append(b.msgs, published{subject: subject, data: string(data), msgID: msgID})
	return nil
}

func (b *fakeBus) HealthCheck() error {
	return b.healthErr
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *shared.Error   `json:"error"`
}

func setupTestServer(t *testing.T, bus Publisher) (*catalog.Handler, http.Handler) {
	t.Helper()

	cat, err := catalog.New(catalog.Options{
		DBPath: filepath.Join(t.TempDir(), "downloads.db"),
		Clock:  clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	mux := http.NewServeMux()
	NewHandlers(cat, bus, testToken, nil).RegisterRoutes(mux)
	return cat, mux
}

func do(t *testing.T, h http.Handler, method, target, body string, auth bool) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	_, srv := setupTestServer(t, nil)
	rec, resp := do(t, srv, http.MethodGet, "/health", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	var health shared.HealthStatus
	require.NoError(t, json.Unmarshal(resp.Data, &health))
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "disabled", health.Details["nats"])

	_, srv = setupTestServer(t, &fakeBus{healthErr: errors.New("not connected")})
	rec, _ = do(t, srv, http.MethodGet, "/health", "", false)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()

	_, srv := setupTestServer(t, nil)
	rec, resp := do(t, srv, http.MethodGet, "/api/v1/downloads", "", false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rec, _ = do(t, srv, http.MethodDelete, "/api/v1/downloads", "", true)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDownloadEndpoints(t *testing.T) {
	t.Parallel()

	cat, srv := setupTestServer(t, nil)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cat.Downloads.RecordDownload(&ontology.Download{ProductID: "recent", DownloadTime: now.Add(-time.Hour)}, shared.StatusDownloaded))
	require.NoError(t, cat.Downloads.RecordDownload(&ontology.Download{ProductID: "old", DownloadTime: now.Add(-8 * 24 * time.Hour)}, shared.StatusDownloaded))

	rec, resp := do(t, srv, http.MethodGet, "/api/v1/downloads?days=7", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var downloads []ontology.Download
	require.NoError(t, json.Unmarshal(resp.Data, &downloads))
	require.Len(t, downloads, 1)
	require.Equal(t, "recent", downloads[0].ProductID)

	rec, _ = do(t, srv, http.MethodGet, "/api/v1/downloads?days=-2", "", true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = do(t, srv, http.MethodGet, "/api/v1/downloads/exists?product_id=old", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var exists struct {
		Downloaded bool `json:"downloaded"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &exists))
	require.True(t, exists.Downloaded)

	_, resp = do(t, srv, http.MethodGet, "/api/v1/downloads/exists?product_id=never", "", true)
	require.NoError(t, json.Unmarshal(resp.Data, &exists))
	require.False(t, exists.Downloaded)

	rec, _ = do(t, srv, http.MethodGet, "/api/v1/downloads/exists", "", true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateQuery(t *testing.T) {
	t.Parallel()

	cat, srv := setupTestServer(t, nil)
	rec, resp := do(t, srv, http.MethodPost, "/api/v1/queries",
		`{"constellation":"SENTINEL-1","geometry_wkt":"POINT(10 55)","parameters":{"productType":"GRD"}}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var out struct {
		QueryID string `json:"query_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	q, err := cat.Queries.GetQuery(out.QueryID)
	require.NoError(t, err)
	require.Equal(t, "SENTINEL-1", q.Constellation)

	rec, resp = do(t, srv, http.MethodPost, "/api/v1/queries", `{"geometry_wkt":"POINT(0 0)"}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "MISSING_FIELD", resp.Error.Code)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/queries", `{`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetImageNotFound(t *testing.T) {
	t.Parallel()

	_, srv := setupTestServer(t, nil)
	rec, resp := do(t, srv, http.MethodGet, "/api/v1/images?image_id=nope", "", true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestListViewsOptionalAuth(t *testing.T) {
	t.Parallel()

	cat, srv := setupTestServer(t, nil)
	rec, resp := do(t, srv, http.MethodGet, "/api/v1/views", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var names []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &names))
	require.Len(t, names, len(cat.Views()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/views", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestIngest(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	_, srv := setupTestServer(t, bus)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/images", strings.NewReader(`{"id":"IMG1"}`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Nats-Msg-Id", "img-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec2, _ := do(t, srv, http.MethodPost, "/api/v1/ingest/ais", `{"image_id":"IMG1","records":[]}`, true)
	require.Equal(t, http.StatusAccepted, rec2.Code)

	require.Len(t, bus.msgs, 2)
	require.Equal(t, published{subject: shared.SubjectIngestImages, data: `{"id":"IMG1"}`, msgID: "img-1"}, bus.msgs[0])
	require.Equal(t, shared.SubjectIngestAIS, bus.msgs[1].subject)
	require.NotEmpty(t, bus.msgs[1].msgID)

	rec2, _ = do(t, srv, http.MethodPost, "/api/v1/ingest/satellites", `{}`, true)
	require.Equal(t, http.StatusNotFound, rec2.Code)

	rec2, _ = do(t, srv, http.MethodPost, "/api/v1/ingest/images", `not json`, true)
	require.Equal(t, http.StatusBadRequest, rec2.Code)

	bus.publishErr = errors.New("stream full")
	rec2, _ = do(t, srv, http.MethodPost, "/api/v1/ingest/downloads", `{"product_id":"P1"}`, true)
	require.Equal(t, http.StatusBadGateway, rec2.Code)
}

func TestIngestWithoutBus(t *testing.T) {
	t.Parallel()

	_, srv := setupTestServer(t, nil)
	rec, resp := do(t, srv, http.MethodPost, "/api/v1/ingest/images", `{"id":"IMG1"}`, true)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "INGEST_UNAVAILABLE", resp.Error.Code)
}
