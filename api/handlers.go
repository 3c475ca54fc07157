package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"satellite-catalog/api/middleware"
	"satellite-catalog/pkg/catalog"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/services/managers"
	"satellite-catalog/pkg/shared"

	"github.com/google/uuid"
)

const (
	defaultHistoryDays = 7
	maxIngestBody      = 8 << 20
)

// Publisher is the subset of the embedded NATS service the handlers use.
type Publisher interface {
	PublishWithDedup(subject string, data []byte, msgID string) error
	HealthCheck() error
}

type Handlers struct {
	catalog *catalog.Handler
	bus     Publisher
	token   string
	log     *slog.Logger
}

// NewHandlers wires the HTTP surface to cat. bus may be nil, in which case
// ingest endpoints answer 503.
func NewHandlers(cat *catalog.Handler, bus Publisher, token string, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{catalog: cat, bus: bus, token: token, log: log}
}

// DownloadHistory handles GET /api/v1/downloads?days=N.
func (h *Handlers) DownloadHistory(w http.ResponseWriter, r *http.Request) {
	days := defaultHistoryDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			sendError(w, http.StatusBadRequest, "INVALID_DAYS", "days must be a non-negative integer")
			return
		}
		days = n
	}

	downloads, err := h.catalog.DownloadHistory(days)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}
	if downloads == nil {
		downloads = []ontology.Download{}
	}

	sendSuccess(w, http.StatusOK, downloads)
}

// DownloadExists handles GET /api/v1/downloads/exists?product_id=.
func (h *Handlers) DownloadExists(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		sendError(w, http.StatusBadRequest, "MISSING_PRODUCT_ID", "product_id is required")
		return
	}

	ok, err := h.catalog.IsDownloaded(productID)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "GET_FAILED", err.Error())
		return
	}

	sendSuccess(w, http.StatusOK, map[string]interface{}{
		"product_id": productID,
		"downloaded": ok,
	})
}

// CreateQuery handles POST /api/v1/queries and returns the new query id.
func (h *Handlers) CreateQuery(w http.ResponseWriter, r *http.Request) {
	var req ontology.QueryHistory
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	id, err := h.catalog.Queries.RecordQuery(&req)
	if err != nil {
		sendStoreError(w, "CREATE_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusCreated, map[string]string{"query_id": id})
}

// GetImage handles GET /api/v1/images?image_id=.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	imageID := r.URL.Query().Get("image_id")
	if imageID == "" {
		sendError(w, http.StatusBadRequest, "MISSING_IMAGE_ID", "image_id is required")
		return
	}

	img, err := h.catalog.Images.GetImage(imageID)
	if err != nil {
		sendStoreError(w, "GET_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusOK, img)
}

// ListViews handles GET /api/v1/views.
func (h *Handlers) ListViews(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, http.StatusOK, h.catalog.Views())
}

// Ingest handles POST /api/v1/ingest/{kind}. The body is published to the
// kind's ingest subject; a Nats-Msg-Id request header is used as the dedup
// id when present.
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	kind := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/ingest/"), "/")
	subject, ok := shared.IngestSubject(kind)
	if !ok {
		sendError(w, http.StatusNotFound, "UNKNOWN_KIND", "unknown ingest kind: "+kind)
		return
	}
	if h.bus == nil {
		sendError(w, http.StatusServiceUnavailable, "INGEST_UNAVAILABLE", "ingest bus is not running")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody+1))
	if err != nil {
		sendError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(body) > maxIngestBody {
		sendError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "payload exceeds ingest limit")
		return
	}
	if !json.Valid(body) {
		sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "payload is not valid JSON")
		return
	}

	msgID := r.Header.Get("Nats-Msg-Id")
	if msgID == "" {
		msgID = uuid.New().String()
	}

	if err := h.bus.PublishWithDedup(subject, body, msgID); err != nil {
		h.log.Error("failed to publish ingest message", "subject", subject, "error", err)
		sendError(w, http.StatusBadGateway, "PUBLISH_FAILED", err.Error())
		return
	}

	sendSuccess(w, http.StatusAccepted, map[string]string{"subject": subject, "msg_id": msgID})
}

// HealthCheck reports database and bus health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := shared.HealthStatus{
		Status:    "healthy",
		Service:   "satellite-catalog",
		Timestamp: time.Now(),
		Details:   make(map[string]string),
	}

	if err := h.catalog.Health(); err != nil {
		health.Status = "unhealthy"
		health.Details["database"] = "unhealthy: " + err.Error()
	} else {
		health.Details["database"] = "healthy"
	}

	if h.bus == nil {
		health.Details["nats"] = "disabled"
	} else if err := h.bus.HealthCheck(); err != nil {
		health.Status = "unhealthy"
		health.Details["nats"] = "unhealthy: " + err.Error()
	} else {
		health.Details["nats"] = "healthy"
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	sendSuccess(w, statusCode, health)
}

// Helper functions
func sendSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := shared.Response{
		Success: true,
		Data:    data,
	}

	_ = json.NewEncoder(w).Encode(response)
}

func sendError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := shared.Response{
		Success: false,
		Error: &shared.Error{
			Code:    code,
			Message: message,
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

func sendStoreError(w http.ResponseWriter, code string, err error) {
	switch {
	case errors.Is(err, managers.ErrNotFound):
		sendError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, managers.ErrMissingField):
		sendError(w, http.StatusBadRequest, "MISSING_FIELD", err.Error())
	default:
		sendError(w, http.StatusInternalServerError, code, err.Error())
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	sendError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// RegisterRoutes sets up all API routes
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	// Health check (no auth required)
	mux.HandleFunc("/health", h.HealthCheck)

	mux.HandleFunc("/api/v1/downloads", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		middleware.BearerAuth(h.token, h.DownloadHistory)(w, r)
	})

	mux.HandleFunc("/api/v1/downloads/exists", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		middleware.BearerAuth(h.token, h.DownloadExists)(w, r)
	})

	mux.HandleFunc("/api/v1/queries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		middleware.BearerAuth(h.token, h.CreateQuery)(w, r)
	})

	mux.HandleFunc("/api/v1/images", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		middleware.BearerAuth(h.token, h.GetImage)(w, r)
	})

	// View names are not sensitive; a token is checked only if one is sent.
	mux.HandleFunc("/api/v1/views", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		middleware.OptionalAuth(h.token, h.ListViews)(w, r)
	})

	mux.HandleFunc("/api/v1/ingest/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		middleware.BearerAuth(h.token, h.Ingest)(w, r)
	})
}
