package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/logger"
)

const maxRequestBytes = 8 << 20

// ContentPublisher is satisfied by *publisher.Publisher.
type ContentPublisher interface {
	Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	publisher ContentPublisher
	logger    *slog.Logger
}

func New(pub ContentPublisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

// Register mounts the content routes on mux behind protect, which may be nil.
func (h *Handler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("POST /api/v1/content", protect(http.HandlerFunc(h.Ingest)))
	mux.Handle("DELETE /api/v1/content/{id}", protect(http.HandlerFunc(h.Delete)))
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req ingestion.IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body exceeds 8 MiB")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.publisher.Ingest(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}
	log.Info("documents ingested",
		"accepted", resp.Accepted,
		"status", resp.Status,
	)
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "document id is required")
		return
	}
	if err := h.publisher.Delete(r.Context(), id); err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log := logger.FromContext(r.Context())
		if statusCode >= http.StatusInternalServerError {
			log.Error("delete failed", "doc_id", id, "error", err)
		} else {
			log.Info("delete rejected", "doc_id", id, "error", err)
		}
		h.writeError(w, statusCode, apperrors.PublicMessage(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
