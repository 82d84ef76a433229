package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	httputil "spacedesk/pkg/http"
	"spacedesk/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database,omitempty"`
	ExpiryIndex string `json:"expiryIndex,omitempty"`
}

type HealthHandler struct {
	store Pinger
	index Pinger
	log   *logger.Logger
}

func NewHealthHandler(store, index Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store: store,
		index: index,
		log:   log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func ping(ctx context.Context, p Pinger) error {
	if p == nil {
		return nil
	}
	return p.Ping(ctx)
}

func componentState(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	storeErr := ping(ctx, h.store)
	indexErr := ping(ctx, h.index)

	resp := HealthResponse{
		Status:      "ready",
		Database:    componentState(storeErr),
		ExpiryIndex: componentState(indexErr),
	}
	status := http.StatusOK

	if storeErr != nil || indexErr != nil {
		h.log.Error("Readiness check failed",
			"store_error", storeErr,
			"index_error", indexErr,
			"path", r.URL.Path,
		)
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
