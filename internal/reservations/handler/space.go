package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	httputil "spacedesk/pkg/http"
	"spacedesk/pkg/logger"
)

// SpaceHandler serves the space catalogue. There is no space model yet, so
// the list is always empty.
type SpaceHandler struct {
	log *logger.Logger
}

func NewSpaceHandler(log *logger.Logger) *SpaceHandler {
	return &SpaceHandler{log: log}
}

func (h *SpaceHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteSuccess(w, []any{}); err != nil {
		h.log.Error("failed to write success response", "handler", "Spaces", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SpaceHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/spaces", h.GetAll)
}
