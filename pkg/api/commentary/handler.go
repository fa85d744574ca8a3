package commentary

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"financial_analyzer/pkg/api/web"
	coreCommentary "financial_analyzer/pkg/core/commentary"

	"github.com/gorilla/mux"
)

type Handler struct {
	service *coreCommentary.Service
}

func NewHandler(service *coreCommentary.Service) *Handler {
	return &Handler{service: service}
}

type GenerateRequest struct {
	Notes string `json:"notes"`
}

// HandleGenerate writes a new commentary. The body is optional.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, POST, OPTIONS")
	if web.Preflight(w, r) {
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		web.BadRequest(w, "Invalid request body")
		return
	}

	c, err := h.service.Generate(r.Context(), mux.Vars(r)["id"], req.Notes)
	if err != nil {
		if errors.Is(err, coreCommentary.ErrNoPeriods) {
			web.BadRequest(w, err.Error())
			return
		}
		web.Error(w, err, http.StatusBadGateway)
		return
	}
	web.JSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, POST, OPTIONS")
	c, err := h.service.Latest(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	web.JSON(w, http.StatusOK, c)
}
