package export

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"financial_analyzer/pkg/api/web"
	coreExport "financial_analyzer/pkg/core/export"

	"github.com/gorilla/mux"
)

type Handler struct {
	service *coreExport.Service
}

func NewHandler(service *coreExport.Service) *Handler {
	return &Handler{service: service}
}

// HandleExport streams the analysis as ?format=csv|xlsx|pdf (csv by default).
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, OPTIONS")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = coreExport.FormatCSV
	}

	file, err := h.service.Export(r.Context(), mux.Vars(r)["id"], format)
	if err != nil {
		if errors.Is(err, coreExport.ErrUnknownFormat) {
			web.BadRequest(w, err.Error())
			return
		}
		web.Error(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(file.Name)))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Data)
}
