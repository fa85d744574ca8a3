package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"financial_analyzer/pkg/api/web"
	"financial_analyzer/pkg/core/extraction"
	"financial_analyzer/pkg/core/format"
	"financial_analyzer/pkg/core/ingest"
	"financial_analyzer/pkg/core/store"
	"financial_analyzer/pkg/core/validate"
	"financial_analyzer/pkg/models"

	"github.com/gorilla/mux"
	"github.com/phuslu/log"
)

// Handler accepts statement PDFs and spreadsheet imports.
type Handler struct {
	repo        store.Repository
	extractor   *extraction.Extractor
	maxUploadMB int64
}

func NewHandler(repo store.Repository, extractor *extraction.Extractor, maxUploadMB int64) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &Handler{repo: repo, extractor: extractor, maxUploadMB: maxUploadMB}
}

type UploadResponse struct {
	Period           *models.PeriodFinancialData    `json:"period"`
	Extraction       *extraction.Result             `json:"extraction"`
	RetainedEarnings *validate.RetainedEarningsLink `json:"retained_earnings,omitempty"`
}

type ImportResponse struct {
	Imported       []int    `json:"imported"`
	SkippedColumns []string `json:"skipped_columns,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// HandleUpload extracts one fiscal year from a statement PDF and merges it
// into the stored period.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "POST, OPTIONS")
	if web.Preflight(w, r) {
		return
	}
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	a, err := h.repo.GetAnalysis(ctx, id)
	if err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}

	// 1. Read the multipart upload
	name, data, ok := h.readFile(w, r)
	if !ok {
		return
	}
	fiscalYear := 0
	if v := strings.TrimSpace(r.FormValue("fiscal_year")); v != "" {
		if fiscalYear, err = strconv.Atoi(v); err != nil {
			web.BadRequest(w, "Invalid fiscal_year")
			return
		}
	}

	// 2. Extract
	res, err := h.extractor.Extract(ctx, extraction.Request{
		FileName:    name,
		Data:        data,
		FiscalYear:  fiscalYear,
		CompanyName: a.CompanyName,
	})
	if err != nil {
		switch {
		case errors.Is(err, extraction.ErrEmptyDocument), errors.Is(err, extraction.ErrNotPDF), errors.Is(err, extraction.ErrTooManyPages):
			web.BadRequest(w, err.Error())
		default:
			web.Error(w, err, http.StatusBadGateway)
		}
		return
	}
	if res.Statement.FiscalYear == 0 {
		web.BadRequest(w, "fiscal_year could not be determined; send it with the upload")
		return
	}

	// 3. Merge into the stored period
	p, err := h.loadOrNew(ctx, id, res.Statement.FiscalYear)
	if err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	extraction.Merge(p, &res.Statement)
	p.SourceFile = name
	p.UpdatedAt = time.Now()
	if err := h.save(ctx, p); err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}

	resp := UploadResponse{Period: p, Extraction: res}
	if prev, err := h.repo.GetPeriod(ctx, id, p.FiscalYear-1); err == nil {
		resp.RetainedEarnings = validate.CheckRetainedEarnings(p, prev)
	}
	web.JSON(w, http.StatusOK, resp)
}

// HandleImport reads a CSV or XLSX file with one row per fiscal year. The
// unit form field gives the unit of the statement amounts and defaults to
// the analysis unit.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "POST, OPTIONS")
	if web.Preflight(w, r) {
		return
	}
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	a, err := h.repo.GetAnalysis(ctx, id)
	if err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	name, data, ok := h.readFile(w, r)
	if !ok {
		return
	}
	unitRaw := r.FormValue("unit")
	if unitRaw == "" {
		unitRaw = a.Unit
	}
	unit, err := format.ParseUnit(unitRaw)
	if err != nil {
		web.BadRequest(w, err.Error())
		return
	}

	parsed, err := ingest.Parse(name, data, unit)
	if err != nil {
		web.BadRequest(w, err.Error())
		return
	}

	resp := ImportResponse{SkippedColumns: parsed.SkippedColumns, Warnings: parsed.Warnings}
	now := time.Now()
	for i := range parsed.Periods {
		src := &parsed.Periods[i]
		p, err := h.loadOrNew(ctx, id, src.FiscalYear)
		if err != nil {
			web.Error(w, err, http.StatusInternalServerError)
			return
		}
		p.Overlay(src)
		p.SourceFile = name
		p.UpdatedAt = now
		if err := h.save(ctx, p); err != nil {
			if errors.Is(err, validate.ErrInvalid) {
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("FY%d: %v", src.FiscalYear, err))
				continue
			}
			web.Error(w, err, http.StatusInternalServerError)
			return
		}
		resp.Imported = append(resp.Imported, src.FiscalYear)
	}

	log.Info().Str("component", "import").Str("analysis_id", id).Str("file", name).Int("periods", len(resp.Imported)).Msg("periods imported")
	web.JSON(w, http.StatusOK, resp)
}

func (h *Handler) readFile(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	limit := h.maxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			web.JSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": fmt.Sprintf("file exceeds %d MB", h.maxUploadMB)})
			return "", nil, false
		}
		web.BadRequest(w, "Invalid multipart form")
		return "", nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		web.BadRequest(w, "Missing file field")
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		web.BadRequest(w, "Failed to read file")
		return "", nil, false
	}
	return header.Filename, data, true
}

func (h *Handler) loadOrNew(ctx context.Context, id string, year int) (*models.PeriodFinancialData, error) {
	p, err := h.repo.GetPeriod(ctx, id, year)
	if errors.Is(err, store.ErrNotFound) {
		return &models.PeriodFinancialData{AnalysisID: id, FiscalYear: year}, nil
	}
	return p, err
}

func (h *Handler) save(ctx context.Context, p *models.PeriodFinancialData) error {
	if err := validate.Period(p); err != nil {
		return err
	}
	return h.repo.UpsertPeriod(ctx, p)
}
