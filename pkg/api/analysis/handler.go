package analysis

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"financial_analyzer/pkg/api/web"
	coreAnalysis "financial_analyzer/pkg/core/analysis"
	"financial_analyzer/pkg/core/store"
	"financial_analyzer/pkg/core/validate"
	"financial_analyzer/pkg/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Handler serves analyses, their periods and their metrics.
type Handler struct {
	repo   store.Repository
	engine *coreAnalysis.Engine
}

func NewHandler(repo store.Repository, engine *coreAnalysis.Engine) *Handler {
	return &Handler{repo: repo, engine: engine}
}

type CreateRequest struct {
	CompanyName string `json:"company_name"`
	Unit        string `json:"unit"`
}

// DetailResponse is an analysis with its periods.
type DetailResponse struct {
	Analysis *models.Analysis             `json:"analysis"`
	Periods  []models.PeriodFinancialData `json:"periods"`
}

// PeriodRequest is the editable part of a period. Amounts are in yen.
type PeriodRequest struct {
	BalanceSheet   models.BalanceSheet    `json:"balance_sheet"`
	ProfitLoss     models.ProfitLoss      `json:"profit_loss"`
	ManualInputs   models.ManualInputs    `json:"manual_inputs"`
	AccountDetails []models.AccountDetail `json:"account_details"`
}

type PeriodResponse struct {
	Period    *models.PeriodFinancialData `json:"period"`
	Integrity validate.IntegrityReport    `json:"integrity"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, POST, OPTIONS")
	if web.Preflight(w, r) {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "Invalid request body")
		return
	}
	if req.Unit == "" {
		req.Unit = "yen"
	}

	now := time.Now()
	a := &models.Analysis{
		ID:          uuid.NewString(),
		CompanyName: req.CompanyName,
		Unit:        req.Unit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validate.Analysis(a); err != nil {
		web.Error(w, err, http.StatusBadRequest)
		return
	}
	if err := h.repo.CreateAnalysis(r.Context(), a); err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	web.JSON(w, http.StatusCreated, a)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, POST, OPTIONS")
	list, err := h.repo.ListAnalyses(r.Context())
	if err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Analysis{}
	}
	web.JSON(w, http.StatusOK, list)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, DELETE, OPTIONS")
	id := mux.Vars(r)["id"]

	a, err := h.repo.GetAnalysis(r.Context(), id)
	if err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	periods, err := h.repo.ListPeriods(r.Context(), id)
	if err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	if periods == nil {
		periods = []models.PeriodFinancialData{}
	}
	web.JSON(w, http.StatusOK, DetailResponse{Analysis: a, Periods: periods})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, DELETE, OPTIONS")
	if err := h.repo.DeleteAnalysis(r.Context(), mux.Vars(r)["id"]); err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListPeriods(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, OPTIONS")
	id := mux.Vars(r)["id"]
	if _, err := h.repo.GetAnalysis(r.Context(), id); err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	periods, err := h.repo.ListPeriods(r.Context(), id)
	if err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	if periods == nil {
		periods = []models.PeriodFinancialData{}
	}
	web.JSON(w, http.StatusOK, periods)
}

// HandlePutPeriod creates or replaces one fiscal year. The stored metrics
// become stale until the next recalculation.
func (h *Handler) HandlePutPeriod(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "PUT, DELETE, OPTIONS")
	if web.Preflight(w, r) {
		return
	}
	id, year, ok := pathKey(w, r)
	if !ok {
		return
	}

	var req PeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.BadRequest(w, "Invalid request body")
		return
	}
	if _, err := h.repo.GetAnalysis(r.Context(), id); err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}

	p := &models.PeriodFinancialData{
		AnalysisID:     id,
		FiscalYear:     year,
		BalanceSheet:   req.BalanceSheet,
		ProfitLoss:     req.ProfitLoss,
		ManualInputs:   req.ManualInputs,
		AccountDetails: req.AccountDetails,
		UpdatedAt:      time.Now(),
	}
	if err := validate.Period(p); err != nil {
		web.Error(w, err, http.StatusBadRequest)
		return
	}
	if err := h.repo.UpsertPeriod(r.Context(), p); err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	web.JSON(w, http.StatusOK, PeriodResponse{Period: p, Integrity: validate.CheckIntegrity(p)})
}

func (h *Handler) HandleDeletePeriod(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "PUT, DELETE, OPTIONS")
	id, year, ok := pathKey(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeletePeriod(r.Context(), id, year); err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecalculate recomputes every period and returns the fresh table.
func (h *Handler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, POST, OPTIONS")
	if web.Preflight(w, r) {
		return
	}
	id := mux.Vars(r)["id"]
	if _, err := h.engine.Recalculate(r.Context(), id); err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	h.HandleMetrics(w, r)
}

func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	web.CORS(w, "GET, POST, OPTIONS")
	table, err := h.engine.Summary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		web.Error(w, err, http.StatusInternalServerError)
		return
	}
	web.JSON(w, http.StatusOK, table)
}

func pathKey(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		web.BadRequest(w, "Invalid fiscal year")
		return "", 0, false
	}
	return vars["id"], year, true
}
