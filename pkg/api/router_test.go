package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"financial_analyzer/pkg/core/agent"
	coreAnalysis "financial_analyzer/pkg/core/analysis"
	coreCommentary "financial_analyzer/pkg/core/commentary"
	coreExport "financial_analyzer/pkg/core/export"
	"financial_analyzer/pkg/core/extraction"
	"financial_analyzer/pkg/core/llm"
	"financial_analyzer/pkg/core/prompt"
	"financial_analyzer/pkg/core/store"
	"financial_analyzer/pkg/models"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	router http.Handler
	ocr    *llm.MockProvider
	writer *llm.MockProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := store.NewMemoryRepo()
	engine := coreAnalysis.NewEngine(repo)
	ocr := &llm.MockProvider{}
	writer := &llm.MockProvider{Response: "## 総評\n\n安定しています。"}
	agents := agent.NewManagerWithProviders(agent.Config{
		ActiveProvider: "writer",
		Agents:         map[string]agent.AgentConfig{agent.OCRExtraction: {Provider: "ocr"}},
	}, map[string]llm.Provider{"ocr": ocr, "writer": writer})
	prompts := prompt.NewRegistry()

	router := NewRouter(Deps{
		Repo:        repo,
		Engine:      engine,
		Extractor:   extraction.NewExtractor(agents, prompts, store.NewExtractionCache(nil, t.TempDir()), extraction.Options{MaxPages: 10}),
		Commentary:  coreCommentary.NewService(repo, engine, agents, prompts),
		Export:      coreExport.NewService(repo, engine, coreExport.Options{}),
		Agents:      agents,
		MaxUploadMB: 5,
	})
	return &testServer{t: t, router: router, ocr: ocr, writer: writer}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(path, fileName string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(s.t, err)
	_, err = fw.Write(data)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createAnalysis() string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/analyses", map[string]string{"company_name": "山田製作所", "unit": "thousand_yen"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var a models.Analysis
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &a))
	return a.ID
}

func TestAnalysisLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := s.createAnalysis()

	for _, fy := range []string{"2023", "2024"} {
		rec := s.do(http.MethodPut, "/api/analyses/"+id+"/periods/"+fy, map[string]interface{}{
			"balance_sheet": map[string]float64{"current_assets_total": 60_000_000, "current_liabilities_total": 40_000_000},
			"profit_loss":   map[string]float64{"net_sales": 100_000_000, "operating_income": 10_000_000},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodPost, "/api/analyses/"+id+"/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var table coreAnalysis.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	assert.Equal(t, []int{2023, 2024}, table.Years)
	assert.Equal(t, "150.0%", table.Rows[1].Cells[0])

	rec = s.do(http.MethodGet, "/api/analyses/"+id+"/periods", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var periods []models.PeriodFinancialData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &periods))
	require.Len(t, periods, 2)
	require.NotNil(t, periods[1].Metrics)

	rec = s.do(http.MethodDelete, "/api/analyses/"+id+"/periods/2023", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodDelete, "/api/analyses/"+id+"/periods/2023", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/api/analyses/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/analyses/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAnalysis_Validation(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/analyses", map[string]string{"company_name": "", "unit": "usd"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation failed")
}

func TestPutPeriod_InvalidYear(t *testing.T) {
	s := newTestServer(t)
	id := s.createAnalysis()
	rec := s.do(http.MethodPut, "/api/analyses/"+id+"/periods/12", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/analyses/missing/periods/2024", map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadPDF(t *testing.T) {
	s := newTestServer(t)
	id := s.createAnalysis()
	s.ocr.Response = `{"unit": "千円", "balance_sheet": {"total_assets": 1000, "liabilities_total": 600, "net_assets_total": 400}}`

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(40, 10, "BS")
	var doc bytes.Buffer
	require.NoError(t, pdf.Output(&doc))

	rec := s.upload("/api/analyses/"+id+"/upload", "fy2024.pdf", doc.Bytes(), map[string]string{"fiscal_year": "2024"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Period     models.PeriodFinancialData `json:"period"`
		Extraction extraction.Result          `json:"extraction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2024, resp.Period.FiscalYear)
	assert.Equal(t, "fy2024.pdf", resp.Period.SourceFile)
	assert.InDelta(t, 1_000_000, *resp.Period.BalanceSheet.TotalAssets, 1e-6)
	assert.True(t, resp.Extraction.Integrity.AllPassed)

	rec = s.upload("/api/analyses/"+id+"/upload", "notes.txt", []byte("hello"), map[string]string{"fiscal_year": "2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportCSV(t *testing.T) {
	s := newTestServer(t)
	id := s.createAnalysis()

	csv := "fiscal_year,net_sales,capex\n2023,1000,500\n2024,1200,\n"
	rec := s.upload("/api/analyses/"+id+"/import", "periods.csv", []byte(csv), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"imported":[2023,2024]}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/analyses/"+id+"/periods", nil)
	var periods []models.PeriodFinancialData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &periods))
	require.Len(t, periods, 2)
	// the analysis unit is thousand_yen
	assert.InDelta(t, 1_000_000, *periods[0].ProfitLoss.NetSales, 1e-6)
	assert.InDelta(t, 500, *periods[0].ManualInputs.Capex, 1e-6)
}

func TestCommentaryAndExport(t *testing.T) {
	s := newTestServer(t)
	id := s.createAnalysis()

	rec := s.do(http.MethodPost, "/api/analyses/"+id+"/commentary", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no periods yet")

	s.do(http.MethodPut, "/api/analyses/"+id+"/periods/2024", map[string]interface{}{
		"profit_loss": map[string]float64{"net_sales": 100, "operating_income": 10},
	})

	rec = s.do(http.MethodPost, "/api/analyses/"+id+"/commentary", map[string]string{"notes": "設備更新予定"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, s.writer.Prompts[0], "設備更新予定")

	rec = s.do(http.MethodGet, "/api/analyses/"+id+"/commentary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h2>総評</h2>")

	rec = s.do(http.MethodGet, "/api/analyses/"+id+"/export?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rec = s.do(http.MethodGet, "/api/analyses/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))

	rec = s.do(http.MethodGet, "/api/analyses/"+id+"/export?format=pptx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active_provider":"writer","available":["ocr","writer"],"routing":{"ocr_extraction":"ocr","commentary":"writer"}}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/config/switch", map[string]string{"provider": "ocr"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active_provider":"ocr"`)

	rec = s.do(http.MethodPost, "/api/config/switch", map[string]string{"provider": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodOptions, "/api/analyses/x/periods/2024", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}
