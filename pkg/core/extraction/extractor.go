// Package extraction reads Japanese financial statement PDFs into period
// data using a document-capable LLM.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"financial_analyzer/pkg/core/agent"
	"financial_analyzer/pkg/core/prompt"
	"financial_analyzer/pkg/core/store"
	"financial_analyzer/pkg/core/utils"
	"financial_analyzer/pkg/core/validate"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/phuslu/log"
)

var (
	ErrEmptyDocument = errors.New("empty document")
	ErrNotPDF        = errors.New("file is not a readable PDF")
	ErrTooManyPages  = errors.New("document has too many pages")
)

// Options bound a single extraction.
type Options struct {
	MaxPages int
	Timeout  time.Duration
}

// Request is one uploaded statement file.
type Request struct {
	FileName    string
	Data        []byte
	FiscalYear  int
	CompanyName string
}

// Result is the normalized statement plus diagnostics.
type Result struct {
	Statement   Statement                `json:"statement"`
	Integrity   validate.IntegrityReport `json:"integrity"`
	Provider    string                   `json:"provider"`
	ContentHash string                   `json:"content_hash"`
	Pages       int                      `json:"pages"`
	Cached      bool                     `json:"cached"`
}

type Extractor struct {
	agents  *agent.Manager
	prompts *prompt.Registry
	cache   *store.ExtractionCache
	opts    Options
}

func NewExtractor(agents *agent.Manager, prompts *prompt.Registry, cache *store.ExtractionCache, opts Options) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Extractor{agents: agents, prompts: prompts, cache: cache, opts: opts}
}

// Extract reads req into a yen-denominated Statement. Identical files are
// served from the cache.
func (e *Extractor) Extract(ctx context.Context, req Request) (*Result, error) {
	// 1. Validate the document
	if len(req.Data) == 0 {
		return nil, ErrEmptyDocument
	}
	pages, err := pageCount(req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if e.opts.MaxPages > 0 && pages > e.opts.MaxPages {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPages, pages, e.opts.MaxPages)
	}

	result := &Result{ContentHash: store.ContentHash(req.Data), Pages: pages}

	// 2. Cache lookup
	if e.cache != nil {
		entry, err := e.cache.Get(ctx, result.ContentHash)
		if err != nil {
			log.Warn().Err(err).Str("component", "extraction").Msg("cache lookup failed")
		} else if entry != nil && json.Unmarshal(entry.Data, &result.Statement) == nil {
			result.Cached = true
			result.Provider = entry.Provider
			e.finish(result, req.FiscalYear)
			log.Info().Str("component", "extraction").Str("file", req.FileName).Int("fiscal_year", result.Statement.FiscalYear).Bool("cached", true).Msg("statement extracted")
			return result, nil
		}
	}

	// 3. Ask the model
	raw, provider, err := e.callModel(ctx, req)
	if err != nil {
		return nil, err
	}
	result.Provider = provider

	// 4. Parse leniently
	if _, err := utils.SmartParse(raw, &result.Statement); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	e.finish(result, req.FiscalYear)

	// 5. Cache the normalized statement
	if e.cache != nil {
		e.save(ctx, req, result)
	}

	log.Info().Str("component", "extraction").Str("file", req.FileName).Int("fiscal_year", result.Statement.FiscalYear).Str("provider", provider).Int("pages", pages).Bool("integrity_passed", result.Integrity.AllPassed).Msg("statement extracted")
	return result, nil
}

// save caches the normalized statement. Failures are logged, not returned.
func (e *Extractor) save(ctx context.Context, req Request, result *Result) {
	data, err := json.Marshal(result.Statement)
	if err != nil {
		log.Warn().Err(err).Str("component", "extraction").Str("file", req.FileName).Msg("statement not cacheable")
		return
	}
	entry := &store.CacheEntry{
		ContentHash: result.ContentHash,
		FileName:    req.FileName,
		FiscalYear:  result.Statement.FiscalYear,
		Provider:    result.Provider,
		Data:        data,
	}
	if err := e.cache.Save(ctx, entry); err != nil {
		log.Warn().Err(err).Str("component", "extraction").Msg("cache save failed")
	}
}

func (e *Extractor) callModel(ctx context.Context, req Request) (string, string, error) {
	pctx := prompt.NewContext().
		Set("FiscalYear", req.FiscalYear).
		Set("CompanyName", req.CompanyName)
	system, user, err := e.prompts.Render(prompt.PromptIDs.ExtractionFinancialStatement, pctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to render extraction prompt: %w", err)
	}

	dp, err := e.agents.GetDocumentProvider(agent.OCRExtraction)
	if err != nil {
		return "", "", err
	}
	provider := e.agents.ProviderName(agent.OCRExtraction)

	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	options := map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	}
	raw, err := dp.GenerateFromDocument(callCtx, user, dp.AdaptInstructions(system), "application/pdf", req.Data, options)
	if err != nil {
		return "", provider, fmt.Errorf("extraction with %s failed: %w", provider, err)
	}
	return raw, provider, nil
}

// finish normalizes units, pins the fiscal year the caller asked for and
// runs the integrity checks.
func (e *Extractor) finish(r *Result, fiscalYear int) {
	r.Statement.Normalize()
	if fiscalYear > 0 {
		r.Statement.FiscalYear = fiscalYear
	}
	check := periodOf(&r.Statement)
	r.Integrity = validate.CheckIntegrity(check)
}

func pageCount(data []byte) (int, error) {
	pdfCtx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, err
	}
	return pdfCtx.PageCount, nil
}
