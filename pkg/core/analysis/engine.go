// Package analysis ties stored periods to the metric engine and renders the
// per-year metrics table used by the API, commentary and exports.
package analysis

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"financial_analyzer/pkg/core/calc"
	"financial_analyzer/pkg/core/format"
	"financial_analyzer/pkg/core/store"
	"financial_analyzer/pkg/core/validate"
	"financial_analyzer/pkg/models"

	"github.com/phuslu/log"
)

// Engine recalculates and summarizes analyses.
type Engine struct {
	repo store.Repository
	now  func() time.Time
}

// NewEngine creates an engine over repo.
func NewEngine(repo store.Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// Recalculate computes the metrics of every period of the analysis and saves them.
func (e *Engine) Recalculate(ctx context.Context, analysisID string) ([]models.PeriodFinancialData, error) {
	if _, err := e.repo.GetAnalysis(ctx, analysisID); err != nil {
		return nil, err
	}

	// 1. Load periods (ascending); edits after computedAt read as stale
	computedAt := e.now()
	periods, err := e.repo.ListPeriods(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to load periods: %w", err)
	}

	// 2. Compute, threading each year's predecessor
	computed := calc.CalculateSeries(periods)

	// 3. Persist
	if err := e.repo.SaveMetrics(ctx, analysisID, computed, computedAt); err != nil {
		return nil, err
	}

	log.Info().Str("component", "analysis").Str("analysis_id", analysisID).Int("periods", len(computed)).Msg("metrics recalculated")
	return computed, nil
}

// Summary returns the metrics table, recalculating first when stored metrics
// are missing or older than the latest period edit.
func (e *Engine) Summary(ctx context.Context, analysisID string) (*Table, error) {
	a, err := e.repo.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	periods, err := e.repo.ListPeriods(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to load periods: %w", err)
	}

	if needsRecalc(a, periods) {
		if periods, err = e.Recalculate(ctx, analysisID); err != nil {
			return nil, err
		}
	}
	return BuildTable(a, periods), nil
}

func needsRecalc(a *models.Analysis, periods []models.PeriodFinancialData) bool {
	if len(periods) == 0 {
		return false
	}
	if a.MetricsComputedAt == nil {
		return true
	}
	for _, p := range periods {
		if p.Metrics == nil || p.UpdatedAt.After(*a.MetricsComputedAt) {
			return true
		}
	}
	return false
}

// BuildTable formats computed periods. Periods without metrics render as placeholders.
func BuildTable(a *models.Analysis, periods []models.PeriodFinancialData) *Table {
	unit, err := format.ParseUnit(a.Unit)
	if err != nil {
		unit = format.UnitYen
	}

	t := &Table{
		AnalysisID:  a.ID,
		CompanyName: a.CompanyName,
		Unit:        string(unit),
		UnitLabel:   format.GetUnitLabel(unit),
	}
	for _, p := range periods {
		t.Years = append(t.Years, p.FiscalYear)
	}

	empty := &models.FinancialMetrics{}
	for _, def := range Metrics {
		row := Row{Key: def.Key, Label: def.Label}
		for _, p := range periods {
			m := p.Metrics
			if m == nil {
				m = empty
			}
			v := def.Get(m)
			if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
				v = nil
			}
			row.Values = append(row.Values, v)
			row.Cells = append(row.Cells, def.Format(v, unit))
		}
		t.Rows = append(t.Rows, row)
	}

	t.Warnings = integrityWarnings(periods)
	return t
}

func integrityWarnings(periods []models.PeriodFinancialData) []string {
	var out []string
	for i := range periods {
		p := &periods[i]
		report := validate.CheckIntegrity(p)
		for _, cp := range report.Checks {
			if cp.Status == validate.StatusMaterialMismatch {
				out = append(out, fmt.Sprintf("FY%d: %s (reported %.0f, calculated %.0f)", p.FiscalYear, cp.CheckpointName, cp.ReportedValue, cp.CalculatedValue))
			}
		}
		// Dividends explain a shortfall; growth beyond net income does not.
		if i > 0 && periods[i-1].FiscalYear == p.FiscalYear-1 {
			link := validate.CheckRetainedEarnings(p, &periods[i-1])
			if link != nil && !link.IsLinked && link.ActualREChange > link.NetIncome {
				out = append(out, fmt.Sprintf("FY%d: retained earnings grew by more than net income", p.FiscalYear))
			}
		}
	}
	return out
}

// Markdown renders the table as a GitHub-flavored markdown table.
func (t *Table) Markdown() string {
	var b strings.Builder
	b.WriteString("| 指標 |")
	for _, y := range t.Years {
		b.WriteString(" FY" + strconv.Itoa(y) + " |")
	}
	b.WriteString("\n|---|")
	for range t.Years {
		b.WriteString("---:|")
	}
	b.WriteString("\n")
	for _, r := range t.Rows {
		b.WriteString("| " + r.Label + " |")
		for _, c := range r.Cells {
			b.WriteString(" " + c + " |")
		}
		b.WriteString("\n")
	}
	return b.String()
}
