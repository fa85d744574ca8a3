// Package commentary generates the AI narrative over an analysis' metrics.
package commentary

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"financial_analyzer/pkg/core/agent"
	"financial_analyzer/pkg/core/analysis"
	"financial_analyzer/pkg/core/prompt"
	"financial_analyzer/pkg/core/store"
	"financial_analyzer/pkg/core/utils"
	"financial_analyzer/pkg/models"

	"github.com/google/uuid"
	"github.com/phuslu/log"
)

// ErrNoPeriods is returned when there is nothing to comment on.
var ErrNoPeriods = errors.New("analysis has no periods")

type Service struct {
	repo    store.Repository
	engine  *analysis.Engine
	agents  *agent.Manager
	prompts *prompt.Registry
}

func NewService(repo store.Repository, engine *analysis.Engine, agents *agent.Manager, prompts *prompt.Registry) *Service {
	return &Service{repo: repo, engine: engine, agents: agents, prompts: prompts}
}

// Generate writes a new commentary for the analysis and stores it.
// notes is optional free text from the user.
func (s *Service) Generate(ctx context.Context, analysisID, notes string) (*models.Commentary, error) {
	// 1. Current metrics table
	table, err := s.engine.Summary(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if len(table.Years) == 0 {
		return nil, ErrNoPeriods
	}
	periods, err := s.repo.ListPeriods(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to load periods: %w", err)
	}

	// 2. Prompt
	pctx := prompt.NewContext().
		Set("CompanyName", table.CompanyName).
		Set("UnitLabel", table.UnitLabel).
		Set("MetricsTable", table.Markdown()).
		Set("Notes", buildNotes(notes, periods, table.Warnings))
	system, user, err := s.prompts.Render(prompt.PromptIDs.CommentaryAnalysis, pctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render commentary prompt: %w", err)
	}

	// 3. Model call
	raw, err := s.agents.ExecutePrompt(ctx, agent.Commentary, user, system, nil)
	if err != nil {
		return nil, fmt.Errorf("commentary generation failed: %w", err)
	}
	markdown := utils.CleanMarkdown(raw)
	if markdown == "" {
		return nil, errors.New("model returned an empty commentary")
	}
	html, err := utils.RenderHTML(markdown)
	if err != nil {
		return nil, err
	}

	// 4. Persist
	c := &models.Commentary{
		ID:         uuid.NewString(),
		AnalysisID: analysisID,
		Provider:   s.agents.ProviderName(agent.Commentary),
		Markdown:   markdown,
		HTML:       html,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.SaveCommentary(ctx, c); err != nil {
		return nil, err
	}

	log.Info().Str("component", "commentary").Str("analysis_id", analysisID).Str("provider", c.Provider).Int("chars", len(markdown)).Msg("commentary generated")
	return c, nil
}

// Latest returns the most recent commentary of the analysis.
func (s *Service) Latest(ctx context.Context, analysisID string) (*models.Commentary, error) {
	return s.repo.LatestCommentary(ctx, analysisID)
}

// buildNotes adds what the table cannot show: which CAPEX figures are
// estimates and which integrity checks failed.
func buildNotes(userNotes string, periods []models.PeriodFinancialData, warnings []string) string {
	var lines []string
	if n := strings.TrimSpace(userNotes); n != "" {
		lines = append(lines, n)
	}

	var estimated []string
	for _, p := range periods {
		if p.ManualInputs.Capex == nil && p.Metrics != nil && p.Metrics.Capex != nil {
			estimated = append(estimated, "FY"+strconv.Itoa(p.FiscalYear))
		}
	}
	if len(estimated) > 0 {
		lines = append(lines, "設備投資額の推計値: "+strings.Join(estimated, ", "))
	}
	for _, w := range warnings {
		lines = append(lines, "整合性の警告: "+w)
	}
	return strings.Join(lines, "\n")
}
