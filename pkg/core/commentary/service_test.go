package commentary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"financial_analyzer/pkg/core/agent"
	"financial_analyzer/pkg/core/analysis"
	"financial_analyzer/pkg/core/llm"
	"financial_analyzer/pkg/core/prompt"
	"financial_analyzer/pkg/core/store"
	"financial_analyzer/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, mock *llm.MockProvider, withPeriods bool) *Service {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemoryRepo()
	now := time.Now()
	require.NoError(t, repo.CreateAnalysis(ctx, &models.Analysis{ID: "a1", CompanyName: "テスト株式会社", Unit: "yen", CreatedAt: now, UpdatedAt: now}))
	if withPeriods {
		for _, fy := range []int{2023, 2024} {
			require.NoError(t, repo.UpsertPeriod(ctx, &models.PeriodFinancialData{
				AnalysisID:   "a1",
				FiscalYear:   fy,
				BalanceSheet: models.BalanceSheet{TangibleFixedAssets: models.Float(float64(fy))},
				ProfitLoss:   models.ProfitLoss{NetSales: models.Float(1000), OperatingIncome: models.Float(100)},
				UpdatedAt:    now,
			}))
		}
	}
	agents := agent.NewManagerWithProviders(agent.Config{ActiveProvider: "mock"}, map[string]llm.Provider{"mock": mock})
	return NewService(repo, analysis.NewEngine(repo), agents, prompt.NewRegistry())
}

func TestService_Generate(t *testing.T) {
	mock := &llm.MockProvider{Response: "```markdown\n## 総評\n\n増収基調です。\n```"}
	svc := setup(t, mock, true)
	ctx := context.Background()

	c, err := svc.Generate(ctx, "a1", "メインバンク変更を検討中")
	require.NoError(t, err)
	assert.Equal(t, "## 総評\n\n増収基調です。", c.Markdown)
	assert.Contains(t, c.HTML, "<h2>総評</h2>")
	assert.Equal(t, "mock", c.Provider)
	assert.NotEmpty(t, c.ID)

	require.Len(t, mock.Prompts, 1)
	sent := mock.Prompts[0]
	assert.Contains(t, sent, "テスト株式会社")
	assert.Contains(t, sent, "| 指標 | FY2023 | FY2024 |")
	assert.Contains(t, sent, "メインバンク変更を検討中")
	assert.Contains(t, sent, "設備投資額の推計値: FY2024")

	latest, err := svc.Latest(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, latest.ID)
}

func TestService_GenerateWithoutPeriods(t *testing.T) {
	mock := &llm.MockProvider{Response: "x"}
	svc := setup(t, mock, false)

	_, err := svc.Generate(context.Background(), "a1", "")
	assert.ErrorIs(t, err, ErrNoPeriods)
	assert.Empty(t, mock.Prompts)
}

func TestService_GenerateModelError(t *testing.T) {
	mock := &llm.MockProvider{Err: errors.New("boom")}
	svc := setup(t, mock, true)

	_, err := svc.Generate(context.Background(), "a1", "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "boom"))

	_, err = svc.Latest(context.Background(), "a1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
