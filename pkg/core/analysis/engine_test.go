package analysis

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"financial_analyzer/pkg/core/store"
	"financial_analyzer/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return models.Float(v) }

func setup(t *testing.T) (*Engine, store.Repository) {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemoryRepo()
	now := time.Now()
	require.NoError(t, repo.CreateAnalysis(ctx, &models.Analysis{ID: "a1", CompanyName: "テスト株式会社", Unit: "thousand_yen", CreatedAt: now, UpdatedAt: now}))

	for i, sales := range []float64{100_000_000, 120_000_000} {
		p := &models.PeriodFinancialData{
			AnalysisID: "a1",
			FiscalYear: 2023 + i,
			BalanceSheet: models.BalanceSheet{
				CashAndDeposits:         f(30_000_000),
				CurrentAssetsTotal:      f(60_000_000),
				CurrentLiabilitiesTotal: f(40_000_000),
				TotalAssets:             f(120_000_000),
				NetAssetsTotal:          f(48_000_000),
			},
			ProfitLoss: models.ProfitLoss{
				NetSales:        f(sales),
				OperatingIncome: f(sales / 10),
				NetIncome:       f(sales / 20),
			},
			UpdatedAt: now,
		}
		require.NoError(t, repo.UpsertPeriod(ctx, p))
	}
	return NewEngine(repo), repo
}

func row(t *testing.T, table *Table, key string) Row {
	t.Helper()
	for _, r := range table.Rows {
		if r.Key == key {
			return r
		}
	}
	t.Fatalf("row %s missing", key)
	return Row{}
}

func TestEngine_Recalculate(t *testing.T) {
	engine, repo := setup(t)
	ctx := context.Background()

	periods, err := engine.Recalculate(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Nil(t, periods[0].Metrics.SalesGrowthRate)
	require.NotNil(t, periods[1].Metrics.SalesGrowthRate)
	assert.InDelta(t, 20.0, *periods[1].Metrics.SalesGrowthRate, 1e-9)

	a, err := repo.GetAnalysis(ctx, "a1")
	require.NoError(t, err)
	assert.NotNil(t, a.MetricsComputedAt)

	stored, err := repo.GetPeriod(ctx, "a1", 2024)
	require.NoError(t, err)
	require.NotNil(t, stored.Metrics)
}

func TestEngine_RecalculateUnknownAnalysis(t *testing.T) {
	engine, _ := setup(t)
	_, err := engine.Recalculate(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEngine_SummaryFormatsCells(t *testing.T) {
	engine, _ := setup(t)

	table, err := engine.Summary(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2024}, table.Years)
	assert.Equal(t, "千円", table.UnitLabel)
	assert.Len(t, table.Rows, len(Metrics))

	assert.Equal(t, []string{"150.0%", "150.0%"}, row(t, table, "current_ratio").Cells)
	assert.Equal(t, []string{"-", "20.0%"}, row(t, table, "sales_growth_rate").Cells)
	assert.Equal(t, "30,000千円", row(t, table, "net_cash").Cells[0])
}

func TestTable_Markdown(t *testing.T) {
	engine, _ := setup(t)
	table, err := engine.Summary(context.Background(), "a1")
	require.NoError(t, err)

	md := table.Markdown()
	lines := strings.Split(strings.TrimSpace(md), "\n")
	assert.Equal(t, "| 指標 | FY2023 | FY2024 |", lines[0])
	assert.Len(t, lines, 2+len(Metrics))
	assert.Contains(t, md, "| 流動比率 | 150.0% | 150.0% |")
}

func TestBuildTable_IntegrityWarnings(t *testing.T) {
	a := &models.Analysis{ID: "a1", Unit: "yen"}
	periods := []models.PeriodFinancialData{{
		FiscalYear: 2024,
		BalanceSheet: models.BalanceSheet{
			TotalAssets:      f(100),
			LiabilitiesTotal: f(40),
			NetAssetsTotal:   f(30),
		},
	}}
	table := BuildTable(a, periods)
	require.Len(t, table.Warnings, 1)
	assert.Contains(t, table.Warnings[0], "FY2024")
	assert.Equal(t, "-", table.Rows[0].Cells[0])
}

// editingRepo applies edit once, right after the first ListPeriods snapshot.
type editingRepo struct {
	store.Repository
	edit func()
}

func (r *editingRepo) ListPeriods(ctx context.Context, id string) ([]models.PeriodFinancialData, error) {
	periods, err := r.Repository.ListPeriods(ctx, id)
	if r.edit != nil {
		r.edit()
		r.edit = nil
	}
	return periods, err
}

func TestEngine_RecalculateRacingEditStaysStale(t *testing.T) {
	_, inner := setup(t)
	ctx := context.Background()

	// Every reading advances the clock by a second.
	clock := time.Now().Add(time.Minute)
	tick := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	repo := &editingRepo{Repository: inner}
	repo.edit = func() {
		p, err := inner.GetPeriod(ctx, "a1", 2023)
		require.NoError(t, err)
		p.ProfitLoss.NetSales = f(200)
		p.ProfitLoss.OperatingIncome = f(40)
		p.UpdatedAt = tick()
		require.NoError(t, inner.UpsertPeriod(ctx, p))
	}
	engine := NewEngine(repo)
	engine.now = tick

	_, err := engine.Recalculate(ctx, "a1")
	require.NoError(t, err)

	stale, err := inner.ListStaleAnalyses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, stale, "metrics computed before the edit must not look fresh")

	table, err := engine.Summary(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "20.0%", row(t, table, "operating_profit_margin").Cells[0])
}

func TestBuildTable_NonFiniteMetricsRenderAsPlaceholder(t *testing.T) {
	a := &models.Analysis{ID: "a1", Unit: "million_yen"}
	periods := []models.PeriodFinancialData{{
		FiscalYear: 2024,
		Metrics: &models.FinancialMetrics{
			Depreciation: f(math.NaN()),
			EBITDA:       f(math.Inf(1)),
			CurrentRatio: f(math.Inf(-1)),
		},
	}}

	var table *Table
	require.NotPanics(t, func() { table = BuildTable(a, periods) })
	for _, key := range []string{"depreciation", "ebitda", "current_ratio"} {
		r := row(t, table, key)
		assert.Nil(t, r.Values[0], key)
		assert.Equal(t, "-", r.Cells[0], key)
	}
}
