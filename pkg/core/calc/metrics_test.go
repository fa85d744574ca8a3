package calc

import (
	"math"
	"testing"

	"financial_analyzer/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return models.Float(v) }

// samplePeriod is a small manufacturer, amounts in yen.
func samplePeriod(year int) models.PeriodFinancialData {
	return models.PeriodFinancialData{
		AnalysisID: "a1",
		FiscalYear: year,
		BalanceSheet: models.BalanceSheet{
			CashAndDeposits:         f(30_000_000),
			AccountsReceivable:      f(12_000_000),
			Inventory:               f(6_000_000),
			CurrentAssetsTotal:      f(60_000_000),
			TangibleFixedAssets:     f(40_000_000),
			TotalAssets:             f(120_000_000),
			ShortTermBorrowings:     f(10_000_000),
			LongTermBorrowings:      f(20_000_000),
			CurrentLiabilitiesTotal: f(40_000_000),
			NetAssetsTotal:          f(48_000_000),
		},
		ProfitLoss: models.ProfitLoss{
			NetSales:        f(144_000_000),
			CostOfSales:     f(96_000_000),
			GrossProfit:     f(48_000_000),
			OperatingIncome: f(8_500_000),
			NetIncome:       f(4_800_000),
		},
		ManualInputs: models.ManualInputs{
			Depreciation: f(1_000_000),
			Capex:        f(2_000_000),
		},
	}
}

func TestCalculateAllMetrics_SamePeriodRatios(t *testing.T) {
	p := samplePeriod(2023)
	m := CalculateAllMetrics(&p, nil)

	require.NotNil(t, m.NetCash)
	assert.Equal(t, 0.0, *m.NetCash)
	assert.InDelta(t, 150.0, *m.CurrentRatio, 1e-9)
	assert.InDelta(t, 40.0, *m.EquityRatio, 1e-9)
	assert.InDelta(t, 1.0, *m.ReceivablesTurnoverMonths, 1e-9)
	assert.InDelta(t, 0.75, *m.InventoryTurnoverMonths, 1e-9)
	assert.InDelta(t, 100.0/3.0, *m.GrossProfitMargin, 1e-9)
	assert.InDelta(t, 8_500_000.0/144_000_000*100, *m.OperatingProfitMargin, 1e-9)
	assert.InDelta(t, 10.0, *m.ROE, 1e-9)
	assert.InDelta(t, 4.0, *m.ROA, 1e-9)
}

func TestCalculateAllMetrics_EBITDAAndFCF(t *testing.T) {
	p := samplePeriod(2023)
	m := CalculateAllMetrics(&p, nil)

	require.NotNil(t, m.EBITDA)
	assert.Equal(t, 9_500_000.0, *m.EBITDA)
	require.NotNil(t, m.FCF)
	assert.Equal(t, 7_500_000.0, *m.FCF)
	assert.InDelta(t, 9_500_000.0/144_000_000*100, *m.EBITDAMargin, 1e-9)

	// No previous period: debt is the current year alone.
	require.NotNil(t, m.EBITDAToInterestBearingDebt)
	assert.InDelta(t, 30_000_000.0/9_500_000.0, *m.EBITDAToInterestBearingDebt, 1e-9)
}

func TestCalculateAllMetrics_NetDebtIsNegative(t *testing.T) {
	p := samplePeriod(2023)
	p.BalanceSheet.CashAndDeposits = f(5_000_000)
	m := CalculateAllMetrics(&p, nil)

	require.NotNil(t, m.NetCash)
	assert.Equal(t, -25_000_000.0, *m.NetCash)
}

func TestCalculateAllMetrics_ZeroCurrentLiabilities(t *testing.T) {
	p := samplePeriod(2023)
	baseline := CalculateAllMetrics(&p, nil)

	p.BalanceSheet.CurrentLiabilitiesTotal = f(0)
	m := CalculateAllMetrics(&p, nil)

	assert.Nil(t, m.CurrentRatio)

	// Every other field is unaffected.
	baseline.CurrentRatio = nil
	assert.Equal(t, baseline, m)
}

func TestCalculateAllMetrics_FirstPeriodHasNoGrowth(t *testing.T) {
	p := samplePeriod(2023)
	p.ManualInputs.Capex = nil
	m := CalculateAllMetrics(&p, nil)

	assert.Nil(t, m.SalesGrowthRate)
	assert.Nil(t, m.OperatingIncomeGrowthRate)
	assert.Nil(t, m.EBITDAGrowthRate)
	assert.Nil(t, m.Capex)
	assert.Nil(t, m.FCF)

	assert.NotNil(t, m.CurrentRatio)
	assert.NotNil(t, m.EquityRatio)
	assert.NotNil(t, m.ROE)
	assert.NotNil(t, m.ROA)
	assert.NotNil(t, m.GrossProfitMargin)
	assert.NotNil(t, m.OperatingProfitMargin)
	assert.NotNil(t, m.EBITDAMargin)
}

func TestCalculateAllMetrics_Growth(t *testing.T) {
	tests := []struct {
		name     string
		current  *float64
		previous *float64
		expected *float64
	}{
		{"growth", f(100), f(80), f(25)},
		{"decline", f(60), f(80), f(-25)},
		{"previous zero", f(100), f(0), nil},
		{"previous absent", f(100), nil, nil},
		{"current absent", nil, f(80), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := samplePeriod(2022)
			prev.ProfitLoss.NetSales = tt.previous
			cur := samplePeriod(2023)
			cur.ProfitLoss.NetSales = tt.current

			m := CalculateAllMetrics(&cur, &prev)
			if tt.expected == nil {
				assert.Nil(t, m.SalesGrowthRate)
				return
			}
			require.NotNil(t, m.SalesGrowthRate)
			assert.InDelta(t, *tt.expected, *m.SalesGrowthRate, 1e-9)
		})
	}
}

func TestCalculateAllMetrics_AverageDebtWithPrevious(t *testing.T) {
	prev := samplePeriod(2022)
	prev.BalanceSheet.ShortTermBorrowings = f(20_000_000)
	prev.BalanceSheet.LongTermBorrowings = f(30_000_000)
	cur := samplePeriod(2023)

	m := CalculateAllMetrics(&cur, &prev)
	require.NotNil(t, m.EBITDAToInterestBearingDebt)
	assert.InDelta(t, 40_000_000.0/9_500_000.0, *m.EBITDAToInterestBearingDebt, 1e-9)

	// A previous period without any borrowing lines falls back to the current year.
	prev.BalanceSheet.ShortTermBorrowings = nil
	prev.BalanceSheet.LongTermBorrowings = nil
	m = CalculateAllMetrics(&cur, &prev)
	assert.InDelta(t, 30_000_000.0/9_500_000.0, *m.EBITDAToInterestBearingDebt, 1e-9)
}

func TestCalculateAllMetrics_ZeroEBITDA(t *testing.T) {
	p := samplePeriod(2023)
	p.ProfitLoss.OperatingIncome = f(-1_000_000)

	m := CalculateAllMetrics(&p, nil)
	require.NotNil(t, m.EBITDA)
	assert.Equal(t, 0.0, *m.EBITDA)
	assert.Nil(t, m.EBITDAToInterestBearingDebt)
}

func TestCalculateAllMetrics_EmptyPeriodNeverProducesNaN(t *testing.T) {
	empty := models.PeriodFinancialData{FiscalYear: 2023}
	prev := models.PeriodFinancialData{FiscalYear: 2022}
	m := CalculateAllMetrics(&empty, &prev)

	for _, v := range []*float64{
		m.NetCash, m.CurrentRatio, m.EquityRatio, m.ReceivablesTurnoverMonths,
		m.InventoryTurnoverMonths, m.EBITDA, m.FCF, m.SalesGrowthRate,
		m.OperatingIncomeGrowthRate, m.EBITDAGrowthRate, m.GrossProfitMargin,
		m.OperatingProfitMargin, m.EBITDAMargin, m.EBITDAToInterestBearingDebt,
		m.ROE, m.ROA,
	} {
		if v != nil {
			assert.False(t, math.IsNaN(*v) || math.IsInf(*v, 0))
		}
	}
	assert.Nil(t, m.EBITDA)
	assert.Nil(t, m.CurrentRatio)
	assert.Equal(t, 0.0, *m.Depreciation)
}

func TestCalculateAllMetrics_GrossProfitFallback(t *testing.T) {
	p := samplePeriod(2023)
	p.ProfitLoss.GrossProfit = nil
	p.ProfitLoss.NetSales = f(200)
	p.ProfitLoss.CostOfSales = f(150)

	m := CalculateAllMetrics(&p, nil)
	require.NotNil(t, m.GrossProfitMargin)
	assert.InDelta(t, 25.0, *m.GrossProfitMargin, 1e-9)
}

func TestCalculateSeries_OrdersAndThreadsPrevious(t *testing.T) {
	p2021 := samplePeriod(2021)
	p2021.ProfitLoss.NetSales = f(80)
	p2021.ProfitLoss.OperatingIncome = f(4_000_000)
	p2022 := samplePeriod(2022)
	p2022.ProfitLoss.NetSales = f(100)

	input := []models.PeriodFinancialData{p2022, p2021}
	out := CalculateSeries(input)

	require.Len(t, out, 2)
	assert.Equal(t, 2021, out[0].FiscalYear)
	assert.Equal(t, 2022, out[1].FiscalYear)
	assert.Nil(t, input[0].Metrics, "input must not be modified")

	require.NotNil(t, out[0].Metrics)
	assert.Nil(t, out[0].Metrics.SalesGrowthRate)

	require.NotNil(t, out[1].Metrics.SalesGrowthRate)
	assert.InDelta(t, 25.0, *out[1].Metrics.SalesGrowthRate, 1e-9)
	// EBITDA 2021 = 5,000,000; 2022 = 9,500,000
	require.NotNil(t, out[1].Metrics.EBITDAGrowthRate)
	assert.InDelta(t, 90.0, *out[1].Metrics.EBITDAGrowthRate, 1e-9)
}

func TestCalculateAllMetrics_NilPeriod(t *testing.T) {
	assert.Equal(t, models.FinancialMetrics{}, CalculateAllMetrics(nil, nil))
}

func TestCalculateAllMetrics_NonFiniteManualInputs(t *testing.T) {
	cases := map[string]float64{"nan": math.NaN(), "inf": math.Inf(1), "-inf": math.Inf(-1)}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			p := samplePeriod(2023)
			p.ManualInputs.Depreciation = f(bad)
			p.ManualInputs.Capex = f(bad)

			m := CalculateAllMetrics(&p, nil)
			assert.Nil(t, m.Depreciation)
			assert.Nil(t, m.Capex)
			assert.Nil(t, m.EBITDA)
			assert.Nil(t, m.FCF)
			assert.Nil(t, m.EBITDAMargin)
			require.NotNil(t, m.CurrentRatio, "unrelated metrics still computed")
			assert.Equal(t, 150.0, *m.CurrentRatio)
		})
	}
}
