package validate

import (
	"math"
	"testing"

	"financial_analyzer/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return models.Float(v) }

func TestPeriod(t *testing.T) {
	p := &models.PeriodFinancialData{AnalysisID: "a1", FiscalYear: 2024}
	assert.NoError(t, Period(p))

	p.FiscalYear = 24
	err := Period(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "FiscalYear failed gte=1900")

	p.FiscalYear = 2024
	p.AccountDetails = []models.AccountDetail{{ItemName: "no type", Amount: 1}}
	err = Period(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccountType failed required")

	assert.Error(t, Period(nil))
}

func TestAnalysis(t *testing.T) {
	a := &models.Analysis{CompanyName: "山田製作所", Unit: "thousand_yen"}
	assert.NoError(t, Analysis(a))

	a.Unit = "usd"
	assert.ErrorContains(t, Analysis(a), "Unit failed oneof")
}

func TestCheckIntegrity(t *testing.T) {
	p := &models.PeriodFinancialData{
		FiscalYear: 2024,
		BalanceSheet: models.BalanceSheet{
			TotalAssets:      f(1000),
			LiabilitiesTotal: f(600),
			NetAssetsTotal:   f(400),
		},
		ProfitLoss: models.ProfitLoss{
			NetSales:    f(1000),
			CostOfSales: f(700),
			GrossProfit: f(302), // off by 2 on 300: 0.66%
			// operating income check skipped: SG&A missing
			OperatingIncome: f(50),
			IncomeBeforeTax: f(50),
			IncomeTaxes:     f(15),
			NetIncome:       f(30), // should be 35
		},
	}

	report := CheckIntegrity(p)
	require.Len(t, report.Checks, 3)
	assert.Equal(t, StatusMatch, report.Checks[0].Status)
	assert.Equal(t, StatusImmaterial, report.Checks[1].Status)
	assert.Equal(t, StatusMaterialMismatch, report.Checks[2].Status)
	assert.Equal(t, 5.0, report.Checks[2].Variance)
	assert.False(t, report.AllPassed)
}

func TestCheckRetainedEarnings(t *testing.T) {
	prev := &models.PeriodFinancialData{BalanceSheet: models.BalanceSheet{RetainedEarnings: f(1000)}}
	cur := &models.PeriodFinancialData{
		BalanceSheet: models.BalanceSheet{RetainedEarnings: f(1100)},
		ProfitLoss:   models.ProfitLoss{NetIncome: f(100)},
	}

	link := CheckRetainedEarnings(cur, prev)
	require.NotNil(t, link)
	assert.True(t, link.IsLinked)

	cur.BalanceSheet.RetainedEarnings = f(1080) // 20 paid as dividends
	link = CheckRetainedEarnings(cur, prev)
	assert.False(t, link.IsLinked)
	assert.Equal(t, 20.0, link.Difference)

	assert.Nil(t, CheckRetainedEarnings(cur, nil))
}

func TestCheckIntegrity_CurrentAssetsBound(t *testing.T) {
	p := &models.PeriodFinancialData{BalanceSheet: models.BalanceSheet{
		TotalAssets:        f(1000),
		CurrentAssetsTotal: f(1200),
	}}

	report := CheckIntegrity(p)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, StatusMaterialMismatch, report.Checks[0].Status)
	assert.Equal(t, 200.0, report.Checks[0].Variance)
	assert.False(t, report.AllPassed)

	p.BalanceSheet.CurrentAssetsTotal = f(400)
	report = CheckIntegrity(p)
	assert.Equal(t, StatusMatch, report.Checks[0].Status)
	assert.True(t, report.AllPassed)
}

func TestPeriod_RejectsNonFiniteAmounts(t *testing.T) {
	p := &models.PeriodFinancialData{
		AnalysisID:   "a1",
		FiscalYear:   2024,
		ManualInputs: models.ManualInputs{Depreciation: f(math.NaN())},
		BalanceSheet: models.BalanceSheet{TotalAssets: f(math.Inf(1))},
	}
	err := Period(p)
	require.ErrorIs(t, err, ErrInvalid)
	assert.ErrorContains(t, err, "manual_inputs.depreciation")
	assert.ErrorContains(t, err, "balance_sheet.total_assets")

	p.ManualInputs.Depreciation = f(10)
	p.BalanceSheet.TotalAssets = f(100)
	assert.NoError(t, Period(p))
}
