package calc

import (
	"sort"

	"financial_analyzer/pkg/models"
)

// CalculateAllMetrics derives every metric of period. previous is the immediately
// preceding fiscal year of the same analysis, or nil for the first period.
//
// Fields that cannot be computed are nil; one undefined field never
// prevents the others from being computed.
func CalculateAllMetrics(period, previous *models.PeriodFinancialData) models.FinancialMetrics {
	var m models.FinancialMetrics
	if period == nil {
		return m
	}

	bs := period.BalanceSheet
	pl := period.ProfitLoss

	// 1. Liquidity and solvency
	m.NetCash = netCash(period)
	m.CurrentRatio = percent(bs.CurrentAssetsTotal, bs.CurrentLiabilitiesTotal)
	m.EquityRatio = percent(bs.NetAssetsTotal, bs.TotalAssets)

	// 2. Working capital turnover (months of sales / cost of sales)
	m.ReceivablesTurnoverMonths = ratio(bs.AccountsReceivable, monthly(pl.NetSales))
	m.InventoryTurnoverMonths = ratio(bs.Inventory, monthly(pl.CostOfSales))

	// 3. Cash flow proxies
	depreciation := ResolveDepreciation(period)
	m.Depreciation = finite(depreciation)
	m.EBITDA = add(pl.OperatingIncome, m.Depreciation)
	m.Capex = ResolveCapex(period, previous)
	m.FCF = sub(m.EBITDA, m.Capex)

	// 4. Margins
	m.GrossProfitMargin = percent(grossProfit(pl), pl.NetSales)
	m.OperatingProfitMargin = percent(pl.OperatingIncome, pl.NetSales)
	m.EBITDAMargin = percent(m.EBITDA, pl.NetSales)

	// 5. Returns
	m.ROE = percent(pl.NetIncome, bs.NetAssetsTotal)
	m.ROA = percent(pl.NetIncome, bs.TotalAssets)

	// 6. Leverage: average debt of both years when the prior year has debt
	// data, otherwise the current year alone.
	m.EBITDAToInterestBearingDebt = ratio(averageDebt(period, previous), m.EBITDA)

	// 7. Period-over-period growth
	if previous != nil {
		m.SalesGrowthRate = growth(pl.NetSales, previous.ProfitLoss.NetSales)
		m.OperatingIncomeGrowthRate = growth(pl.OperatingIncome, previous.ProfitLoss.OperatingIncome)
		m.EBITDAGrowthRate = growth(m.EBITDA, previousEBITDA(previous))
	}

	return m
}

// CalculateSeries computes metrics for every period in ascending fiscal-year
// order, threading each computed period into the next call. The input slice
// is not modified; the returned slice is sorted by fiscal year.
func CalculateSeries(periods []models.PeriodFinancialData) []models.PeriodFinancialData {
	out := make([]models.PeriodFinancialData, len(periods))
	copy(out, periods)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FiscalYear < out[j].FiscalYear
	})

	for i := range out {
		var prev *models.PeriodFinancialData
		if i > 0 {
			prev = &out[i-1]
		}
		metrics := CalculateAllMetrics(&out[i], prev)
		out[i].Metrics = &metrics
	}
	return out
}

func netCash(p *models.PeriodFinancialData) *float64 {
	cash := p.BalanceSheet.CashAndDeposits
	if cash == nil {
		return nil
	}
	debt, _ := p.InterestBearingDebt()
	return finite(*cash - debt)
}

// grossProfit prefers the reported figure and falls back to sales minus cost of sales.
func grossProfit(pl models.ProfitLoss) *float64 {
	if pl.GrossProfit != nil {
		return pl.GrossProfit
	}
	return sub(pl.NetSales, pl.CostOfSales)
}

func averageDebt(period, previous *models.PeriodFinancialData) *float64 {
	cur, ok := period.InterestBearingDebt()
	if !ok {
		return nil
	}
	if previous != nil {
		if prev, ok := previous.InterestBearingDebt(); ok {
			return finite((cur + prev) / 2)
		}
	}
	return finite(cur)
}

// previousEBITDA reuses the prior period's computed EBITDA when present.
func previousEBITDA(previous *models.PeriodFinancialData) *float64 {
	if previous.Metrics != nil && previous.Metrics.EBITDA != nil {
		return previous.Metrics.EBITDA
	}
	return add(previous.ProfitLoss.OperatingIncome, models.Float(ResolveDepreciation(previous)))
}
