package models

// FinancialMetrics are the derived figures of one fiscal year.
// A nil field is undefined: an operand was missing or a denominator was zero.
type FinancialMetrics struct {
	NetCash                   *float64 `json:"net_cash"`
	CurrentRatio              *float64 `json:"current_ratio"`
	EquityRatio               *float64 `json:"equity_ratio"`
	ReceivablesTurnoverMonths *float64 `json:"receivables_turnover_months"`
	InventoryTurnoverMonths   *float64 `json:"inventory_turnover_months"`

	Depreciation *float64 `json:"depreciation"`
	Capex        *float64 `json:"capex"`
	EBITDA       *float64 `json:"ebitda"`
	FCF          *float64 `json:"fcf"`

	SalesGrowthRate           *float64 `json:"sales_growth_rate"`
	OperatingIncomeGrowthRate *float64 `json:"operating_income_growth_rate"`
	EBITDAGrowthRate          *float64 `json:"ebitda_growth_rate"`

	GrossProfitMargin     *float64 `json:"gross_profit_margin"`
	OperatingProfitMargin *float64 `json:"operating_profit_margin"`
	EBITDAMargin          *float64 `json:"ebitda_margin"`

	EBITDAToInterestBearingDebt *float64 `json:"ebitda_to_interest_bearing_debt"`
	ROE                         *float64 `json:"roe"`
	ROA                         *float64 `json:"roa"`
}
