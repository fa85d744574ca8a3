package models

import (
	"time"
)

// BalanceSheet holds the balance sheet line items of one fiscal year.
// All amounts are in yen. A nil field means the item was not reported.
type BalanceSheet struct {
	// Assets
	CashAndDeposits     *float64 `json:"cash_and_deposits,omitempty"`
	AccountsReceivable  *float64 `json:"accounts_receivable,omitempty"`
	Inventory           *float64 `json:"inventory,omitempty"`
	CurrentAssetsTotal  *float64 `json:"current_assets_total,omitempty"`
	TangibleFixedAssets *float64 `json:"tangible_fixed_assets,omitempty"`
	FixedAssetsTotal    *float64 `json:"fixed_assets_total,omitempty"`
	TotalAssets         *float64 `json:"total_assets,omitempty"`

	// Liabilities
	AccountsPayable         *float64 `json:"accounts_payable,omitempty"`
	ShortTermBorrowings     *float64 `json:"short_term_borrowings,omitempty"`
	LongTermBorrowings      *float64 `json:"long_term_borrowings,omitempty"`
	CurrentLiabilitiesTotal *float64 `json:"current_liabilities_total,omitempty"`
	FixedLiabilitiesTotal   *float64 `json:"fixed_liabilities_total,omitempty"`
	LiabilitiesTotal        *float64 `json:"liabilities_total,omitempty"`

	// Net assets
	CapitalStock     *float64 `json:"capital_stock,omitempty"`
	RetainedEarnings *float64 `json:"retained_earnings,omitempty"`
	NetAssetsTotal   *float64 `json:"net_assets_total,omitempty"`
}

// ProfitLoss holds the profit and loss statement line items of one fiscal year.
type ProfitLoss struct {
	NetSales             *float64 `json:"net_sales,omitempty"`
	CostOfSales          *float64 `json:"cost_of_sales,omitempty"`
	GrossProfit          *float64 `json:"gross_profit,omitempty"`
	SGAExpenses          *float64 `json:"sga_expenses,omitempty"`
	OperatingIncome      *float64 `json:"operating_income,omitempty"`
	NonOperatingIncome   *float64 `json:"non_operating_income,omitempty"`
	NonOperatingExpenses *float64 `json:"non_operating_expenses,omitempty"`
	OrdinaryIncome       *float64 `json:"ordinary_income,omitempty"`
	ExtraordinaryIncome  *float64 `json:"extraordinary_income,omitempty"`
	ExtraordinaryLosses  *float64 `json:"extraordinary_losses,omitempty"`
	IncomeBeforeTax      *float64 `json:"income_before_tax,omitempty"`
	IncomeTaxes          *float64 `json:"income_taxes,omitempty"`
	NetIncome            *float64 `json:"net_income,omitempty"`
}

// ManualInputs are figures entered by the user that the statements do not carry.
// When Depreciation or Capex is nil the engine derives them automatically.
type ManualInputs struct {
	Depreciation       *float64 `json:"depreciation,omitempty"`
	Capex              *float64 `json:"capex,omitempty"`
	FixedAssetDisposal *float64 `json:"fixed_asset_disposal,omitempty"`
}

// AccountDetail is one itemized line from a supporting schedule
// (e.g. the SG&A breakdown or the manufacturing cost report).
type AccountDetail struct {
	AccountType string  `json:"account_type" validate:"required"`
	ItemName    string  `json:"item_name"`
	Amount      float64 `json:"amount"`
}

// PeriodFinancialData is one fiscal year of an analysis.
type PeriodFinancialData struct {
	AnalysisID     string            `json:"analysis_id" validate:"required"`
	FiscalYear     int               `json:"fiscal_year" validate:"required,gte=1900,lte=2200"`
	BalanceSheet   BalanceSheet      `json:"balance_sheet"`
	ProfitLoss     ProfitLoss        `json:"profit_loss"`
	ManualInputs   ManualInputs      `json:"manual_inputs"`
	AccountDetails []AccountDetail   `json:"account_details,omitempty" validate:"dive"`
	Metrics        *FinancialMetrics `json:"metrics,omitempty"`
	SourceFile     string            `json:"source_file,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// InterestBearingDebt returns short plus long term borrowings.
// It reports false when neither borrowing line is present.
func (p *PeriodFinancialData) InterestBearingDebt() (float64, bool) {
	st := p.BalanceSheet.ShortTermBorrowings
	lt := p.BalanceSheet.LongTermBorrowings
	if st == nil && lt == nil {
		return 0, false
	}
	return Value(st) + Value(lt), true
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Value dereferences p, treating nil as zero.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
