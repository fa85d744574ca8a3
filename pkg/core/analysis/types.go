package analysis

import (
	"financial_analyzer/pkg/core/format"
	"financial_analyzer/pkg/models"
)

// Kind selects how a metric value is displayed.
type Kind string

const (
	KindAmount   Kind = "amount"
	KindPercent  Kind = "percent"
	KindMonths   Kind = "months"
	KindMultiple Kind = "multiple"
)

// MetricDef describes one row of the metrics table.
type MetricDef struct {
	Key   string
	Label string
	Kind  Kind
	Get   func(m *models.FinancialMetrics) *float64
}

// Metrics is the display order of the metrics table.
var Metrics = []MetricDef{
	{"net_cash", "ネットキャッシュ", KindAmount, func(m *models.FinancialMetrics) *float64 { return m.NetCash }},
	{"current_ratio", "流動比率", KindPercent, func(m *models.FinancialMetrics) *float64 { return m.CurrentRatio }},
	{"equity_ratio", "自己資本比率", KindPercent, func(m *models.FinancialMetrics) *float64 { return m.EquityRatio }},
	{"receivables_turnover_months", "売上債権回転期間", KindMonths, func(m *models.FinancialMetrics) *float64 { return m.ReceivablesTurnoverMonths }},
	{"inventory_turnover_months", "棚卸資産回転期間", KindMonths, func(m *models.FinancialMetrics) *float64 { return m.InventoryTurnoverMonths }},
	{"depreciation", "減価償却費", KindAmount, func(m *models.FinancialMetrics) *float64 { return m.Depreciation }},
	{"capex", "設備投資額", KindAmount, func(m *models.FinancialMetrics) *float64 { return m.Capex }},
	{"ebitda", "EBITDA", KindAmount, func(m *models.FinancialMetrics) *float64 { return m.EBITDA }},
	{"fcf", "フリーキャッシュフロー", KindAmount, func(m *models.FinancialMetrics) *float64 { return m.FCF }},
	{"sales_growth_rate", "売上高成長率", KindPercent, func(m *models.FinancialMetrics) *float64 { return m.SalesGrowthRate }},
	{"operating_income_growth_rate", "営業利益成長率", KindPercent, func(m *models.FinancialMetrics) *float64 { return m.OperatingIncomeGrowthRate }},
	{"ebitda_growth_rate", "EBITDA成長率", KindPercent, func(m *models.FinancialMetrics) *float64 { return m.EBITDAGrowthRate }},
	{"gross_profit_margin", "売上総利益率", KindPercent, func(m *models.FinancialMetrics) *float64 { return m.GrossProfitMargin }},
	{"operating_profit_margin", "営業利益率", KindPercent, func(m *models.FinancialMetrics) *float64 { return m.OperatingProfitMargin }},
	{"ebitda_margin", "EBITDAマージン", KindPercent, func(m *models.FinancialMetrics) *float64 { return m.EBITDAMargin }},
	{"ebitda_to_interest_bearing_debt", "有利子負債/EBITDA倍率", KindMultiple, func(m *models.FinancialMetrics) *float64 { return m.EBITDAToInterestBearingDebt }},
	{"roe", "ROE", KindPercent, func(m *models.FinancialMetrics) *float64 { return m.ROE }},
	{"roa", "ROA", KindPercent, func(m *models.FinancialMetrics) *float64 { return m.ROA }},
}

// Format renders v according to the metric kind and the analysis unit.
func (d MetricDef) Format(v *float64, unit format.Unit) string {
	switch d.Kind {
	case KindAmount:
		return format.FormatAmountWithUnit(v, unit)
	case KindPercent:
		return format.FormatPercent(v)
	case KindMonths:
		return format.FormatMonths(v)
	case KindMultiple:
		return format.FormatMultiple(v)
	default:
		return format.Placeholder
	}
}

// Row is one metric across all fiscal years.
type Row struct {
	Key    string     `json:"key"`
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
	Cells  []string   `json:"cells"`
}

// Table is the metrics table of an analysis, years ascending.
type Table struct {
	AnalysisID  string   `json:"analysis_id"`
	CompanyName string   `json:"company_name"`
	Unit        string   `json:"unit"`
	UnitLabel   string   `json:"unit_label"`
	Years       []int    `json:"years"`
	Rows        []Row    `json:"rows"`
	Warnings    []string `json:"warnings,omitempty"`
}
