package validate

import (
	"math"

	"financial_analyzer/pkg/models"
)

// Check statuses, from best to worst.
const (
	StatusMatch            = "MATCH"
	StatusImmaterial       = "IMMATERIAL"
	StatusMaterialMismatch = "MATERIAL_MISMATCH"
)

// MaterialityThreshold is the relative difference above which a check fails.
const MaterialityThreshold = 0.01

// AuditCheckpoint compares a reported total against the sum of its components.
type AuditCheckpoint struct {
	CheckpointName  string  `json:"checkpoint_name"`
	ReportedValue   float64 `json:"reported_value"`
	CalculatedValue float64 `json:"calculated_value"`
	Variance        float64 `json:"variance"`
	Status          string  `json:"status"`
}

// IntegrityReport is the result of CheckIntegrity.
type IntegrityReport struct {
	FiscalYear int               `json:"fiscal_year"`
	Checks     []AuditCheckpoint `json:"checks"`
	AllPassed  bool              `json:"all_passed"`
}

// CheckIntegrity runs every check whose operands are present. Checks with
// missing operands are skipped rather than failed; extraction often leaves
// subtotals out.
func CheckIntegrity(p *models.PeriodFinancialData) IntegrityReport {
	report := IntegrityReport{FiscalYear: p.FiscalYear, AllPassed: true}
	bs, pl := p.BalanceSheet, p.ProfitLoss

	add := func(name string, reported *float64, parts ...*float64) {
		if reported == nil {
			return
		}
		sum := 0.0
		for _, part := range parts {
			if part == nil {
				return
			}
			sum += *part
		}
		cp := checkpoint(name, *reported, sum)
		if cp.Status == StatusMaterialMismatch {
			report.AllPassed = false
		}
		report.Checks = append(report.Checks, cp)
	}

	neg := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		return models.Float(-*v)
	}

	add("total_assets = liabilities_total + net_assets_total", bs.TotalAssets, bs.LiabilitiesTotal, bs.NetAssetsTotal)
	add("total_assets = current_assets_total + fixed_assets_total", bs.TotalAssets, bs.CurrentAssetsTotal, bs.FixedAssetsTotal)
	add("liabilities_total = current + fixed liabilities", bs.LiabilitiesTotal, bs.CurrentLiabilitiesTotal, bs.FixedLiabilitiesTotal)
	add("gross_profit = net_sales - cost_of_sales", pl.GrossProfit, pl.NetSales, neg(pl.CostOfSales))
	add("operating_income = gross_profit - sga_expenses", pl.OperatingIncome, pl.GrossProfit, neg(pl.SGAExpenses))
	add("ordinary_income = operating_income + non_operating", pl.OrdinaryIncome, pl.OperatingIncome, pl.NonOperatingIncome, neg(pl.NonOperatingExpenses))
	add("net_income = income_before_tax - income_taxes", pl.NetIncome, pl.IncomeBeforeTax, neg(pl.IncomeTaxes))

	// A subtotal larger than its total is a misread regardless of tolerance.
	if bs.TotalAssets != nil && bs.CurrentAssetsTotal != nil {
		cp := AuditCheckpoint{
			CheckpointName:  "current_assets_total <= total_assets",
			ReportedValue:   *bs.TotalAssets,
			CalculatedValue: *bs.CurrentAssetsTotal,
			Status:          StatusMatch,
		}
		if *bs.CurrentAssetsTotal > *bs.TotalAssets {
			cp.Variance = *bs.CurrentAssetsTotal - *bs.TotalAssets
			cp.Status = StatusMaterialMismatch
			report.AllPassed = false
		}
		report.Checks = append(report.Checks, cp)
	}

	return report
}

// RetainedEarningsLink compares the change in retained earnings with net income.
// Dividends are not captured, so a shortfall is expected and only reported.
type RetainedEarningsLink struct {
	NetIncome      float64 `json:"net_income"`
	ActualREChange float64 `json:"actual_re_change"`
	Difference     float64 `json:"difference"`
	IsLinked       bool    `json:"is_linked"`
}

// CheckRetainedEarnings returns nil when either year lacks the figures.
func CheckRetainedEarnings(cur, prev *models.PeriodFinancialData) *RetainedEarningsLink {
	if cur == nil || prev == nil {
		return nil
	}
	re, prevRE, ni := cur.BalanceSheet.RetainedEarnings, prev.BalanceSheet.RetainedEarnings, cur.ProfitLoss.NetIncome
	if re == nil || prevRE == nil || ni == nil {
		return nil
	}
	change := *re - *prevRE
	diff := *ni - change
	return &RetainedEarningsLink{
		NetIncome:      *ni,
		ActualREChange: change,
		Difference:     diff,
		IsLinked:       relativeDiff(*ni, change) <= MaterialityThreshold,
	}
}

func checkpoint(name string, reported, calculated float64) AuditCheckpoint {
	diff := calculated - reported
	status := StatusMatch
	if math.Abs(diff) >= 1 {
		status = StatusImmaterial
		if relativeDiff(reported, calculated) > MaterialityThreshold {
			status = StatusMaterialMismatch
		}
	}
	return AuditCheckpoint{
		CheckpointName:  name,
		ReportedValue:   reported,
		CalculatedValue: calculated,
		Variance:        diff,
		Status:          status,
	}
}

func relativeDiff(reported, calculated float64) float64 {
	if reported == 0 {
		if calculated == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs((calculated - reported) / reported)
}
