package calc

import (
	"strings"

	"financial_analyzer/pkg/models"
)

// depreciationAccountTypes are the account types whose whole amount is depreciation.
var depreciationAccountTypes = map[string]bool{
	"depreciation": true,
	"減価償却費":        true,
}

// depreciationKeywords match item names inside broader schedules (SG&A, manufacturing cost).
var depreciationKeywords = []string{"減価償却", "depreciation"}

// CalculateDepreciationFromAccountDetails sums the itemized account details that
// denote depreciation. It returns 0 when there are none.
func CalculateDepreciationFromAccountDetails(period *models.PeriodFinancialData) float64 {
	if period == nil {
		return 0
	}

	total := 0.0
	for _, d := range period.AccountDetails {
		if isDepreciation(d) {
			total += d.Amount
		}
	}
	return total
}

// ResolveDepreciation returns the manually entered depreciation, or the
// amount derived from account details when none was entered.
func ResolveDepreciation(period *models.PeriodFinancialData) float64 {
	if period == nil {
		return 0
	}
	if period.ManualInputs.Depreciation != nil {
		return *period.ManualInputs.Depreciation
	}
	return CalculateDepreciationFromAccountDetails(period)
}

func isDepreciation(d models.AccountDetail) bool {
	accountType := strings.ToLower(strings.TrimSpace(d.AccountType))
	if depreciationAccountTypes[accountType] {
		return true
	}
	name := strings.ToLower(d.ItemName)
	for _, kw := range depreciationKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
