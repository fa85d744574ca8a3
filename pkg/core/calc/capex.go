package calc

import (
	"financial_analyzer/pkg/models"
)

// CalculateCapexAuto estimates capital expenditure from the movement in
// tangible fixed assets:
//
//	capex ≈ (tangible_end - tangible_begin) + depreciation - disposal
//
// This is an accounting approximation, not a cash-flow figure. It returns nil
// when there is no previous period to diff against or the asset balances are
// missing. Total fixed assets are used only when neither period reports
// tangible fixed assets.
func CalculateCapexAuto(period, previous *models.PeriodFinancialData) *float64 {
	if period == nil || previous == nil {
		return nil
	}

	end, begin := period.BalanceSheet.TangibleFixedAssets, previous.BalanceSheet.TangibleFixedAssets
	if end == nil && begin == nil {
		end, begin = period.BalanceSheet.FixedAssetsTotal, previous.BalanceSheet.FixedAssetsTotal
	}
	if end == nil || begin == nil {
		return nil
	}

	disposal := models.Value(period.ManualInputs.FixedAssetDisposal)
	return finite(*end - *begin + ResolveDepreciation(period) - disposal)
}

// ResolveCapex returns a copy of the manually entered capex, or the automatic
// estimate. A non-finite manual value is undefined.
func ResolveCapex(period, previous *models.PeriodFinancialData) *float64 {
	if period == nil {
		return nil
	}
	if period.ManualInputs.Capex != nil {
		return finite(*period.ManualInputs.Capex)
	}
	return CalculateCapexAuto(period, previous)
}
