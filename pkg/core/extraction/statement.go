package extraction

import (
	"strings"

	"financial_analyzer/pkg/core/format"
	"financial_analyzer/pkg/models"
)

// Statement is what the model reads off one fiscal year's statements.
// Amounts are in Unit as printed until Normalize converts them to yen.
type Statement struct {
	FiscalYear     int                    `json:"fiscal_year"`
	Unit           string                 `json:"unit"`
	BalanceSheet   models.BalanceSheet    `json:"balance_sheet"`
	ProfitLoss     models.ProfitLoss      `json:"profit_loss"`
	AccountDetails []models.AccountDetail `json:"account_details,omitempty"`
}

// Normalize scales every amount to yen and sets Unit to "yen".
// Printed labels such as 千円 are accepted; anything else is treated as yen.
func (s *Statement) Normalize() {
	unit := parseStatementUnit(s.Unit)
	if factor := float64(unit.Scale()); factor != 1 {
		p := periodOf(s)
		p.Scale(factor)
		s.BalanceSheet, s.ProfitLoss, s.AccountDetails = p.BalanceSheet, p.ProfitLoss, p.AccountDetails
	}
	s.Unit = string(format.UnitYen)
}

// Merge copies every reported amount of s into p. Fields the statement
// leaves nil keep their stored values; account details are replaced only
// when the statement carries some.
func Merge(p *models.PeriodFinancialData, s *Statement) {
	p.Overlay(periodOf(s))
}

func parseStatementUnit(raw string) format.Unit {
	raw = strings.TrimSpace(raw)
	if u, err := format.ParseUnit(raw); err == nil {
		return u
	}
	for _, u := range []format.Unit{format.UnitMillionYen, format.UnitThousandYen, format.UnitYen} {
		if strings.Contains(raw, format.GetUnitLabel(u)) {
			return u
		}
	}
	return format.UnitYen
}

func periodOf(s *Statement) *models.PeriodFinancialData {
	return &models.PeriodFinancialData{
		FiscalYear:     s.FiscalYear,
		BalanceSheet:   s.BalanceSheet,
		ProfitLoss:     s.ProfitLoss,
		AccountDetails: s.AccountDetails,
	}
}
