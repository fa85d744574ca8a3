// Package format renders metric values for tables, exports and prompts.
// Amounts are stored in yen and scaled to the analysis' display unit here.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is rendered for undefined values.
const Placeholder = "-"

// Unit is the display scale of monetary amounts.
type Unit string

const (
	UnitYen         Unit = "yen"
	UnitThousandYen Unit = "thousand_yen"
	UnitMillionYen  Unit = "million_yen"
)

type unitInfo struct {
	scale    int64
	label    string
	decimals int32
}

var units = map[Unit]unitInfo{
	UnitYen:         {scale: 1, label: "円", decimals: 0},
	UnitThousandYen: {scale: 1_000, label: "千円", decimals: 0},
	UnitMillionYen:  {scale: 1_000_000, label: "百万円", decimals: 1},
}

const (
	percentDecimals  = 1
	monthsDecimals   = 2
	multipleDecimals = 2
)

var printer = message.NewPrinter(language.Japanese)

// ParseUnit validates a unit string.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.TrimSpace(s))
	if _, ok := units[u]; !ok {
		return "", fmt.Errorf("unknown unit %q", s)
	}
	return u, nil
}

// Scale returns how many yen one display unit holds. Unknown units scale by 1.
func (u Unit) Scale() int64 {
	if info, ok := units[u]; ok {
		return info.scale
	}
	return 1
}

// Decimals returns the number of fraction digits amounts are shown with.
func (u Unit) Decimals() int {
	return int(units[u].decimals)
}

// GetUnitLabel returns the suffix shown after amounts, e.g. "千円".
func GetUnitLabel(u Unit) string {
	if info, ok := units[u]; ok {
		return info.label
	}
	return units[UnitYen].label
}

// FormatPercent renders v with one decimal and a % suffix.
func FormatPercent(v *float64) string {
	if !defined(v) {
		return Placeholder
	}
	return formatNumber(*v, percentDecimals) + "%"
}

// FormatAmountWithUnit scales a yen amount to u and renders it with digit
// grouping and the unit label, e.g. 12345678 in thousand_yen is "12,346千円".
func FormatAmountWithUnit(v *float64, u Unit) string {
	if !defined(v) {
		return Placeholder
	}
	if _, ok := units[u]; !ok {
		u = UnitYen
	}
	scaled := decimal.NewFromFloat(*v).Div(decimal.NewFromInt(u.Scale()))
	return formatDecimal(scaled, int32(u.Decimals())) + GetUnitLabel(u)
}

// FormatMonths renders a turnover period, e.g. "1.50ヶ月".
func FormatMonths(v *float64) string {
	if !defined(v) {
		return Placeholder
	}
	return formatNumber(*v, monthsDecimals) + "ヶ月"
}

// FormatMultiple renders a multiple such as debt/EBITDA, e.g. "3.16倍".
func FormatMultiple(v *float64) string {
	if !defined(v) {
		return Placeholder
	}
	return formatNumber(*v, multipleDecimals) + "倍"
}

// ParseAmountWithUnit reverses FormatAmountWithUnit, returning the amount in yen.
// The result equals the original within half of one display step.
func ParseAmountWithUnit(s string, u Unit) (float64, error) {
	if _, ok := units[u]; !ok {
		return 0, fmt.Errorf("unknown unit %q", u)
	}
	raw := strings.TrimSpace(s)
	if raw == Placeholder || raw == "" {
		return 0, fmt.Errorf("no amount in %q", s)
	}
	raw = strings.TrimSuffix(raw, GetUnitLabel(u))
	raw = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "−", "-").Replace(raw)

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Mul(decimal.NewFromInt(u.Scale())).InexactFloat64(), nil
}

// defined reports whether v holds a finite value.
func defined(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func formatNumber(v float64, decimals int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	return formatDecimal(decimal.NewFromFloat(v), decimals)
}

// formatDecimal rounds half away from zero before handing the value to the
// localized printer, so the printer never applies its own rounding.
func formatDecimal(d decimal.Decimal, decimals int32) string {
	rounded := d.Round(decimals)
	if rounded.IsZero() {
		rounded = decimal.Zero
	}
	return printer.Sprint(number.Decimal(rounded.InexactFloat64(), number.Scale(int(decimals))))
}
