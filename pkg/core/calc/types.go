// Package calc computes the per-period financial metrics of an analysis.
// Every function here is pure: no I/O, no shared state, no errors.
// A metric whose operands are missing, or whose denominator is zero, is left nil.
package calc

import (
	"math"

	"financial_analyzer/pkg/models"
)

// monthsPerYear converts annual flows into monthly run-rates for turnover periods.
const monthsPerYear = 12.0

// ratio returns num/den, or nil when either operand is missing,
// the denominator is zero, or the result is not finite.
func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return finite(*num / *den)
}

// percent is ratio scaled by 100.
func percent(num, den *float64) *float64 {
	r := ratio(num, den)
	if r == nil {
		return nil
	}
	return finite(*r * 100)
}

// growth returns (cur - prev) / prev * 100.
func growth(cur, prev *float64) *float64 {
	if cur == nil || prev == nil || *prev == 0 {
		return nil
	}
	return finite((*cur - *prev) / *prev * 100)
}

// monthly returns v / 12, keeping nil as nil.
func monthly(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(*v / monthsPerYear)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func add(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return finite(*a + *b)
}

func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return finite(*a - *b)
}
