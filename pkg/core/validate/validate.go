// Package validate checks financial data at the persistence boundary:
// struct-level rules via validator tags, and accounting integrity checks
// between reported totals and their components.
package validate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"financial_analyzer/pkg/models"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every struct validation failure.
var ErrInvalid = errors.New("validation failed")

var (
	v     *validator.Validate
	vOnce sync.Once
)

func instance() *validator.Validate {
	vOnce.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
	})
	return v
}

// Period validates the struct tags of a period record.
func Period(p *models.PeriodFinancialData) error {
	if p == nil {
		return fmt.Errorf("%w: period is nil", ErrInvalid)
	}
	if err := humanize(instance().Struct(p)); err != nil {
		return err
	}
	return finiteAmounts(p)
}

// finiteAmounts rejects NaN and infinite amounts.
func finiteAmounts(p *models.PeriodFinancialData) error {
	var bad []string
	for _, f := range models.AmountFields() {
		if v := f.Get(p); v != nil && !isFinite(*v) {
			bad = append(bad, f.Section+"."+f.Key)
		}
	}
	for i, d := range p.AccountDetails {
		if !isFinite(d.Amount) {
			bad = append(bad, fmt.Sprintf("account_details[%d].amount", i))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: non-finite amount in %s", ErrInvalid, strings.Join(bad, ", "))
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Analysis validates the struct tags of an analysis record.
func Analysis(a *models.Analysis) error {
	if a == nil {
		return fmt.Errorf("%w: analysis is nil", ErrInvalid)
	}
	return humanize(instance().Struct(a))
}

// humanize flattens validator errors into one message listing each failing field.
func humanize(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
