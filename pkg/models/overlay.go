package models

import (
	"reflect"
	"strings"
)

var floatPtrType = reflect.TypeOf((*float64)(nil))

// Overlay copies every reported amount of src into p. Amounts src leaves nil
// keep their current values; account details are replaced only when src
// carries some. Copied values never alias src.
func (p *PeriodFinancialData) Overlay(src *PeriodFinancialData) {
	overlayFloats(&p.BalanceSheet, &src.BalanceSheet)
	overlayFloats(&p.ProfitLoss, &src.ProfitLoss)
	overlayFloats(&p.ManualInputs, &src.ManualInputs)
	if len(src.AccountDetails) > 0 {
		p.AccountDetails = append([]AccountDetail(nil), src.AccountDetails...)
	}
}

// Scale multiplies every statement amount and account detail by factor.
// Manual inputs are entered in yen and are left alone.
func (p *PeriodFinancialData) Scale(factor float64) {
	if factor == 1 {
		return
	}
	scaleFloats(&p.BalanceSheet, factor)
	scaleFloats(&p.ProfitLoss, factor)
	for i := range p.AccountDetails {
		p.AccountDetails[i].Amount *= factor
	}
}

func overlayFloats(dst, src interface{}) {
	d := reflect.ValueOf(dst).Elem()
	s := reflect.ValueOf(src).Elem()
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if f.Type() != floatPtrType || f.IsNil() {
			continue
		}
		d.Field(i).Set(reflect.ValueOf(Float(f.Elem().Float())))
	}
}

func scaleFloats(ptr interface{}, factor float64) {
	v := reflect.ValueOf(ptr).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Type() != floatPtrType || f.IsNil() {
			continue
		}
		f.Set(reflect.ValueOf(Float(f.Elem().Float() * factor)))
	}
}

// Amount sections of a period.
const (
	SectionBalanceSheet = "balance_sheet"
	SectionProfitLoss   = "profit_loss"
	SectionManualInputs = "manual_inputs"
)

// AmountField addresses one amount of a period by its JSON key.
type AmountField struct {
	Section string
	Key     string
	index   int
}

var amountFields = buildAmountFields()

func buildAmountFields() []AmountField {
	var out []AmountField
	add := func(section string, t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			key := strings.Split(f.Tag.Get("json"), ",")[0]
			if f.Type != floatPtrType || key == "" || key == "-" {
				continue
			}
			out = append(out, AmountField{Section: section, Key: key, index: i})
		}
	}
	add(SectionBalanceSheet, reflect.TypeOf(BalanceSheet{}))
	add(SectionProfitLoss, reflect.TypeOf(ProfitLoss{}))
	add(SectionManualInputs, reflect.TypeOf(ManualInputs{}))
	return out
}

// AmountFields lists every amount field in declaration order.
func AmountFields() []AmountField {
	return append([]AmountField(nil), amountFields...)
}

// LookupAmountField finds a field by JSON key, e.g. "net_sales".
func LookupAmountField(key string) (AmountField, bool) {
	for _, f := range amountFields {
		if f.Key == key {
			return f, true
		}
	}
	return AmountField{}, false
}

func (f AmountField) section(p *PeriodFinancialData) reflect.Value {
	switch f.Section {
	case SectionBalanceSheet:
		return reflect.ValueOf(&p.BalanceSheet).Elem()
	case SectionProfitLoss:
		return reflect.ValueOf(&p.ProfitLoss).Elem()
	default:
		return reflect.ValueOf(&p.ManualInputs).Elem()
	}
}

// Get returns the field's value in p, nil when unreported.
func (f AmountField) Get(p *PeriodFinancialData) *float64 {
	v := f.section(p).Field(f.index)
	if v.IsNil() {
		return nil
	}
	return Float(v.Elem().Float())
}

// Set stores v in p.
func (f AmountField) Set(p *PeriodFinancialData, v float64) {
	f.section(p).Field(f.index).Set(reflect.ValueOf(Float(v)))
}
