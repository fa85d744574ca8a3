package ingest

import (
	"testing"

	"financial_analyzer/pkg/core/format"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = "\ufefffiscal_year,net_sales,operating_income,cash_and_deposits,depreciation,memo\n" +
	"2023,\"100,000\",△500,30000,1200000,first\n" +
	"\n" +
	"2024,120000,(250),,,second\n"

func TestParse_CSV(t *testing.T) {
	res, err := Parse("periods.csv", []byte(sampleCSV), format.UnitThousandYen)
	require.NoError(t, err)
	require.Len(t, res.Periods, 2)
	assert.Equal(t, []string{"memo"}, res.SkippedColumns)

	p := res.Periods[0]
	assert.Equal(t, 2023, p.FiscalYear)
	assert.InDelta(t, 100_000_000, *p.ProfitLoss.NetSales, 1e-6)
	assert.InDelta(t, -500_000, *p.ProfitLoss.OperatingIncome, 1e-6)
	assert.InDelta(t, 30_000_000, *p.BalanceSheet.CashAndDeposits, 1e-6)
	// manual inputs are yen regardless of the file unit
	assert.InDelta(t, 1_200_000, *p.ManualInputs.Depreciation, 1e-6)

	q := res.Periods[1]
	assert.InDelta(t, -250_000, *q.ProfitLoss.OperatingIncome, 1e-6)
	assert.Nil(t, q.BalanceSheet.CashAndDeposits)
	assert.Nil(t, q.ManualInputs.Depreciation)
}

func TestParse_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Fiscal Year", "Net Sales", "Total Assets"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{2024, 5000, 9000}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := Parse("book.xlsx", buf.Bytes(), format.UnitYen)
	require.NoError(t, err)
	require.Len(t, res.Periods, 1)
	assert.Equal(t, 2024, res.Periods[0].FiscalYear)
	assert.InDelta(t, 5000, *res.Periods[0].ProfitLoss.NetSales, 1e-9)
	assert.InDelta(t, 9000, *res.Periods[0].BalanceSheet.TotalAssets, 1e-9)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("data.txt", []byte("x"), format.UnitYen)
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = Parse("data.csv", []byte("net_sales\n100\n"), format.UnitYen)
	assert.ErrorContains(t, err, "fiscal_year")

	_, err = Parse("data.csv", []byte(""), format.UnitYen)
	assert.Error(t, err)
}

func TestParse_RowWarnings(t *testing.T) {
	csv := "fiscal_year,net_sales\nFY,1\n2024,abc\n2024,2\n"
	res, err := Parse("data.csv", []byte(csv), format.UnitYen)
	require.NoError(t, err)
	require.Len(t, res.Periods, 1)
	assert.Nil(t, res.Periods[0].ProfitLoss.NetSales)
	assert.Len(t, res.Warnings, 3)
}

func TestParse_NonFiniteAmountsAreRejected(t *testing.T) {
	csv := "fiscal_year,operating_income,depreciation,capex\n2023,100,NaN,Inf\n2024,120,-Infinity,5\n"
	res, err := Parse("data.csv", []byte(csv), format.UnitYen)
	require.NoError(t, err)
	require.Len(t, res.Periods, 2)

	assert.Nil(t, res.Periods[0].ManualInputs.Depreciation)
	assert.Nil(t, res.Periods[0].ManualInputs.Capex)
	assert.Nil(t, res.Periods[1].ManualInputs.Depreciation)
	assert.InDelta(t, 100, *res.Periods[0].ProfitLoss.OperatingIncome, 1e-9)
	require.Len(t, res.Warnings, 3)
	assert.Contains(t, res.Warnings[0], "row 2: depreciation")
	assert.Contains(t, res.Warnings[0], `"NaN"`)
}
