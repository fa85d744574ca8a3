// Package ingest imports period figures from spreadsheets. The layout is one
// row per fiscal year with a fiscal_year column and one column per field,
// named by the field's JSON key (e.g. net_sales, cash_and_deposits).
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"financial_analyzer/pkg/core/format"
	"financial_analyzer/pkg/models"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFile = errors.New("unsupported file type")

// column is a mapped spreadsheet column.
type column struct {
	index int
	field models.AmountField
}

// Result holds the parsed periods in file order.
type Result struct {
	Periods        []models.PeriodFinancialData `json:"periods"`
	SkippedColumns []string                     `json:"skipped_columns,omitempty"`
	Warnings       []string                     `json:"warnings,omitempty"`
}

// Parse reads a .csv or .xlsx file. Statement amounts are taken to be in
// unit and converted to yen; manual inputs are always yen.
func Parse(fileName string, data []byte, unit format.Unit) (*Result, error) {
	rows, err := readRows(fileName, data)
	if err != nil {
		return nil, err
	}
	return parseRows(rows, unit)
}

func readRows(fileName string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		// Excel writes a BOM in front of UTF-8 CSV
		data = bytes.TrimPrefix(data, []byte("\ufeff"))
		reader := csv.NewReader(bytes.NewReader(data))
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		var rows [][]string
		for {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read CSV: %w", err)
			}
			rows = append(rows, row)
		}
		return rows, nil

	case ".xlsx":
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer f.Close()
		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet: %w", err)
		}
		return rows, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, fileName)
	}
}

func parseRows(rows [][]string, unit format.Unit) (*Result, error) {
	if len(rows) == 0 {
		return nil, errors.New("file is empty")
	}

	// 1. Map header columns
	header := normalizeHeader(rows[0])
	yearCol := -1
	var cols []column
	res := &Result{}
	for i, h := range header {
		if h == "" {
			continue
		}
		if h == "fiscal_year" {
			yearCol = i
			continue
		}
		if c, ok := models.LookupAmountField(h); ok {
			cols = append(cols, column{index: i, field: c})
			continue
		}
		res.SkippedColumns = append(res.SkippedColumns, h)
	}
	if yearCol < 0 {
		return nil, errors.New("missing fiscal_year column")
	}

	// 2. One period per data row
	seen := make(map[int]bool)
	for n, row := range rows[1:] {
		line := n + 2
		if isBlank(row) {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(cell(row, yearCol)))
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: invalid fiscal_year %q", line, cell(row, yearCol)))
			continue
		}
		if seen[year] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: duplicate fiscal_year %d ignored", line, year))
			continue
		}
		seen[year] = true

		p := models.PeriodFinancialData{FiscalYear: year}
		for _, c := range cols {
			raw := cell(row, c.index)
			v, ok, err := parseAmount(raw)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: %s: %v", line, header[c.index], err))
				continue
			}
			if !ok {
				continue
			}
			c.field.Set(&p, v)
		}
		p.Scale(float64(unit.Scale()))
		res.Periods = append(res.Periods, p)
	}

	if len(res.Periods) == 0 {
		return nil, errors.New("no periods found")
	}
	return res, nil
}

// parseAmount accepts grouped digits, full-width minus and the △/▲ and
// parenthesis conventions for negatives. Blank and "-" cells are absent.
func parseAmount(raw string) (float64, bool, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == format.Placeholder {
		return 0, false, nil
	}
	neg := false
	if strings.HasPrefix(s, "△") || strings.HasPrefix(s, "▲") {
		neg = true
		s = strings.TrimLeft(s, "△▲")
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "−", "-", "￥", "", "¥", "", "円", "").Replace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("invalid amount %q", raw)
	}
	if neg {
		v = -v
	}
	return v, true, nil
}

func normalizeHeader(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.Trim(h, "\"'`")
		out[i] = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	}
	return out
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
