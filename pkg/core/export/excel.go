package export

import (
	"io"
	"strconv"
	"strings"

	"financial_analyzer/pkg/core/analysis"
	"financial_analyzer/pkg/core/format"
	"financial_analyzer/pkg/core/utils"
	"financial_analyzer/pkg/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetMetrics    = "Metrics"
	sheetInputs     = "Inputs"
	sheetCommentary = "Commentary"
)

// numFmt is the Excel number format per metric kind.
var numFmt = map[analysis.Kind]string{
	analysis.KindAmount:   "#,##0",
	analysis.KindPercent:  `0.0"%"`,
	analysis.KindMonths:   `0.00"ヶ月"`,
	analysis.KindMultiple: `0.00"倍"`,
}

// WriteXLSX writes a workbook with the metrics table as numbers, the raw
// period inputs in yen, and the latest commentary.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetMetrics); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := writeMetricsSheet(f, r, header); err != nil {
		return err
	}
	if err := writeInputsSheet(f, r, header); err != nil {
		return err
	}
	if err := writeCommentarySheet(f, r); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeMetricsSheet(f *excelize.File, r *Report, header int) error {
	unit, err := format.ParseUnit(r.Table.Unit)
	if err != nil {
		unit = format.UnitYen
	}
	styles := make(map[analysis.Kind]int)
	for kind, code := range numFmt {
		if kind == analysis.KindAmount && unit.Decimals() > 0 {
			code = "#,##0." + strings.Repeat("0", unit.Decimals())
		}
		id, err := f.NewStyle(&excelize.Style{CustomNumFmt: &code})
		if err != nil {
			return err
		}
		styles[kind] = id
	}

	if err := f.SetCellValue(sheetMetrics, "A1", "指標（金額単位: "+r.Table.UnitLabel+"）"); err != nil {
		return err
	}
	for i, y := range r.Table.Years {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		if err := f.SetCellValue(sheetMetrics, cell, "FY"+strconv.Itoa(y)); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(r.Table.Years)+1, 1)
	if err := f.SetCellStyle(sheetMetrics, "A1", last, header); err != nil {
		return err
	}

	defs := make(map[string]analysis.MetricDef, len(analysis.Metrics))
	for _, d := range analysis.Metrics {
		defs[d.Key] = d
	}
	scale := float64(unit.Scale())

	for ri, row := range r.Table.Rows {
		line := ri + 2
		def := defs[row.Key]
		label, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetCellValue(sheetMetrics, label, row.Label); err != nil {
			return err
		}
		for ci, v := range row.Values {
			cell, _ := excelize.CoordinatesToCellName(ci+2, line)
			if v == nil {
				if err := f.SetCellValue(sheetMetrics, cell, format.Placeholder); err != nil {
					return err
				}
				continue
			}
			val := *v
			if def.Kind == analysis.KindAmount {
				val /= scale
			}
			if err := f.SetCellValue(sheetMetrics, cell, val); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheetMetrics, cell, cell, styles[def.Kind]); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(sheetMetrics, "A", "A", 32)
}

func writeInputsSheet(f *excelize.File, r *Report, header int) error {
	if _, err := f.NewSheet(sheetInputs); err != nil {
		return err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(sheetInputs, "A1", &[]interface{}{"section", "field"}); err != nil {
		return err
	}
	for i, p := range r.Periods {
		cell, _ := excelize.CoordinatesToCellName(i+3, 1)
		if err := f.SetCellValue(sheetInputs, cell, p.FiscalYear); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(r.Periods)+2, 1)
	if err := f.SetCellStyle(sheetInputs, "A1", last, header); err != nil {
		return err
	}

	for fi, field := range models.AmountFields() {
		line := fi + 2
		start, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetSheetRow(sheetInputs, start, &[]interface{}{field.Section, field.Key}); err != nil {
			return err
		}
		for pi := range r.Periods {
			v := field.Get(&r.Periods[pi])
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(pi+3, line)
			if err := f.SetCellValue(sheetInputs, cell, *v); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheetInputs, cell, cell, amount); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(sheetInputs, "A", "B", 26)
}

func writeCommentarySheet(f *excelize.File, r *Report) error {
	if _, err := f.NewSheet(sheetCommentary); err != nil {
		return err
	}
	if r.Commentary == nil {
		return f.SetCellValue(sheetCommentary, "A1", "コメントは未生成です")
	}
	blocks, err := utils.TextBlocks(r.Commentary.HTML)
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	if err != nil {
		return err
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}
	for i, b := range blocks {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		text := b.Text
		style := wrap
		switch b.Kind {
		case "heading":
			style = bold
		case "item":
			text = "・" + text
		}
		if err := f.SetCellValue(sheetCommentary, cell, text); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetCommentary, cell, cell, style); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetCommentary, "A", "A", 100)
}
