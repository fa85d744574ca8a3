package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"financial_analyzer/pkg/core/utils"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 10.0
	pdfLabelWidth = 70.0
	pdfRowHeight  = 7.0
)

// pdfWriter hides whether a Japanese font is available. Without one the
// core Helvetica font is used and text is reduced to ASCII.
type pdfWriter struct {
	pdf     *fpdf.Fpdf
	family  string
	unicode bool
}

func newPDFWriter(opts Options) *pdfWriter {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)

	w := &pdfWriter{pdf: pdf, family: "Helvetica"}
	if opts.FontPath != "" {
		pdf.AddUTF8Font("jp", "", opts.FontPath)
		pdf.AddUTF8Font("jp", "B", opts.FontPath)
		w.family = "jp"
		w.unicode = true
	}
	return w
}

func (w *pdfWriter) font(style string, size float64) {
	w.pdf.SetFont(w.family, style, size)
}

func (w *pdfWriter) text(s string) string {
	if w.unicode {
		return s
	}
	return asciiText(s)
}

// pick returns ja when Japanese can be rendered, en otherwise.
func (w *pdfWriter) pick(ja, en string) string {
	if w.unicode {
		return ja
	}
	return en
}

var asciiUnits = strings.NewReplacer("百万円", " mJPY", "千円", " kJPY", "円", " JPY", "ヶ月", " mo", "倍", "x", "、", ", ", "。", ". ")

// asciiText maps the unit suffixes the formatter emits and drops whatever
// else the core fonts cannot encode.
func asciiText(s string) string {
	s = asciiUnits.Replace(s)
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

// WritePDF writes a landscape A4 report: title, metrics table, commentary.
func WritePDF(out io.Writer, r *Report, opts Options) error {
	w := newPDFWriter(opts)
	pdf := w.pdf
	pdf.SetTitle(r.Table.CompanyName, true)
	pdf.SetCreator("financial_analyzer", true)
	pdf.AddPage()

	// 1. Title
	title := r.Table.CompanyName
	if !w.unicode && asciiText(title) == "" {
		title = "Financial analysis"
	}
	w.font("B", 16)
	pdf.CellFormat(0, 10, w.text(title), "", 1, "L", false, 0, "")
	w.font("", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s: %s / %s", w.pick("単位", "Unit"), strings.TrimSpace(w.text(r.Table.UnitLabel)), r.GeneratedAt.Format("2006-01-02")), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// 2. Metrics table
	writeMetricsTable(w, r)

	// 3. Integrity warnings
	if len(r.Table.Warnings) > 0 {
		pdf.Ln(4)
		w.font("B", 11)
		pdf.CellFormat(0, 7, w.pick("整合性チェック", "Integrity checks"), "", 1, "L", false, 0, "")
		w.font("", 9)
		for _, msg := range r.Table.Warnings {
			pdf.MultiCell(0, 5, w.text("- "+msg), "", "L", false)
		}
	}

	// 4. Commentary
	if err := writeCommentary(w, r); err != nil {
		return err
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(out)
}

func writeMetricsTable(w *pdfWriter, r *Report) {
	pdf := w.pdf
	pageW, _ := pdf.GetPageSize()
	colW := 0.0
	if n := len(r.Table.Years); n > 0 {
		colW = (pageW - 2*pdfMargin - pdfLabelWidth) / float64(n)
		if colW > 35 {
			colW = 35
		}
	}

	w.font("B", 9)
	pdf.SetFillColor(221, 235, 247)
	pdf.CellFormat(pdfLabelWidth, pdfRowHeight, w.pick("指標", "Metric"), "1", 0, "L", true, 0, "")
	for _, y := range r.Table.Years {
		pdf.CellFormat(colW, pdfRowHeight, "FY"+strconv.Itoa(y), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	w.font("", 9)
	for i, row := range r.Table.Rows {
		label := row.Label
		if !w.unicode {
			label = row.Key
		}
		fill := i%2 == 1
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(pdfLabelWidth, pdfRowHeight, label, "1", 0, "L", fill, 0, "")
		for _, c := range row.Cells {
			pdf.CellFormat(colW, pdfRowHeight, w.text(c), "1", 0, "R", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

func writeCommentary(w *pdfWriter, r *Report) error {
	if r.Commentary == nil {
		return nil
	}
	pdf := w.pdf
	pdf.AddPage()
	w.font("B", 13)
	pdf.CellFormat(0, 9, w.pick("AIコメント", "Commentary"), "", 1, "L", false, 0, "")

	if !w.unicode {
		w.font("", 9)
		pdf.MultiCell(0, 5, "Commentary is written in Japanese. Configure export.font_path with a Japanese TrueType font to include it.", "", "L", false)
		return nil
	}

	blocks, err := utils.TextBlocks(r.Commentary.HTML)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		switch b.Kind {
		case "heading":
			pdf.Ln(2)
			w.font("B", 11)
			pdf.MultiCell(0, 6, b.Text, "", "L", false)
		case "item":
			w.font("", 10)
			pdf.SetX(pdfMargin + 4)
			pdf.MultiCell(0, 5.5, "・"+b.Text, "", "L", false)
		default:
			w.font("", 10)
			pdf.MultiCell(0, 5.5, b.Text, "", "L", false)
		}
	}
	return nil
}
