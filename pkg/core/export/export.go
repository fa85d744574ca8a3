// Package export renders an analysis as CSV, an Excel workbook or a PDF report.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"financial_analyzer/pkg/core/analysis"
	"financial_analyzer/pkg/core/store"
	"financial_analyzer/pkg/models"

	"github.com/phuslu/log"
)

// Formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Report is everything an export renders.
type Report struct {
	Table       *analysis.Table
	Periods     []models.PeriodFinancialData
	Commentary  *models.Commentary
	GeneratedAt time.Time
}

// Options configure rendering.
type Options struct {
	// FontPath is a UTF-8 TrueType font used by the PDF report.
	FontPath string
}

// File is a rendered export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Service struct {
	repo   store.Repository
	engine *analysis.Engine
	opts   Options
}

func NewService(repo store.Repository, engine *analysis.Engine, opts Options) *Service {
	return &Service{repo: repo, engine: engine, opts: opts}
}

// Export renders the analysis in the requested format.
func (s *Service) Export(ctx context.Context, analysisID, format string) (*File, error) {
	report, err := s.load(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case FormatCSV:
		contentType = "text/csv; charset=utf-8"
		err = WriteCSV(&buf, report)
	case FormatXLSX:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = WriteXLSX(&buf, report)
	case FormatPDF:
		contentType = "application/pdf"
		err = WritePDF(&buf, report, s.opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", format, err)
	}

	log.Info().Str("component", "export").Str("analysis_id", analysisID).Str("format", format).Int("bytes", buf.Len()).Msg("export rendered")
	return &File{
		Name:        fileName(report, format),
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}

func (s *Service) load(ctx context.Context, analysisID string) (*Report, error) {
	table, err := s.engine.Summary(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	periods, err := s.repo.ListPeriods(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to load periods: %w", err)
	}
	commentary, err := s.repo.LatestCommentary(ctx, analysisID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return &Report{Table: table, Periods: periods, Commentary: commentary, GeneratedAt: time.Now()}, nil
}

var unsafeName = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

func fileName(r *Report, format string) string {
	name := unsafeName.ReplaceAllString(r.Table.CompanyName, "_")
	if name == "" {
		name = "analysis"
	}
	return fmt.Sprintf("%s_%s.%s", name, r.GeneratedAt.Format("20060102"), format)
}

// flush writes buf to w. Renderers that build in memory share it.
func flush(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}
