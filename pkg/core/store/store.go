// Package store persists analyses, their fiscal periods, computed metrics
// and commentary. PostgresRepo is the production backend; MemoryRepo serves
// tests and database-less local runs.
package store

import (
	"context"
	"errors"
	"time"

	"financial_analyzer/pkg/models"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Repository is the persistence boundary of the application.
type Repository interface {
	CreateAnalysis(ctx context.Context, a *models.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
	ListAnalyses(ctx context.Context) ([]models.Analysis, error)
	DeleteAnalysis(ctx context.Context, id string) error

	// ListPeriods returns the periods of an analysis in ascending fiscal year.
	ListPeriods(ctx context.Context, analysisID string) ([]models.PeriodFinancialData, error)
	GetPeriod(ctx context.Context, analysisID string, fiscalYear int) (*models.PeriodFinancialData, error)
	UpsertPeriod(ctx context.Context, p *models.PeriodFinancialData) error
	DeletePeriod(ctx context.Context, analysisID string, fiscalYear int) error

	// SaveMetrics writes the metrics of every given period and stamps the analysis
	// with computedAt unless the analysis was modified after computedAt.
	SaveMetrics(ctx context.Context, analysisID string, periods []models.PeriodFinancialData, computedAt time.Time) error
	// ListStaleAnalyses returns analyses whose periods changed after their metrics were computed.
	ListStaleAnalyses(ctx context.Context) ([]string, error)

	SaveCommentary(ctx context.Context, c *models.Commentary) error
	LatestCommentary(ctx context.Context, analysisID string) (*models.Commentary, error)
}
