package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"financial_analyzer/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepo stores statement sections as JSONB columns, one row per
// (analysis_id, fiscal_year). See schema.sql.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepo)(nil)

func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

func (r *PostgresRepo) CreateAnalysis(ctx context.Context, a *models.Analysis) error {
	query := `
		INSERT INTO analyses (id, company_name, unit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, a.ID, a.CompanyName, a.Unit, a.CreatedAt, a.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

const analysisColumns = `id, company_name, unit, created_at, updated_at, metrics_computed_at`

func scanAnalysis(row pgx.Row) (*models.Analysis, error) {
	var a models.Analysis
	if err := row.Scan(&a.ID, &a.CompanyName, &a.Unit, &a.CreatedAt, &a.UpdatedAt, &a.MetricsComputedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepo) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`
	a, err := scanAnalysis(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	return a, nil
}

func (r *PostgresRepo) ListAnalyses(ctx context.Context) ([]models.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var out []models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) DeleteAnalysis(ctx context.Context, id string) error {
	// periods and commentary cascade
	tag, err := r.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	return nil
}

const periodColumns = `analysis_id, fiscal_year, balance_sheet, profit_loss, manual_inputs, account_details, metrics, source_file, updated_at`

func scanPeriod(row pgx.Row) (*models.PeriodFinancialData, error) {
	var (
		p                                models.PeriodFinancialData
		bs, pl, manual, details, metrics []byte
		source                           *string
	)
	if err := row.Scan(&p.AnalysisID, &p.FiscalYear, &bs, &pl, &manual, &details, &metrics, &source, &p.UpdatedAt); err != nil {
		return nil, err
	}

	for _, col := range []struct {
		name string
		data []byte
		dst  interface{}
	}{
		{"balance_sheet", bs, &p.BalanceSheet},
		{"profit_loss", pl, &p.ProfitLoss},
		{"manual_inputs", manual, &p.ManualInputs},
		{"account_details", details, &p.AccountDetails},
		{"metrics", metrics, &p.Metrics},
	} {
		if len(col.data) == 0 {
			continue
		}
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return nil, fmt.Errorf("failed to decode %s of FY%d: %w", col.name, p.FiscalYear, err)
		}
	}
	if source != nil {
		p.SourceFile = *source
	}
	return &p, nil
}

func (r *PostgresRepo) ListPeriods(ctx context.Context, analysisID string) ([]models.PeriodFinancialData, error) {
	query := `SELECT ` + periodColumns + ` FROM financial_periods WHERE analysis_id = $1 ORDER BY fiscal_year ASC`
	rows, err := r.pool.Query(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	defer rows.Close()

	var out []models.PeriodFinancialData
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetPeriod(ctx context.Context, analysisID string, fiscalYear int) (*models.PeriodFinancialData, error) {
	query := `SELECT ` + periodColumns + ` FROM financial_periods WHERE analysis_id = $1 AND fiscal_year = $2`
	p, err := scanPeriod(r.pool.QueryRow(ctx, query, analysisID, fiscalYear))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("period FY%d of %s: %w", fiscalYear, analysisID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load period: %w", err)
	}
	return p, nil
}

func (r *PostgresRepo) UpsertPeriod(ctx context.Context, p *models.PeriodFinancialData) error {
	bs, err := json.Marshal(p.BalanceSheet)
	if err != nil {
		return fmt.Errorf("failed to marshal balance sheet: %w", err)
	}
	pl, err := json.Marshal(p.ProfitLoss)
	if err != nil {
		return fmt.Errorf("failed to marshal profit and loss: %w", err)
	}
	manual, err := json.Marshal(p.ManualInputs)
	if err != nil {
		return fmt.Errorf("failed to marshal manual inputs: %w", err)
	}
	details, err := json.Marshal(p.AccountDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal account details: %w", err)
	}

	query := `
		INSERT INTO financial_periods (analysis_id, fiscal_year, balance_sheet, profit_loss, manual_inputs, account_details, source_file, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (analysis_id, fiscal_year)
		DO UPDATE SET
			balance_sheet = EXCLUDED.balance_sheet,
			profit_loss = EXCLUDED.profit_loss,
			manual_inputs = EXCLUDED.manual_inputs,
			account_details = EXCLUDED.account_details,
			source_file = COALESCE(EXCLUDED.source_file, financial_periods.source_file),
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.pool.Exec(ctx, query, p.AnalysisID, p.FiscalYear, bs, pl, manual, details, p.SourceFile, p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save period FY%d: %w", p.FiscalYear, err)
	}
	return nil
}

func (r *PostgresRepo) DeletePeriod(ctx context.Context, analysisID string, fiscalYear int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM financial_periods WHERE analysis_id = $1 AND fiscal_year = $2`, analysisID, fiscalYear)
	if err != nil {
		return fmt.Errorf("failed to delete period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("period FY%d of %s: %w", fiscalYear, analysisID, ErrNotFound)
	}
	// Growth rates of the following year depend on this one.
	_, err = r.pool.Exec(ctx, `UPDATE analyses SET metrics_computed_at = NULL, updated_at = $2 WHERE id = $1`, analysisID, time.Now())
	return err
}

func (r *PostgresRepo) SaveMetrics(ctx context.Context, analysisID string, periods []models.PeriodFinancialData, computedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range periods {
		metrics, err := json.Marshal(p.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics of FY%d: %w", p.FiscalYear, err)
		}
		batch.Queue(`UPDATE financial_periods SET metrics = $3 WHERE analysis_id = $1 AND fiscal_year = $2`, analysisID, p.FiscalYear, metrics)
	}
	// A period deleted after the snapshot leaves the analysis stale.
	batch.Queue(`UPDATE analyses SET metrics_computed_at = $2, updated_at = $2 WHERE id = $1 AND updated_at <= $2`, analysisID, computedAt)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save metrics: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepo) ListStaleAnalyses(ctx context.Context) ([]string, error) {
	query := `
		SELECT a.id
		FROM analyses a
		JOIN financial_periods p ON p.analysis_id = a.id
		GROUP BY a.id, a.metrics_computed_at
		HAVING a.metrics_computed_at IS NULL OR MAX(p.updated_at) > a.metrics_computed_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale analyses: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan stale analyses: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepo) SaveCommentary(ctx context.Context, c *models.Commentary) error {
	query := `
		INSERT INTO commentaries (id, analysis_id, provider, markdown, html, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.pool.Exec(ctx, query, c.ID, c.AnalysisID, c.Provider, c.Markdown, c.HTML, c.CreatedAt); err != nil {
		return fmt.Errorf("failed to save commentary: %w", err)
	}
	return nil
}

func (r *PostgresRepo) LatestCommentary(ctx context.Context, analysisID string) (*models.Commentary, error) {
	query := `
		SELECT id, analysis_id, provider, markdown, html, created_at
		FROM commentaries WHERE analysis_id = $1
		ORDER BY created_at DESC LIMIT 1
	`
	var c models.Commentary
	err := r.pool.QueryRow(ctx, query, analysisID).Scan(&c.ID, &c.AnalysisID, &c.Provider, &c.Markdown, &c.HTML, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("commentary of %s: %w", analysisID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load commentary: %w", err)
	}
	return &c, nil
}
