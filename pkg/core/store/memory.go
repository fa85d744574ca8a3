package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"financial_analyzer/pkg/models"
)

type periodKey struct {
	analysisID string
	fiscalYear int
}

// MemoryRepo is an in-process Repository used by tests and by the server
// when no DATABASE_URL is configured.
type MemoryRepo struct {
	mu         sync.RWMutex
	analyses   map[string]models.Analysis
	periods    map[periodKey]models.PeriodFinancialData
	commentary map[string][]models.Commentary
}

var _ Repository = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		analyses:   make(map[string]models.Analysis),
		periods:    make(map[periodKey]models.PeriodFinancialData),
		commentary: make(map[string][]models.Commentary),
	}
}

func (m *MemoryRepo) CreateAnalysis(_ context.Context, a *models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.analyses[a.ID]; ok {
		return fmt.Errorf("analysis %s already exists", a.ID)
	}
	m.analyses[a.ID] = *a
	return nil
}

func (m *MemoryRepo) GetAnalysis(_ context.Context, id string) (*models.Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.analyses[id]
	if !ok {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

func (m *MemoryRepo) ListAnalyses(_ context.Context) ([]models.Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Analysis, 0, len(m.analyses))
	for _, a := range m.analyses {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryRepo) DeleteAnalysis(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.analyses[id]; !ok {
		return fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	delete(m.analyses, id)
	delete(m.commentary, id)
	for k := range m.periods {
		if k.analysisID == id {
			delete(m.periods, k)
		}
	}
	return nil
}

func (m *MemoryRepo) ListPeriods(_ context.Context, analysisID string) ([]models.PeriodFinancialData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PeriodFinancialData
	for k, p := range m.periods {
		if k.analysisID == analysisID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiscalYear < out[j].FiscalYear })
	return out, nil
}

func (m *MemoryRepo) GetPeriod(_ context.Context, analysisID string, fiscalYear int) (*models.PeriodFinancialData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[periodKey{analysisID, fiscalYear}]
	if !ok {
		return nil, fmt.Errorf("period FY%d of %s: %w", fiscalYear, analysisID, ErrNotFound)
	}
	return &p, nil
}

func (m *MemoryRepo) UpsertPeriod(_ context.Context, p *models.PeriodFinancialData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.analyses[p.AnalysisID]; !ok {
		return fmt.Errorf("analysis %s: %w", p.AnalysisID, ErrNotFound)
	}
	key := periodKey{p.AnalysisID, p.FiscalYear}
	stored := *p
	if prev, ok := m.periods[key]; ok {
		if stored.SourceFile == "" {
			stored.SourceFile = prev.SourceFile
		}
		// metrics are only written by SaveMetrics
		stored.Metrics = prev.Metrics
	} else {
		stored.Metrics = nil
	}
	m.periods[key] = stored
	return nil
}

func (m *MemoryRepo) DeletePeriod(_ context.Context, analysisID string, fiscalYear int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := periodKey{analysisID, fiscalYear}
	if _, ok := m.periods[key]; !ok {
		return fmt.Errorf("period FY%d of %s: %w", fiscalYear, analysisID, ErrNotFound)
	}
	delete(m.periods, key)
	if a, ok := m.analyses[analysisID]; ok {
		a.MetricsComputedAt = nil
		a.UpdatedAt = time.Now()
		m.analyses[analysisID] = a
	}
	return nil
}

func (m *MemoryRepo) SaveMetrics(_ context.Context, analysisID string, periods []models.PeriodFinancialData, computedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[analysisID]
	if !ok {
		return fmt.Errorf("analysis %s: %w", analysisID, ErrNotFound)
	}
	for _, p := range periods {
		key := periodKey{analysisID, p.FiscalYear}
		stored, ok := m.periods[key]
		if !ok {
			continue
		}
		stored.Metrics = p.Metrics
		m.periods[key] = stored
	}
	// A period deleted after the snapshot leaves the analysis stale.
	if !a.UpdatedAt.After(computedAt) {
		a.MetricsComputedAt = &computedAt
		a.UpdatedAt = computedAt
		m.analyses[analysisID] = a
	}
	return nil
}

func (m *MemoryRepo) ListStaleAnalyses(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	latest := make(map[string]time.Time)
	for k, p := range m.periods {
		if p.UpdatedAt.After(latest[k.analysisID]) || latest[k.analysisID].IsZero() {
			latest[k.analysisID] = p.UpdatedAt
		}
	}
	var ids []string
	for id, changed := range latest {
		a, ok := m.analyses[id]
		if !ok {
			continue
		}
		if a.MetricsComputedAt == nil || changed.After(*a.MetricsComputedAt) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryRepo) SaveCommentary(_ context.Context, c *models.Commentary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.analyses[c.AnalysisID]; !ok {
		return fmt.Errorf("analysis %s: %w", c.AnalysisID, ErrNotFound)
	}
	m.commentary[c.AnalysisID] = append(m.commentary[c.AnalysisID], *c)
	return nil
}

func (m *MemoryRepo) LatestCommentary(_ context.Context, analysisID string) (*models.Commentary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.commentary[analysisID]
	if len(list) == 0 {
		return nil, fmt.Errorf("commentary of %s: %w", analysisID, ErrNotFound)
	}
	latest := list[0]
	for _, c := range list[1:] {
		if !c.CreatedAt.Before(latest.CreatedAt) {
			latest = c
		}
	}
	return &latest, nil
}
