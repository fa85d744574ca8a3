package models

import (
	"time"
)

// Analysis groups the fiscal periods of one company.
type Analysis struct {
	ID                string     `json:"id"`
	CompanyName       string     `json:"company_name" validate:"required,max=200"`
	Unit              string     `json:"unit" validate:"required,oneof=yen thousand_yen million_yen"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	MetricsComputedAt *time.Time `json:"metrics_computed_at,omitempty"`
}

// Commentary is an AI-generated narrative over an analysis' metrics.
type Commentary struct {
	ID         string    `json:"id"`
	AnalysisID string    `json:"analysis_id"`
	Provider   string    `json:"provider"`
	Markdown   string    `json:"markdown"`
	HTML       string    `json:"html"`
	CreatedAt  time.Time `json:"created_at"`
}
