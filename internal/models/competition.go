package models

import (
	"time"

	"github.com/google/uuid"
)

type ScoringMetric string

const (
	MetricF1Score   ScoringMetric = "f1_score"
	MetricAccuracy  ScoringMetric = "accuracy"
	MetricPrecision ScoringMetric = "precision"
	MetricRecall    ScoringMetric = "recall"
	MetricMAE       ScoringMetric = "mae"
	MetricRMSE      ScoringMetric = "rmse"
)

// LowerIsBetter reports whether a smaller score ranks higher on the leaderboard.
func (m ScoringMetric) LowerIsBetter() bool {
	return m == MetricMAE || m == MetricRMSE
}

type Phase string

const (
	PhasePublic  Phase = "public"
	PhasePrivate Phase = "private"
)

func (p Phase) IsValid() bool {
	return p == PhasePublic || p == PhasePrivate
}

type Competition struct {
	ID            uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name          string        `gorm:"type:text;not null" json:"name"`
	ScoringMetric ScoringMetric `gorm:"type:text;not null;default:'f1_score'" json:"scoring_metric"`
	CreatedAt     time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Competition) TableName() string {
	return "competitions"
}

// TestDataset points at the answer key for one competition phase.
type TestDataset struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CompetitionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_test_datasets_competition_phase" json:"competition_id"`
	Phase         Phase     `gorm:"type:text;not null;uniqueIndex:idx_test_datasets_competition_phase" json:"phase"`
	FilePath      string    `gorm:"type:text;not null" json:"file_path"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TestDataset) TableName() string {
	return "test_datasets"
}
