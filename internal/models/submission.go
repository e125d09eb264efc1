package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ValidationStatus string

const (
	StatusPending ValidationStatus = "pending"
	StatusValid   ValidationStatus = "valid"
	StatusInvalid ValidationStatus = "invalid"
)

var ErrInvalidTransition = errors.New("invalid validation status transition")

func (s ValidationStatus) IsTerminal() bool {
	return s == StatusValid || s == StatusInvalid
}

// CanTransition allows exactly pending -> valid and pending -> invalid.
func (s ValidationStatus) CanTransition(to ValidationStatus) bool {
	return s == StatusPending && to.IsTerminal()
}

func (s ValidationStatus) Transition(to ValidationStatus) (ValidationStatus, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

type Submission struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CompetitionID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"competition_id"`
	TeamID           *string          `gorm:"type:text" json:"team_id,omitempty"`
	Phase            Phase            `gorm:"type:text;not null;default:'public'" json:"phase"`
	FilePath         string           `gorm:"type:text;not null" json:"file_path"`
	OriginalFilename string           `gorm:"type:text" json:"original_filename"`
	ValidationStatus ValidationStatus `gorm:"type:text;not null;default:'pending';index" json:"validation_status"`
	ValidationErrors []string         `gorm:"type:jsonb;serializer:json" json:"validation_errors,omitempty"`
	Score            *float64         `gorm:"type:double precision" json:"score,omitempty"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty"`
	CreatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Competition Competition `gorm:"foreignKey:CompetitionID" json:"-"`
}

func (Submission) TableName() string {
	return "submissions"
}
