package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/competition-scorer/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrCompetitionNotFound marks a submission whose competition row is gone.
	ErrCompetitionNotFound = errors.New("competition not found")
)

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	FindByIDWithCompetition(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	UpdateOutcome(ctx context.Context, id uuid.UUID, data *OutcomeUpdateData) error
	FindPending(ctx context.Context, createdBefore time.Time, after *PendingCursor, limit int) ([]models.Submission, error)
	FindLeaderboard(ctx context.Context, competitionID uuid.UUID, phase models.Phase, lowerIsBetter bool, limit int) ([]models.Submission, error)
}

// OutcomeUpdateData is the terminal write for one submission.
type OutcomeUpdateData struct {
	Status      models.ValidationStatus
	Errors      []string
	Score       *float64
	ProcessedAt time.Time
}

// PendingCursor is the (created_at, id) position of the last pending row a
// scan returned. A nil cursor starts from the oldest row.
type PendingCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorAfter returns the position just past s.
func CursorAfter(s models.Submission) *PendingCursor {
	return &PendingCursor{CreatedAt: s.CreatedAt, ID: s.ID}
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if err := r.db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}
	return &submission, nil
}

// FindByIDWithCompetition loads the submission joined with its competition.
func (r *submissionRepository) FindByIDWithCompetition(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Competition").
		Where("id = ?", id).
		First(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}

	if submission.Competition.ID == uuid.Nil {
		return nil, fmt.Errorf("competition %s for submission %s: %w", submission.CompetitionID, id, ErrCompetitionNotFound)
	}

	return &submission, nil
}

// UpdateOutcome writes the terminal fields. The write is last-write-wins on the row.
func (r *submissionRepository) UpdateOutcome(ctx context.Context, id uuid.UUID, data *OutcomeUpdateData) error {
	processedAt := data.ProcessedAt
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Select("validation_status", "validation_errors", "score", "processed_at", "updated_at").
		Updates(&models.Submission{
			ValidationStatus: data.Status,
			ValidationErrors: data.Errors,
			Score:            data.Score,
			ProcessedAt:      &processedAt,
			UpdatedAt:        time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update submission outcome: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}

	return nil
}

// FindPending pages through pending rows in (created_at, id) order, starting
// after the given cursor.
func (r *submissionRepository) FindPending(ctx context.Context, createdBefore time.Time, after *PendingCursor, limit int) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).
		Where("validation_status = ? AND created_at < ?", models.StatusPending, createdBefore)
	if after != nil {
		query = query.Where("(created_at, id) > (?, ?)", after.CreatedAt, after.ID)
	}

	var submissions []models.Submission
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&submissions).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending submissions: %w", err)
	}

	return submissions, nil
}

func (r *submissionRepository) FindLeaderboard(ctx context.Context, competitionID uuid.UUID, phase models.Phase, lowerIsBetter bool, limit int) ([]models.Submission, error) {
	order := "score DESC"
	if lowerIsBetter {
		order = "score ASC"
	}

	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("competition_id = ? AND phase = ? AND validation_status = ? AND score IS NOT NULL",
			competitionID, phase, models.StatusValid).
		Order(order).
		Order("processed_at ASC").
		Limit(limit).
		Find(&submissions).Error

	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	return submissions, nil
}
