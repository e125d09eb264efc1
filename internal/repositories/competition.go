package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/competition-scorer/internal/models"
)

type CompetitionRepository interface {
	Create(ctx context.Context, competition *models.Competition) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Competition, error)
	FindTestDataset(ctx context.Context, competitionID uuid.UUID, phase models.Phase) (*models.TestDataset, error)
	UpsertTestDataset(ctx context.Context, dataset *models.TestDataset) error
}

type competitionRepository struct {
	db *gorm.DB
}

func NewCompetitionRepository(db *gorm.DB) CompetitionRepository {
	return &competitionRepository{db: db}
}

func (r *competitionRepository) Create(ctx context.Context, competition *models.Competition) error {
	if err := r.db.WithContext(ctx).Create(competition).Error; err != nil {
		return fmt.Errorf("failed to create competition: %w", err)
	}
	return nil
}

func (r *competitionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Competition, error) {
	var competition models.Competition
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&competition).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("competition %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find competition: %w", err)
	}
	return &competition, nil
}

// FindTestDataset resolves the answer key record for a competition phase.
func (r *competitionRepository) FindTestDataset(ctx context.Context, competitionID uuid.UUID, phase models.Phase) (*models.TestDataset, error) {
	var dataset models.TestDataset
	err := r.db.WithContext(ctx).
		Where("competition_id = ? AND phase = ?", competitionID, phase).
		First(&dataset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("test dataset for %s/%s: %w", competitionID, phase, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find test dataset: %w", err)
	}
	return &dataset, nil
}

// UpsertTestDataset replaces the file path when the (competition, phase) pair already exists.
func (r *competitionRepository) UpsertTestDataset(ctx context.Context, dataset *models.TestDataset) error {
	if dataset.ID == uuid.Nil {
		dataset.ID = uuid.New()
	}
	dataset.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "competition_id"}, {Name: "phase"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_path", "updated_at"}),
		}).
		Create(dataset).Error
	if err != nil {
		return fmt.Errorf("failed to upsert test dataset: %w", err)
	}
	return nil
}
