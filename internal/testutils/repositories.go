// Package testutils provides in-memory stand-ins for the record and object
// stores used by service and handler tests.
package testutils

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/repositories"
)

type CompetitionRepo struct {
	mu           sync.Mutex
	competitions map[uuid.UUID]models.Competition
	datasets     map[string]models.TestDataset

	// FindErr, when set, is returned by FindByID.
	FindErr error
	// FindDatasetErr, when set, is returned by FindTestDataset.
	FindDatasetErr error
}

func NewCompetitionRepo() *CompetitionRepo {
	return &CompetitionRepo{
		competitions: make(map[uuid.UUID]models.Competition),
		datasets:     make(map[string]models.TestDataset),
	}
}

func datasetKey(competitionID uuid.UUID, phase models.Phase) string {
	return competitionID.String() + "/" + string(phase)
}

// AddCompetition seeds a competition and returns it.
func (r *CompetitionRepo) AddCompetition(metric models.ScoringMetric) models.Competition {
	c := models.Competition{ID: uuid.New(), Name: "competition", ScoringMetric: metric}
	r.mu.Lock()
	r.competitions[c.ID] = c
	r.mu.Unlock()
	return c
}

func (r *CompetitionRepo) Create(_ context.Context, competition *models.Competition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if competition.ID == uuid.Nil {
		competition.ID = uuid.New()
	}
	r.competitions[competition.ID] = *competition
	return nil
}

func (r *CompetitionRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Competition, error) {
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.competitions[id]
	if !ok {
		return nil, fmt.Errorf("competition %s: %w", id, repositories.ErrNotFound)
	}
	return &c, nil
}

func (r *CompetitionRepo) FindTestDataset(_ context.Context, competitionID uuid.UUID, phase models.Phase) (*models.TestDataset, error) {
	if r.FindDatasetErr != nil {
		return nil, r.FindDatasetErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.datasets[datasetKey(competitionID, phase)]
	if !ok {
		return nil, fmt.Errorf("test dataset for %s/%s: %w", competitionID, phase, repositories.ErrNotFound)
	}
	return &d, nil
}

func (r *CompetitionRepo) UpsertTestDataset(_ context.Context, dataset *models.TestDataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := datasetKey(dataset.CompetitionID, dataset.Phase)
	if existing, ok := r.datasets[key]; ok {
		dataset.ID = existing.ID
	} else if dataset.ID == uuid.Nil {
		dataset.ID = uuid.New()
	}
	r.datasets[key] = *dataset
	return nil
}

type SubmissionRepo struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]models.Submission
	competition *CompetitionRepo

	// Updates records every UpdateOutcome call in order.
	Updates []repositories.OutcomeUpdateData
	// CreateErr, when set, is returned by Create.
	CreateErr error
	// UpdateErr, when set, is returned by UpdateOutcome.
	UpdateErr error
	// PendingErr, when set, is returned by FindPending.
	PendingErr error
}

func NewSubmissionRepo(competitions *CompetitionRepo) *SubmissionRepo {
	return &SubmissionRepo{rows: make(map[uuid.UUID]models.Submission), competition: competitions}
}

// AddSubmission seeds a pending submission.
func (r *SubmissionRepo) AddSubmission(competitionID uuid.UUID, phase models.Phase, filePath string) models.Submission {
	s := models.Submission{
		ID:               uuid.New(),
		CompetitionID:    competitionID,
		Phase:            phase,
		FilePath:         filePath,
		ValidationStatus: models.StatusPending,
		CreatedAt:        time.Now(),
	}
	r.mu.Lock()
	r.rows[s.ID] = s
	r.mu.Unlock()
	return s
}

// Put stores s as-is.
func (r *SubmissionRepo) Put(s models.Submission) {
	r.mu.Lock()
	r.rows[s.ID] = s
	r.mu.Unlock()
}

func (r *SubmissionRepo) Get(id uuid.UUID) (models.Submission, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	return s, ok
}

func (r *SubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	r.rows[submission.ID] = *submission
	return nil
}

func (r *SubmissionRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Submission, error) {
	s, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, repositories.ErrNotFound)
	}
	return &s, nil
}

func (r *SubmissionRepo) FindByIDWithCompetition(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := r.competition.FindByID(ctx, s.CompetitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("competition %s for submission %s: %w", s.CompetitionID, id, repositories.ErrCompetitionNotFound)
		}
		return nil, err
	}
	s.Competition = *c
	return s, nil
}

func (r *SubmissionRepo) UpdateOutcome(_ context.Context, id uuid.UUID, data *repositories.OutcomeUpdateData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	s, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("submission %s: %w", id, repositories.ErrNotFound)
	}
	processedAt := data.ProcessedAt
	s.ValidationStatus = data.Status
	s.ValidationErrors = data.Errors
	s.Score = data.Score
	s.ProcessedAt = &processedAt
	r.rows[id] = s
	r.Updates = append(r.Updates, *data)
	return nil
}

func (r *SubmissionRepo) FindPending(_ context.Context, createdBefore time.Time, after *repositories.PendingCursor, limit int) ([]models.Submission, error) {
	if r.PendingErr != nil {
		return nil, r.PendingErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Submission
	for _, s := range r.rows {
		if s.ValidationStatus == models.StatusPending && s.CreatedAt.Before(createdBefore) && pastCursor(s, after) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return pendingLess(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func pendingLess(a, b models.Submission) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func pastCursor(s models.Submission, after *repositories.PendingCursor) bool {
	if after == nil {
		return true
	}
	return pendingLess(models.Submission{CreatedAt: after.CreatedAt, ID: after.ID}, s)
}

func (r *SubmissionRepo) FindLeaderboard(_ context.Context, competitionID uuid.UUID, phase models.Phase, lowerIsBetter bool, limit int) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Submission
	for _, s := range r.rows {
		if s.CompetitionID == competitionID && s.Phase == phase && s.ValidationStatus == models.StatusValid && s.Score != nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if lowerIsBetter {
			return *out[i].Score < *out[j].Score
		}
		return *out[i].Score > *out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
