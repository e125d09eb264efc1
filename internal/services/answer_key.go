package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"

	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/repositories"
)

var ErrInvalidAnswerKey = errors.New("invalid answer key")

// CheckAnswerKey verifies an answer key validates and scores against itself
// under metric, so numeric metrics reject non-numeric keys up front.
func CheckAnswerKey(raw []byte, metric models.ScoringMetric) (ParsedDataset, error) {
	key := ParseCSV(raw)
	if key.Len() == 0 {
		return key, fmt.Errorf("%w: no rows", ErrInvalidAnswerKey)
	}

	if result := ValidateSubmission(key, key); !result.Valid {
		return key, fmt.Errorf("%w: %v", ErrInvalidAnswerKey, result.Errors)
	}

	if _, known := ResolveMetric(metric); !known {
		return key, fmt.Errorf("%w: unknown scoring metric %q", ErrInvalidAnswerKey, metric)
	}

	if _, err := Score(key, key, metric); err != nil {
		return key, fmt.Errorf("%w: %w", ErrInvalidAnswerKey, err)
	}

	return key, nil
}

type AnswerKeyRegistrar struct {
	competitionRepo repositories.CompetitionRepository
	store           ObjectStore
	bucket          string
}

func NewAnswerKeyRegistrar(competitionRepo repositories.CompetitionRepository, store ObjectStore, bucket string) *AnswerKeyRegistrar {
	return &AnswerKeyRegistrar{competitionRepo: competitionRepo, store: store, bucket: bucket}
}

// Register stores raw as the answer key of competitionID for phase,
// replacing any previous key for that phase.
func (r *AnswerKeyRegistrar) Register(ctx context.Context, competitionID uuid.UUID, phase models.Phase, raw []byte) (*models.TestDataset, error) {
	if !phase.IsValid() {
		return nil, fmt.Errorf("invalid phase %q", phase)
	}

	competition, err := r.competitionRepo.FindByID(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	if _, err := CheckAnswerKey(raw, competition.ScoringMetric); err != nil {
		return nil, err
	}

	objectPath := path.Join(competitionID.String(), string(phase)+".csv")
	if err := r.store.Upload(ctx, r.bucket, objectPath, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to store answer key: %w", err)
	}

	dataset := &models.TestDataset{
		CompetitionID: competitionID,
		Phase:         phase,
		FilePath:      objectPath,
	}
	if err := r.competitionRepo.UpsertTestDataset(ctx, dataset); err != nil {
		return nil, err
	}

	return dataset, nil
}
