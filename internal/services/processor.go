package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/repositories"
)

type OutcomeKind int

const (
	OutcomeScored OutcomeKind = iota + 1
	OutcomeInvalid
)

// Outcome is the terminal result of processing one submission. Score is set
// for OutcomeScored, Errors for OutcomeInvalid.
type Outcome struct {
	Kind   OutcomeKind
	Metric models.ScoringMetric
	Score  float64
	Errors []string
}

type SubmissionProcessor interface {
	Process(ctx context.Context, submissionID uuid.UUID) (*Outcome, error)
}

type ProcessorOption func(*submissionProcessor)

// WithClock overrides the source of processed_at timestamps.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *submissionProcessor) {
		if now != nil {
			p.now = now
		}
	}
}

func WithTelemetry(t *Telemetry) ProcessorOption {
	return func(p *submissionProcessor) {
		p.telemetry = t
	}
}

type submissionProcessor struct {
	submissionRepo    repositories.SubmissionRepository
	competitionRepo   repositories.CompetitionRepository
	store             ObjectStore
	submissionsBucket string
	answerKeysBucket  string
	telemetry         *Telemetry
	now               func() time.Time
}

func NewSubmissionProcessor(
	submissionRepo repositories.SubmissionRepository,
	competitionRepo repositories.CompetitionRepository,
	store ObjectStore,
	submissionsBucket string,
	answerKeysBucket string,
	opts ...ProcessorOption,
) SubmissionProcessor {
	p := &submissionProcessor{
		submissionRepo:    submissionRepo,
		competitionRepo:   competitionRepo,
		store:             store,
		submissionsBucket: submissionsBucket,
		answerKeysBucket:  answerKeysBucket,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process fetches, validates, scores and persists one submission. Structural
// problems produce an OutcomeInvalid; every other failure is returned as an
// error and leaves the submission row untouched.
func (p *submissionProcessor) Process(ctx context.Context, submissionID uuid.UUID) (*Outcome, error) {
	start := time.Now()
	outcome, err := p.process(ctx, submissionID)

	label := outcomeError
	if err == nil {
		label = outcomeScored
		if outcome.Kind == OutcomeInvalid {
			label = outcomeInvalid
		}
	}
	p.telemetry.ObserveProcess(label, time.Since(start))

	return outcome, err
}

func (p *submissionProcessor) process(ctx context.Context, submissionID uuid.UUID) (*Outcome, error) {
	log.Printf("🔄 Processing submission %s\n", submissionID)

	// Step 1: Fetch submission and competition
	submission, err := p.submissionRepo.FindByIDWithCompetition(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrCompetitionNotFound, err)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrSubmissionNotFound, err)
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	if submission.ValidationStatus.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyProcessed, submissionID, submission.ValidationStatus)
	}

	// Step 2: Download the submission file
	submissionRaw, err := p.store.Download(ctx, p.submissionsBucket, submission.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: submission file: %w", ErrDownload, err)
	}

	// Step 3: Resolve and download the answer key
	dataset, err := p.competitionRepo.FindTestDataset(ctx, submission.CompetitionID, submission.Phase)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrAnswerKeyNotFound, err)
		}
		return nil, fmt.Errorf("failed to load answer key record: %w", err)
	}

	answerRaw, err := p.store.Download(ctx, p.answerKeysBucket, dataset.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: answer key file: %w", ErrDownload, err)
	}

	// Step 4: Parse
	submissionData := ParseCSV(submissionRaw)
	answerData := ParseCSV(answerRaw)

	// Step 5: Validate
	result := ValidateSubmission(submissionData, answerData)
	if !result.Valid {
		status, err := submission.ValidationStatus.Transition(models.StatusInvalid)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAlreadyProcessed, err)
		}

		if err := p.submissionRepo.UpdateOutcome(ctx, submissionID, &repositories.OutcomeUpdateData{
			Status:      status,
			Errors:      result.Errors,
			ProcessedAt: p.now(),
		}); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersist, err)
		}

		log.Printf("⚠️  Submission %s is invalid: %d problem(s)\n", submissionID, len(result.Errors))
		return &Outcome{Kind: OutcomeInvalid, Errors: result.Errors}, nil
	}

	// Step 6: Score and persist
	metric, known := ResolveMetric(submission.Competition.ScoringMetric)
	if !known {
		log.Printf("⚠️  Competition %s has unknown scoring metric %q, falling back to %s\n",
			submission.CompetitionID, submission.Competition.ScoringMetric, metric.Kind())
		p.telemetry.MetricFallback()
	}

	score, err := metric.Compute(AlignByID(submissionData, answerData))
	if err != nil {
		return nil, fmt.Errorf("failed to score submission %s: %w", submissionID, err)
	}

	status, err := submission.ValidationStatus.Transition(models.StatusValid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlreadyProcessed, err)
	}

	if err := p.submissionRepo.UpdateOutcome(ctx, submissionID, &repositories.OutcomeUpdateData{
		Status:      status,
		Score:       &score,
		ProcessedAt: p.now(),
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	log.Printf("✅ Submission %s scored %.6f (%s)\n", submissionID, score, metric.Kind())
	return &Outcome{Kind: OutcomeScored, Metric: metric.Kind(), Score: score}, nil
}
