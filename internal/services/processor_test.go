package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/testutils"
)

const (
	testSubmissionsBucket = "submissions"
	testAnswerKeysBucket  = "answer-keys"
)

type processorFixture struct {
	competitions *testutils.CompetitionRepo
	submissions  *testutils.SubmissionRepo
	store        *testutils.ObjectStore
	telemetry    *Telemetry
	processor    SubmissionProcessor
	competition  models.Competition
	now          time.Time
}

func newProcessorFixture(t *testing.T, metric models.ScoringMetric, answerKey string) *processorFixture {
	t.Helper()

	f := &processorFixture{
		competitions: testutils.NewCompetitionRepo(),
		store:        testutils.NewObjectStore(),
		telemetry:    NewTelemetry(prometheus.NewRegistry()),
		now:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.submissions = testutils.NewSubmissionRepo(f.competitions)
	f.competition = f.competitions.AddCompetition(metric)

	if answerKey != "" {
		keyPath := f.competition.ID.String() + "/public.csv"
		f.store.Put(testAnswerKeysBucket, keyPath, answerKey)
		require.NoError(t, f.competitions.UpsertTestDataset(context.Background(), &models.TestDataset{
			CompetitionID: f.competition.ID,
			Phase:         models.PhasePublic,
			FilePath:      keyPath,
		}))
	}

	f.processor = NewSubmissionProcessor(
		f.submissions,
		f.competitions,
		f.store,
		testSubmissionsBucket,
		testAnswerKeysBucket,
		WithTelemetry(f.telemetry),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *processorFixture) submit(csv string) models.Submission {
	path := f.competition.ID.String() + "/" + uuid.NewString() + ".csv"
	f.store.Put(testSubmissionsBucket, path, csv)
	return f.submissions.AddSubmission(f.competition.ID, models.PhasePublic, path)
}

func TestProcess_ValidSubmissionIsScored(t *testing.T) {
	f := newProcessorFixture(t, models.MetricAccuracy, "id,label\n1,cat\n2,cat\n")
	sub := f.submit("id,label\n2,dog\n1,cat\n")

	outcome, err := f.processor.Process(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeScored, outcome.Kind)
	assert.Equal(t, models.MetricAccuracy, outcome.Metric)
	assert.InDelta(t, 0.5, outcome.Score, tolerance)

	stored, _ := f.submissions.Get(sub.ID)
	assert.Equal(t, models.StatusValid, stored.ValidationStatus)
	require.NotNil(t, stored.Score)
	assert.InDelta(t, 0.5, *stored.Score, tolerance)
	require.NotNil(t, stored.ProcessedAt)
	assert.True(t, stored.ProcessedAt.Equal(f.now))
	assert.Empty(t, stored.ValidationErrors)
	assert.Len(t, f.submissions.Updates, 1)

	assert.Equal(t, 1.0, promtest.ToFloat64(f.telemetry.processed.WithLabelValues(outcomeScored)))
}

func TestProcess_InvalidSubmissionRecordsErrors(t *testing.T) {
	f := newProcessorFixture(t, models.MetricF1Score, "id,label\n1,cat\n2,dog\n3,cat\n")
	sub := f.submit("id,label\n1,cat\n2,dog\n")

	outcome, err := f.processor.Process(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, outcome.Kind)

	want := []string{"Row count mismatch: expected 3, got 2", "Missing ID: 3"}
	assert.Equal(t, want, outcome.Errors)

	stored, _ := f.submissions.Get(sub.ID)
	assert.Equal(t, models.StatusInvalid, stored.ValidationStatus)
	assert.Equal(t, want, stored.ValidationErrors)
	assert.Nil(t, stored.Score)
	require.NotNil(t, stored.ProcessedAt)

	assert.Equal(t, 1.0, promtest.ToFloat64(f.telemetry.processed.WithLabelValues(outcomeInvalid)))
}

func TestProcess_OrchestrationErrorsLeaveSubmissionPending(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *processorFixture) uuid.UUID
		wantErr error
	}{
		{
			name:    "unknown submission",
			setup:   func(f *processorFixture) uuid.UUID { return uuid.New() },
			wantErr: ErrSubmissionNotFound,
		},
		{
			name: "competition missing",
			setup: func(f *processorFixture) uuid.UUID {
				return f.submissions.AddSubmission(uuid.New(), models.PhasePublic, "x.csv").ID
			},
			wantErr: ErrCompetitionNotFound,
		},
		{
			name: "submission file missing",
			setup: func(f *processorFixture) uuid.UUID {
				return f.submissions.AddSubmission(f.competition.ID, models.PhasePublic, "gone.csv").ID
			},
			wantErr: ErrDownload,
		},
		{
			name: "no answer key for phase",
			setup: func(f *processorFixture) uuid.UUID {
				path := "private.csv"
				f.store.Put(testSubmissionsBucket, path, "id,label\n1,cat\n")
				return f.submissions.AddSubmission(f.competition.ID, models.PhasePrivate, path).ID
			},
			wantErr: ErrAnswerKeyNotFound,
		},
		{
			name: "answer key file missing",
			setup: func(f *processorFixture) uuid.UUID {
				require.NoError(t, f.store.Delete(context.Background(), testAnswerKeysBucket, f.competition.ID.String()+"/public.csv"))
				return f.submit("id,label\n1,cat\n").ID
			},
			wantErr: ErrDownload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessorFixture(t, models.MetricAccuracy, "id,label\n1,cat\n")
			id := tt.setup(f)

			outcome, err := f.processor.Process(context.Background(), id)
			assert.Nil(t, outcome)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr == ErrCompetitionNotFound {
				assert.NotErrorIs(t, err, ErrSubmissionNotFound)
			}
			assert.Empty(t, f.submissions.Updates)

			if stored, ok := f.submissions.Get(id); ok {
				assert.Equal(t, models.StatusPending, stored.ValidationStatus)
			}
			assert.Equal(t, 1.0, promtest.ToFloat64(f.telemetry.processed.WithLabelValues(outcomeError)))
		})
	}
}

func TestProcess_AnswerKeyLookupFailure(t *testing.T) {
	f := newProcessorFixture(t, models.MetricAccuracy, "id,label\n1,cat\n")
	f.competitions.FindDatasetErr = errors.New("connection reset")
	sub := f.submit("id,label\n1,cat\n")

	_, err := f.processor.Process(context.Background(), sub.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAnswerKeyNotFound)
	assert.Empty(t, f.submissions.Updates)
}

func TestProcess_ScoringErrorIsNotAZeroScore(t *testing.T) {
	f := newProcessorFixture(t, models.MetricMAE, "id,target\n1,1.5\n2,2.0\n")
	sub := f.submit("id,target\n1,1.5\n2,two\n")

	outcome, err := f.processor.Process(context.Background(), sub.ID)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, ErrScoring)

	stored, _ := f.submissions.Get(sub.ID)
	assert.Equal(t, models.StatusPending, stored.ValidationStatus)
	assert.Nil(t, stored.Score)
	assert.Empty(t, f.submissions.Updates)
}

func TestProcess_TerminalSubmissionIsNotReprocessed(t *testing.T) {
	f := newProcessorFixture(t, models.MetricAccuracy, "id,label\n1,cat\n")
	sub := f.submit("id,label\n1,cat\n")

	_, err := f.processor.Process(context.Background(), sub.ID)
	require.NoError(t, err)

	_, err = f.processor.Process(context.Background(), sub.ID)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Len(t, f.submissions.Updates, 1)
}

func TestProcess_UnknownMetricFallsBackToF1(t *testing.T) {
	f := newProcessorFixture(t, "bleu", "id,label\n1,cat\n2,dog\n")
	sub := f.submit("id,label\n1,cat\n2,cat\n")

	outcome, err := f.processor.Process(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeScored, outcome.Kind)
	assert.Equal(t, models.MetricF1Score, outcome.Metric)

	// cat: TP=1 FP=1 FN=0 -> 2/3, dog: TP=0 FP=0 FN=1 -> 0
	assert.InDelta(t, (2.0/3.0)/2, outcome.Score, tolerance)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.telemetry.fallbacks))
}

func TestProcess_PersistFailure(t *testing.T) {
	f := newProcessorFixture(t, models.MetricAccuracy, "id,label\n1,cat\n")
	f.submissions.UpdateErr = errors.New("db down")
	sub := f.submit("id,label\n1,cat\n")

	_, err := f.processor.Process(context.Background(), sub.ID)
	assert.ErrorIs(t, err, ErrPersist)

	stored, _ := f.submissions.Get(sub.ID)
	assert.Equal(t, models.StatusPending, stored.ValidationStatus)
}

func TestProcess_NilTelemetry(t *testing.T) {
	competitions := testutils.NewCompetitionRepo()
	submissions := testutils.NewSubmissionRepo(competitions)
	store := testutils.NewObjectStore()
	competition := competitions.AddCompetition(models.MetricRMSE)

	store.Put(testAnswerKeysBucket, "key.csv", "id,y\n1,3\n")
	require.NoError(t, competitions.UpsertTestDataset(context.Background(), &models.TestDataset{
		CompetitionID: competition.ID, Phase: models.PhasePublic, FilePath: "key.csv",
	}))
	store.Put(testSubmissionsBucket, "sub.csv", "id,y\n1,5\n")
	sub := submissions.AddSubmission(competition.ID, models.PhasePublic, "sub.csv")

	processor := NewSubmissionProcessor(submissions, competitions, store, testSubmissionsBucket, testAnswerKeysBucket)
	outcome, err := processor.Process(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, outcome.Score, tolerance)
}
