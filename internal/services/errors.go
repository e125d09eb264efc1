package services

import "errors"

// Orchestration failures returned by SubmissionProcessor.Process. They are
// distinct from structural validation problems, which are an Outcome.
var (
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrAnswerKeyNotFound   = errors.New("answer key not found")
	ErrDownload            = errors.New("download error")
	ErrAlreadyProcessed    = errors.New("submission already processed")
	ErrScoring             = errors.New("scoring error")
	ErrPersist             = errors.New("failed to persist outcome")
)
