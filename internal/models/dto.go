package models

import "time"

// ProcessRequest is the upload-completion event body.
type ProcessRequest struct {
	SubmissionID string `json:"submissionId" validate:"required,uuid"`
}

type ProcessResponse struct {
	Success bool     `json:"success"`
	Score   *float64 `json:"score,omitempty"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type UploadRequest struct {
	CompetitionID string `form:"competition_id" validate:"required,uuid"`
	Phase         string `form:"phase" validate:"required,oneof=public private"`
	TeamID        string `form:"team_id" validate:"omitempty,max=128"`
}

type UploadResponse struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	OriginalName     string `json:"original_name"`
	ValidationStatus string `json:"validation_status"`
}

type SubmissionResponse struct {
	ID               string     `json:"id"`
	CompetitionID    string     `json:"competition_id"`
	Phase            string     `json:"phase"`
	ValidationStatus string     `json:"validation_status"`
	ValidationErrors []string   `json:"validation_errors,omitempty"`
	Score            *float64   `json:"score,omitempty"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	SubmissionID string    `json:"submission_id"`
	TeamID       *string   `json:"team_id,omitempty"`
	Score        float64   `json:"score"`
	ProcessedAt  time.Time `json:"processed_at"`
}

type LeaderboardResponse struct {
	CompetitionID string             `json:"competition_id"`
	Phase         string             `json:"phase"`
	Metric        string             `json:"metric"`
	Entries       []LeaderboardEntry `json:"entries"`
}
