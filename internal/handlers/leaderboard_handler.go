package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/repositories"
	"alfredoptarigan/competition-scorer/internal/services"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 200
)

type LeaderboardHandler struct {
	submissionRepo  repositories.SubmissionRepository
	competitionRepo repositories.CompetitionRepository
}

func NewLeaderboardHandler(
	submissionRepo repositories.SubmissionRepository,
	competitionRepo repositories.CompetitionRepository,
) *LeaderboardHandler {
	return &LeaderboardHandler{
		submissionRepo:  submissionRepo,
		competitionRepo: competitionRepo,
	}
}

// HandleGetLeaderboard handles GET /competitions/:id/leaderboard
func (h *LeaderboardHandler) HandleGetLeaderboard(c *fiber.Ctx) error {
	competitionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid competition ID format",
		})
	}

	phase := models.Phase(c.Query("phase", string(models.PhasePublic)))
	if !phase.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "phase must be public or private",
		})
	}

	limit := c.QueryInt("limit", defaultLeaderboardLimit)
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	competition, err := h.competitionRepo.FindByID(c.UserContext(), competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Competition not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load competition",
		})
	}

	// Rank with the metric that actually scored the submissions.
	metric, _ := services.ResolveMetric(competition.ScoringMetric)

	submissions, err := h.submissionRepo.FindLeaderboard(c.UserContext(), competitionID, phase, metric.Kind().LowerIsBetter(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load leaderboard",
		})
	}

	entries := make([]models.LeaderboardEntry, 0, len(submissions))
	for i, s := range submissions {
		entry := models.LeaderboardEntry{
			Rank:         i + 1,
			SubmissionID: s.ID.String(),
			TeamID:       s.TeamID,
		}
		if s.Score != nil {
			entry.Score = *s.Score
		}
		if s.ProcessedAt != nil {
			entry.ProcessedAt = *s.ProcessedAt
		}
		entries = append(entries, entry)
	}

	return c.JSON(models.LeaderboardResponse{
		CompetitionID: competitionID.String(),
		Phase:         string(phase),
		Metric:        string(metric.Kind()),
		Entries:       entries,
	})
}
