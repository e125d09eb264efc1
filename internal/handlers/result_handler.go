package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/repositories"
)

type ResultHandler struct {
	submissionRepo repositories.SubmissionRepository
}

func NewResultHandler(submissionRepo repositories.SubmissionRepository) *ResultHandler {
	return &ResultHandler{
		submissionRepo: submissionRepo,
	}
}

// HandleGetResult handles GET /submissions/:id
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	submissionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid submission ID format",
		})
	}

	submission, err := h.submissionRepo.FindByID(c.UserContext(), submissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Submission not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load submission",
		})
	}

	response := models.SubmissionResponse{
		ID:               submission.ID.String(),
		CompetitionID:    submission.CompetitionID.String(),
		Phase:            string(submission.Phase),
		ValidationStatus: string(submission.ValidationStatus),
		ProcessedAt:      submission.ProcessedAt,
	}

	switch submission.ValidationStatus {
	case models.StatusValid:
		response.Score = submission.Score
	case models.StatusInvalid:
		response.ValidationErrors = submission.ValidationErrors
	}

	return c.JSON(response)
}
