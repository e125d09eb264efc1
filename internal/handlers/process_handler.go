package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/services"
)

type ProcessHandler struct {
	processor services.SubmissionProcessor
}

func NewProcessHandler(processor services.SubmissionProcessor) *ProcessHandler {
	return &ProcessHandler{processor: processor}
}

// HandleProcess handles POST /process
func (h *ProcessHandler) HandleProcess(c *fiber.Ctx) error {
	var req models.ProcessRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ProcessResponse{
			Error: "Invalid request payload",
		})
	}

	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ProcessResponse{
			Error: validationMessage(err),
		})
	}

	submissionID, err := uuid.Parse(req.SubmissionID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ProcessResponse{
			Error: "Invalid submissionId format",
		})
	}

	outcome, err := h.processor.Process(c.UserContext(), submissionID)
	if err != nil {
		log.Printf("❌ Failed to process submission %s: %v\n", submissionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ProcessResponse{
			Error: errorMessage(err),
		})
	}

	if outcome.Kind == services.OutcomeInvalid {
		return c.Status(fiber.StatusBadRequest).JSON(models.ProcessResponse{
			Errors: outcome.Errors,
		})
	}

	score := outcome.Score
	return c.JSON(models.ProcessResponse{
		Success: true,
		Score:   &score,
	})
}

// errorMessage exposes the orchestration error class, not internal detail.
func errorMessage(err error) string {
	for _, known := range []error{
		services.ErrSubmissionNotFound,
		services.ErrCompetitionNotFound,
		services.ErrAnswerKeyNotFound,
		services.ErrDownload,
		services.ErrAlreadyProcessed,
		services.ErrPersist,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if errors.Is(err, services.ErrScoring) {
		return err.Error()
	}
	return "internal error"
}
