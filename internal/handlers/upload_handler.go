package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/repositories"
	"alfredoptarigan/competition-scorer/internal/services"
)

type UploadHandler struct {
	submissionRepo  repositories.SubmissionRepository
	competitionRepo repositories.CompetitionRepository
	store           services.ObjectStore
	bucket          string
	maxFileSize     int64
	worker          services.Enqueuer
}

func NewUploadHandler(
	submissionRepo repositories.SubmissionRepository,
	competitionRepo repositories.CompetitionRepository,
	store services.ObjectStore,
	bucket string,
	maxFileSize int64,
	worker services.Enqueuer,
) *UploadHandler {
	return &UploadHandler{
		submissionRepo:  submissionRepo,
		competitionRepo: competitionRepo,
		store:           store,
		bucket:          bucket,
		maxFileSize:     maxFileSize,
		worker:          worker,
	}
}

// HandleUpload handles POST /submissions
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	var req models.UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validationMessage(err),
		})
	}

	competitionID := uuid.MustParse(req.CompetitionID)
	if _, err := h.competitionRepo.FindByID(c.UserContext(), competitionID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Competition not found",
			})
		}
		log.Printf("❌ Failed to load competition %s: %v\n", competitionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load competition",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No submission file uploaded. Please upload a CSV as 'file'.",
		})
	}

	if file.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Submission file too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	objectPath, err := services.CSVObjectPath(competitionID.String(), file.Filename)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to open uploaded file",
		})
	}
	defer src.Close()

	if err := h.store.Upload(c.UserContext(), h.bucket, objectPath, src); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save submission file: %v", err),
		})
	}

	submission := models.Submission{
		ID:               uuid.New(),
		CompetitionID:    competitionID,
		Phase:            models.Phase(req.Phase),
		FilePath:         objectPath,
		OriginalFilename: file.Filename,
		ValidationStatus: models.StatusPending,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if req.TeamID != "" {
		teamID := req.TeamID
		submission.TeamID = &teamID
	}

	if err := h.submissionRepo.Create(c.UserContext(), &submission); err != nil {
		// Cleanup uploaded file if database insert fails
		if delErr := h.store.Delete(c.UserContext(), h.bucket, objectPath); delErr != nil {
			log.Printf("⚠️  Failed to remove orphaned upload %s: %v\n", objectPath, delErr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save submission record",
		})
	}

	h.worker.EnqueueJob(submission.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.UploadResponse{
		ID:               submission.ID.String(),
		Filename:         objectPath,
		OriginalName:     file.Filename,
		ValidationStatus: string(submission.ValidationStatus),
	})
}
