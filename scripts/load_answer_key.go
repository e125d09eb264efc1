package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"alfredoptarigan/competition-scorer/internal/config"
	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/repositories"
	"alfredoptarigan/competition-scorer/internal/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		competitionID string
		name          string
		metric        string
		phase         string
		file          string
	)

	cmd := &cobra.Command{
		Use:   "load-answer-key",
		Short: "Register a competition answer key",
		Long:  "Validate an answer-key CSV against itself, copy it into the answer-keys bucket and point the competition phase at it. Creates the competition when --competition-id is omitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("🚀 Loading answer key...")

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading answer key: %w", err)
			}

			cfg := config.Load()
			db, err := config.InitDatabase(cfg)
			if err != nil {
				return err
			}

			store := services.NewDiskObjectStore(cfg.Storage.Root)
			if err := store.EnsureBuckets(cfg.Storage.AnswerKeysBucket); err != nil {
				return err
			}

			competitionRepo := repositories.NewCompetitionRepository(db)
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			var id uuid.UUID
			if competitionID != "" {
				if id, err = uuid.Parse(competitionID); err != nil {
					return fmt.Errorf("invalid --competition-id: %w", err)
				}
			} else {
				if name == "" {
					return fmt.Errorf("--name is required when creating a competition")
				}
				if _, err := services.CheckAnswerKey(raw, models.ScoringMetric(metric)); err != nil {
					return err
				}
				competition := &models.Competition{
					ID:            uuid.New(),
					Name:          name,
					ScoringMetric: models.ScoringMetric(metric),
					CreatedAt:     time.Now(),
					UpdatedAt:     time.Now(),
				}
				if err := competitionRepo.Create(ctx, competition); err != nil {
					return err
				}
				id = competition.ID
				log.Printf("   ✅ Created competition %s (%s)", id, metric)
			}

			registrar := services.NewAnswerKeyRegistrar(competitionRepo, store, cfg.Storage.AnswerKeysBucket)
			dataset, err := registrar.Register(ctx, id, models.Phase(phase), raw)
			if err != nil {
				log.Printf("   ❌ Failed to register answer key: %v", err)
				return err
			}

			log.Printf("✅ Answer key for %s/%s stored at %s/%s", id, dataset.Phase, cfg.Storage.AnswerKeysBucket, dataset.FilePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&competitionID, "competition-id", "", "existing competition id")
	cmd.Flags().StringVar(&name, "name", "", "name of the competition to create")
	cmd.Flags().StringVar(&metric, "metric", string(models.MetricF1Score), "scoring metric: f1_score, accuracy, precision, recall, mae, rmse")
	cmd.Flags().StringVar(&phase, "phase", string(models.PhasePublic), "phase: public or private")
	cmd.Flags().StringVar(&file, "file", "", "answer-key CSV path")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
