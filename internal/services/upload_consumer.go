package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"alfredoptarigan/competition-scorer/internal/models"
)

var validate = validator.New()

type UploadConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// Enqueuer accepts submission ids for background processing.
type Enqueuer interface {
	EnqueueJob(submissionID uuid.UUID) bool
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// UploadEventConsumer reads upload-completion events from Kafka and hands the
// submission ids to the worker.
type UploadEventConsumer struct {
	reader   messageReader
	enqueuer Enqueuer
	topic    string
	poll     time.Duration
}

func NewUploadEventConsumer(cfg UploadConsumerConfig, enqueuer Enqueuer) (*UploadEventConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("upload topic must not be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("consumer group must not be empty")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})

	return newUploadEventConsumer(reader, enqueuer, cfg.Topic, cfg.PollTimeout), nil
}

func newUploadEventConsumer(reader messageReader, enqueuer Enqueuer, topic string, poll time.Duration) *UploadEventConsumer {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &UploadEventConsumer{reader: reader, enqueuer: enqueuer, topic: topic, poll: poll}
}

func (c *UploadEventConsumer) Close() error {
	return c.reader.Close()
}

// Run consumes until ctx is cancelled or the reader is closed. Every fetched
// message is committed, including malformed ones; the pending poller picks up
// submissions whose event was skipped.
func (c *UploadEventConsumer) Run(ctx context.Context) error {
	log.Printf("📡 Consuming upload events from %s\n", c.topic)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.poll)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, kafka.ErrGroupClosed) {
				return nil
			}
			log.Printf("❌ Failed to fetch upload event: %v\n", err)
			continue
		}

		submissionID, err := decodeUploadEvent(msg.Value)
		if err != nil {
			log.Printf("⚠️  Skipping upload event at offset %d: %v\n", msg.Offset, err)
		} else {
			c.enqueuer.EnqueueJob(submissionID)
		}

		commitCtx, commitCancel := context.WithTimeout(ctx, c.poll)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
				log.Printf("❌ Failed to commit upload event: %v\n", err)
			}
		}
		commitCancel()
	}
}

func decodeUploadEvent(raw []byte) (uuid.UUID, error) {
	var event models.ProcessRequest
	if err := json.Unmarshal(raw, &event); err != nil {
		return uuid.Nil, fmt.Errorf("decode upload event: %w", err)
	}
	if err := validate.Struct(event); err != nil {
		return uuid.Nil, fmt.Errorf("invalid upload event: %w", err)
	}
	return uuid.Parse(event.SubmissionID)
}
