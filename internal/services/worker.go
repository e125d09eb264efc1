package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/competition-scorer/internal/repositories"
)

const pendingBatchSize = 10

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(submissionID uuid.UUID) bool
}

type WorkerConfig struct {
	Concurrency  int
	QueueSize    int
	PollInterval time.Duration
}

type worker struct {
	submissionRepo repositories.SubmissionRepository
	processor      SubmissionProcessor
	telemetry      *Telemetry
	jobQueue       chan uuid.UUID
	concurrency    int
	pollInterval   time.Duration
	wg             sync.WaitGroup
	stopChan       chan struct{}
	stopOnce       sync.Once

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}

	// cursor is only touched by the poller goroutine.
	cursor *repositories.PendingCursor
}

func NewWorker(
	submissionRepo repositories.SubmissionRepository,
	processor SubmissionProcessor,
	cfg WorkerConfig,
	telemetry *Telemetry,
) Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}

	return &worker{
		submissionRepo: submissionRepo,
		processor:      processor,
		telemetry:      telemetry,
		jobQueue:       make(chan uuid.UUID, cfg.QueueSize),
		concurrency:    cfg.Concurrency,
		pollInterval:   cfg.PollInterval,
		stopChan:       make(chan struct{}),
		inflight:       make(map[uuid.UUID]struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	log.Printf("🚀 Starting worker with %d concurrent workers\n", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingSubmissions(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		log.Println("🛑 Stopping worker...")
		close(w.stopChan)
		w.wg.Wait()
		log.Println("✅ Worker stopped")
	})
}

// EnqueueJob implements Worker. It never blocks: a full queue or an id that is
// already queued or running is skipped and left for the poller.
func (w *worker) EnqueueJob(submissionID uuid.UUID) bool {
	select {
	case <-w.stopChan:
		log.Printf("⚠️  Worker stopped, cannot enqueue submission %s\n", submissionID)
		return false
	default:
	}

	w.mu.Lock()
	if _, busy := w.inflight[submissionID]; busy {
		w.mu.Unlock()
		return false
	}
	w.inflight[submissionID] = struct{}{}
	w.mu.Unlock()

	select {
	case w.jobQueue <- submissionID:
		w.telemetry.SetQueueDepth(len(w.jobQueue))
		log.Printf("📥 Submission %s enqueued\n", submissionID)
		return true
	default:
		w.release(submissionID)
		log.Printf("⚠️  Queue full, submission %s left for the poller\n", submissionID)
		return false
	}
}

func (w *worker) release(submissionID uuid.UUID) {
	w.mu.Lock()
	delete(w.inflight, submissionID)
	w.mu.Unlock()
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			log.Printf("👷 Worker #%d stopped\n", workerID)
			return
		case <-ctx.Done():
			log.Printf("👷 Worker #%d stopped: %v\n", workerID, ctx.Err())
			return
		case submissionID := <-w.jobQueue:
			w.telemetry.SetQueueDepth(len(w.jobQueue))
			log.Printf("👷 Worker #%d processing submission %s\n", workerID, submissionID)

			if _, err := w.processor.Process(ctx, submissionID); err != nil {
				log.Printf("❌ Worker #%d failed to process submission %s: %v\n", workerID, submissionID, err)
			} else {
				log.Printf("✅ Worker #%d completed submission %s\n", workerID, submissionID)
			}
			w.release(submissionID)
		}
	}
}

// pollPendingSubmissions re-enqueues submissions still pending after one poll
// interval, which covers failed runs and events that were never delivered.
func (w *worker) pollPendingSubmissions(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			log.Println("🔄 Pending submissions poller stopped")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.enqueuePending(ctx)
		}
	}
}

func (w *worker) enqueuePending(ctx context.Context) int {
	pending, err := w.submissionRepo.FindPending(ctx, time.Now().Add(-w.pollInterval), w.cursor, pendingBatchSize)
	if err != nil {
		log.Printf("⚠️  Failed to fetch pending submissions: %v\n", err)
		return 0
	}

	// Page through the backlog so rows that keep failing cannot hold every
	// batch; a short page means the end was reached and the next scan restarts.
	if len(pending) < pendingBatchSize {
		w.cursor = nil
	} else {
		w.cursor = repositories.CursorAfter(pending[len(pending)-1])
	}

	if len(pending) > 0 {
		log.Printf("📋 Found %d pending submissions\n", len(pending))
	}

	enqueued := 0
	for _, submission := range pending {
		if w.EnqueueJob(submission.ID) {
			enqueued++
		}
	}
	return enqueued
}
