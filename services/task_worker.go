package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/queue"
	"medpipe_backend/repository"
)

// TaskRunner maps a task kind to the engine that handles it.
type TaskRunner struct {
	docRepo      repository.DocumentRepository
	summarizer   *SummarizationService
	anonymizer   *AnonymizationService
	patientCards *PatientSummaryService
	indexer      *IndexLifecycleService
}

func NewTaskRunner(
	docRepo repository.DocumentRepository,
	summarizer *SummarizationService,
	anonymizer *AnonymizationService,
	patientCards *PatientSummaryService,
	indexer *IndexLifecycleService) *TaskRunner {
	return &TaskRunner{
		docRepo:      docRepo,
		summarizer:   summarizer,
		anonymizer:   anonymizer,
		patientCards: patientCards,
		indexer:      indexer,
	}
}

func (r *TaskRunner) Run(ctx context.Context, task *models.Task) error {
	switch task.Kind {
	case models.TaskSummarizeDocument, models.TaskTimelineTranscript:
		doc, err := r.docRepo.GetByID(ctx, task.EntityID)
		if err != nil {
			return err
		}
		if task.Kind == models.TaskTimelineTranscript {
			r.summarizer.TimelineAndTranscript(ctx, summaryRequestFor(doc, TaskTimeline))
			return nil
		}
		t, ok := ParseSummarizationTask(task.Payload["task"])
		if !ok {
			return fmt.Errorf("summarization task %q: %w", task.Payload["task"], models.ErrInvalidInput)
		}
		r.summarizer.Summarize(ctx, summaryRequestFor(doc, t))
		return nil
	case models.TaskAnonymizeDocument:
		_, err := r.anonymizer.RunClaimed(ctx, task.EntityID)
		return err
	case models.TaskAnonymizePatient:
		n, err := r.anonymizer.AnonymizePending(ctx, task.EntityID)
		logging.Logger.Info("pending documents anonymized", "patientID", task.EntityID, "count", n)
		return err
	case models.TaskPatientSummary:
		return r.patientCards.RunSummary(ctx, task.EntityID)
	case models.TaskIndexDocument:
		return r.indexer.IndexDocument(ctx, task.EntityID)
	default:
		return fmt.Errorf("task kind %q: %w", task.Kind, models.ErrInvalidInput)
	}
}

// QueueDispatcher pushes tasks to the redis queue for the worker.
type QueueDispatcher struct {
	queue *queue.TaskQueue
}

func NewQueueDispatcher(q *queue.TaskQueue) *QueueDispatcher {
	return &QueueDispatcher{queue: q}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, task *models.Task) error {
	if err := d.queue.Enqueue(ctx, task); err != nil {
		logging.Logger.Error("fail Dispatch", "error", err, "task", task.Key())
		return err
	}
	return nil
}

// InlineDispatcher runs every task in its own goroutine in this process.
type InlineDispatcher struct {
	runner *TaskRunner
	wg     sync.WaitGroup
}

func NewInlineDispatcher(runner *TaskRunner) *InlineDispatcher {
	return &InlineDispatcher{runner: runner}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, task *models.Task) error {
	if task.Kind == "" || task.EntityID == "" {
		return fmt.Errorf("task without entity or kind: %w", models.ErrInvalidInput)
	}
	bg := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.runner.Run(bg, task); err != nil {
			logging.Logger.Error("fail task", "error", err, "task", task.Key())
		}
	}()
	return nil
}

// Wait blocks until every dispatched task returned.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}

// TaskWorker pulls tasks from redis and runs up to concurrency of them at once.
// Stopping the worker stops pulling; running tasks are not cancelled.
type TaskWorker struct {
	queue        *queue.TaskQueue
	runner       *TaskRunner
	sem          chan struct{}
	wg           sync.WaitGroup
	pollWait     time.Duration
	requeueDelay time.Duration
}

func NewTaskWorker(q *queue.TaskQueue, runner *TaskRunner, concurrency int) *TaskWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &TaskWorker{
		queue:        q,
		runner:       runner,
		sem:          make(chan struct{}, concurrency),
		pollWait:     5 * time.Second,
		requeueDelay: 10 * time.Second,
	}
}

func (w *TaskWorker) Start(ctx context.Context) {
	logging.Logger.Info("task worker started", "concurrency", cap(w.sem))
	for {
		select {
		case <-ctx.Done():
			logging.Logger.Info("task worker stopped pulling")
			return
		case w.sem <- struct{}{}:
		}

		task, err := w.queue.Dequeue(ctx, w.pollWait)
		if err != nil {
			<-w.sem
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logging.Logger.Error("fail Dequeue", "error", err)
			time.Sleep(time.Second)
			continue
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.handle(context.WithoutCancel(ctx), task)
		}()
	}
}

func (w *TaskWorker) handle(ctx context.Context, task *models.Task) {
	locked, err := w.queue.Lock(ctx, task)
	if err != nil {
		logging.Logger.Warn("fail task lock, running anyway", "error", err, "task", task.Key())
	} else if !locked {
		if ownsClaim(task.Kind) {
			logging.Logger.Warn("task already running, requeued", "task", task.Key(), "after", w.requeueDelay)
			w.requeue(task)
			return
		}
		logging.Logger.Warn("task already running, skipped", "task", task.Key())
		return
	} else {
		defer func() {
			if err := w.queue.Unlock(ctx, task); err != nil {
				logging.Logger.Warn("fail task unlock", "error", err, "task", task.Key())
			}
		}()
	}

	start := time.Now()
	if err := w.runner.Run(ctx, task); err != nil {
		logging.Logger.Error("fail task", "error", err, "task", task.Key(), "elapsed", time.Since(start))
		return
	}
	logging.Logger.Info("task done", "task", task.Key(), "elapsed", time.Since(start))
}

// ownsClaim reports whether the task was dispatched after an inProcess claim.
// Dropping such a task would leave the entity inProcess for good.
func ownsClaim(kind models.TaskKind) bool {
	return kind == models.TaskAnonymizeDocument || kind == models.TaskPatientSummary
}

func (w *TaskWorker) requeue(task *models.Task) {
	w.wg.Add(1)
	time.AfterFunc(w.requeueDelay, func() {
		defer w.wg.Done()
		if err := w.queue.Enqueue(context.Background(), task); err != nil {
			logging.Logger.Error("fail requeue", "error", err, "task", task.Key())
		}
	})
}

// Wait blocks until the running tasks returned.
func (w *TaskWorker) Wait() {
	w.wg.Wait()
}
