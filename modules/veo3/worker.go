package veo3

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	"veo-studio-server/modules/common/logger"
	"veo-studio-server/modules/common/model"
	"veo-studio-server/modules/studio"
)

const (
	defaultPollTimeout = 5 * time.Second
	retryDelay         = 5 * time.Second
)

// Worker - jobs:video 큐를 감시하면서 Job 을 Generator 에 넘김
type Worker struct {
	rdb         *redis.Client
	store       *JobStore
	generator   studio.Generator
	slots       *semaphore.Weighted
	concurrency int64
	pollTimeout time.Duration
	log         *logger.Logger

	beforeClaim func(jobID string) // 테스트용: 취소 확인과 processing 전이 사이
}

func NewWorker(rdb *redis.Client, generator studio.Generator, concurrency int64, log *logger.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		rdb:         rdb,
		store:       NewJobStore(rdb),
		generator:   generator,
		slots:       semaphore.NewWeighted(concurrency),
		concurrency: concurrency,
		pollTimeout: defaultPollTimeout,
		log:         log.With("module", "worker"),
	}
}

// Start - ctx 가 끝날 때까지 BRPOP. 진행 중인 Job 이 끝날 때까지 기다린 뒤 반환
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("👀 Watching queue", "queue", QueueName)

	for {
		if ctx.Err() != nil {
			break
		}

		// 처리 슬롯 확보 후 pop (꺼낸 Job 은 반드시 처리)
		if err := w.slots.Acquire(ctx, 1); err != nil {
			break
		}

		result, err := w.rdb.BRPop(ctx, w.pollTimeout, QueueName).Result()
		if err != nil {
			w.slots.Release(1)
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			w.log.Error("❌ Redis BRPOP error", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}

		// result[0] = 큐 이름, result[1] = job id
		jobID := result[1]
		w.log.Info("🎯 Received new job", "jobId", jobID)

		go func() {
			defer w.slots.Release(1)
			w.ProcessJob(context.WithoutCancel(ctx), jobID)
		}()
	}

	// 남은 Job 대기
	_ = w.slots.Acquire(context.Background(), w.concurrency)
	w.slots.Release(w.concurrency)
	w.log.Info("🛑 Worker stopped")
}

// ProcessJob - Job 하나 처리: 취소 확인 → processing (CAS) → Generate → submitted / failed
func (w *Worker) ProcessJob(ctx context.Context, jobID string) {
	job, err := w.store.Load(ctx, jobID)
	if err != nil {
		w.log.Error("❌ Failed to fetch job", "jobId", jobID, "error", err)
		return
	}

	if job.Status != model.StatusPending {
		w.log.Info("⏭️ Job not pending, skipping", "jobId", jobID, "status", job.Status)
		return
	}

	if w.store.IsCancelled(ctx, jobID) {
		w.log.Info("🛑 Job cancelled before processing", "jobId", jobID)
		if _, err := w.store.Transition(ctx, jobID, model.StatusPending, model.StatusCancelled, nil); err != nil && !errors.Is(err, ErrStatusConflict) {
			w.log.Error("❌ Failed to mark job cancelled", "jobId", jobID, "error", err)
		}
		return
	}

	if w.beforeClaim != nil {
		w.beforeClaim(jobID)
	}

	// pending → processing 은 CAS. 그 사이 취소됐으면 Veo 호출 안 함
	job, err = w.store.Transition(ctx, jobID, model.StatusPending, model.StatusProcessing, nil)
	if errors.Is(err, ErrStatusConflict) {
		w.log.Info("🛑 Job changed before processing, skipping", "jobId", jobID, "status", job.Status)
		return
	}
	if err != nil {
		w.log.Error("❌ Failed to mark job processing", "jobId", jobID, "error", err)
		return
	}

	w.log.Info("🚀 Processing job", "jobId", jobID, "requestId", job.Params.RequestID, "mode", job.Params.Mode)

	result, err := w.generator.Generate(ctx, &job.Params)
	if err != nil {
		w.log.Error("❌ Job failed", "jobId", jobID, "error", err)
		message := err.Error()
		if _, err := w.store.Transition(ctx, jobID, model.StatusProcessing, model.StatusFailed, func(j *Job) { j.ErrorMessage = message }); err != nil {
			w.log.Error("❌ Failed to store job failure", "jobId", jobID, "error", err)
		}
		return
	}

	if _, err := w.store.Transition(ctx, jobID, model.StatusProcessing, model.StatusSubmitted, func(j *Job) { j.Operation = result.Handle }); err != nil {
		w.log.Error("❌ Failed to store job result", "jobId", jobID, "error", err)
		return
	}
	w.log.Info("✅ Job submitted to Veo", "jobId", jobID, "operation", result.Handle)
}
