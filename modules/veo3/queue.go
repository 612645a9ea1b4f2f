package veo3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"veo-studio-server/modules/common/logger"
	"veo-studio-server/modules/common/model"
	redisutil "veo-studio-server/modules/common/redis"
	"veo-studio-server/modules/studio"
)

// ErrJobNotFound - 저장된 Job 없음 (만료 포함)
var ErrJobNotFound = errors.New("job not found")

// JobStore - Redis 에 Job 데이터 저장 / 조회
type JobStore struct {
	rdb *redis.Client
}

func NewJobStore(rdb *redis.Client) *JobStore {
	return &JobStore{rdb: rdb}
}

func (s *JobStore) Save(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.JobID, err)
	}
	if err := s.rdb.Set(ctx, jobKey(job.JobID), data, jobTTL).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.JobID, err)
	}
	return nil
}

func (s *JobStore) Load(ctx context.Context, jobID string) (*Job, error) {
	data, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch job %s: %w", jobID, err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

// 동시 수정으로 WATCH 가 깨졌을 때 재시도 횟수
const maxTransitionRetries = 5

// ErrStatusConflict - 상태 전이 시점에 Job 이 기대한 상태가 아님
var ErrStatusConflict = errors.New("job status changed")

// Transition - from 상태일 때만 to 로 바꿔 저장 (WATCH + MULTI 로 compare-and-set)
// 상태가 맞지 않으면 현재 Job 과 ErrStatusConflict 반환
func (s *JobStore) Transition(ctx context.Context, jobID, from, to string, mutate func(*Job)) (*Job, error) {
	key := jobKey(jobID)
	var current *Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("fetch job %s: %w", jobID, err)
		}

		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("unmarshal job %s: %w", jobID, err)
		}
		current = &job
		if job.Status != from {
			return fmt.Errorf("%w: %s is %s, not %s", ErrStatusConflict, jobID, job.Status, from)
		}

		job.Status = to
		job.UpdatedAt = timestamp()
		if mutate != nil {
			mutate(&job)
		}
		payload, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("marshal job %s: %w", jobID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, jobTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return current, err
	}
	return current, fmt.Errorf("update job %s: too many concurrent updates", jobID)
}

// Cancel - 취소 플래그 설정. 아직 처리 전(pending)이면 상태도 cancelled 로
// Worker 가 먼저 가져간 Job 은 현재 상태 그대로 반환
func (s *JobStore) Cancel(ctx context.Context, jobID string) (*Job, error) {
	if _, err := s.Load(ctx, jobID); err != nil {
		return nil, err
	}
	if err := redisutil.SetJobCancelled(ctx, s.rdb, jobID); err != nil {
		return nil, err
	}

	job, err := s.Transition(ctx, jobID, model.StatusPending, model.StatusCancelled, nil)
	if errors.Is(err, ErrStatusConflict) {
		return job, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobStore) IsCancelled(ctx context.Context, jobID string) bool {
	return redisutil.IsJobCancelled(ctx, s.rdb, jobID)
}

// QueueGenerator - 요청을 Redis 큐에 넣고 job id 반환 (Worker 가 Veo 호출)
type QueueGenerator struct {
	rdb   *redis.Client
	store *JobStore
	log   *logger.Logger
}

func NewQueueGenerator(rdb *redis.Client, log *logger.Logger) *QueueGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &QueueGenerator{
		rdb:   rdb,
		store: NewJobStore(rdb),
		log:   log.With("module", "queue"),
	}
}

// Generate - Job 저장 후 LPUSH
func (q *QueueGenerator) Generate(ctx context.Context, params *studio.GenerateVideoParams) (*studio.GenerationResult, error) {
	now := timestamp()
	job := &Job{
		JobID:     uuid.NewString(),
		Params:    *params,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := q.store.Save(ctx, job); err != nil {
		return nil, err
	}

	if err := q.rdb.LPush(ctx, QueueName, job.JobID).Err(); err != nil {
		q.log.Error("❌ [Enqueue] Redis LPUSH failed", "jobId", job.JobID, "error", err)
		return nil, fmt.Errorf("enqueue job %s: %w", job.JobID, err)
	}

	queueLen, _ := q.rdb.LLen(ctx, QueueName).Result()
	q.log.Info("📥 [Enqueue] Job enqueued", "jobId", job.JobID, "requestId", params.RequestID, "position", queueLen)

	return &studio.GenerationResult{
		RequestID: params.RequestID,
		Handle:    job.JobID,
		Backend:   BackendQueue,
		Status:    model.StatusPending,
	}, nil
}
