package veo3

import (
	"time"

	"veo-studio-server/modules/studio"
)

// Redis 키
const (
	QueueName    = "jobs:video"
	jobKeyPrefix = "jobs:video:job:"
	jobTTL       = 24 * time.Hour
)

// Backend 이름
const (
	BackendGenai = "genai"
	BackendQueue = "queue"
)

// Job - 큐에 들어가는 비디오 생성 작업
type Job struct {
	JobID        string                     `json:"jobId"`
	Params       studio.GenerateVideoParams `json:"params"`
	Status       string                     `json:"status"` // "pending", "processing", "submitted", "failed", "cancelled"
	Operation    string                     `json:"operation,omitempty"`
	ErrorMessage string                     `json:"errorMessage,omitempty"`
	CreatedAt    string                     `json:"createdAt"`
	UpdatedAt    string                     `json:"updatedAt"`
}

// JobView - 상태 조회 응답 (에셋 바이너리 제외)
type JobView struct {
	JobID        string                `json:"jobId"`
	RequestID    string                `json:"requestId"`
	Mode         studio.GenerationMode `json:"mode"`
	Status       string                `json:"status"`
	Operation    string                `json:"operation,omitempty"`
	ErrorMessage string                `json:"errorMessage,omitempty"`
	CreatedAt    string                `json:"createdAt"`
	UpdatedAt    string                `json:"updatedAt"`
}

func (j *Job) View() JobView {
	return JobView{
		JobID:        j.JobID,
		RequestID:    j.Params.RequestID,
		Mode:         j.Params.Mode,
		Status:       j.Status,
		Operation:    j.Operation,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}
