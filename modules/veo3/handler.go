package veo3

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"veo-studio-server/modules/common/logger"
)

// JobHandler - 큐 Job 상태 조회 / 취소
type JobHandler struct {
	store *JobStore
	log   *logger.Logger
}

func NewJobHandler(store *JobStore, log *logger.Logger) *JobHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &JobHandler{store: store, log: log.With("module", "jobs")}
}

// RegisterRoutes - 라우트 등록
func (h *JobHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/video/jobs/{jobId}", h.GetJobStatus).Methods("GET")
	r.HandleFunc("/api/video/jobs/{jobId}/cancel", h.CancelJob).Methods("POST", "OPTIONS")
}

// GetJobStatus - GET /api/video/jobs/{jobId}
func (h *JobHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.store.Load(r.Context(), jobID)
	if err != nil {
		h.writeError(w, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}

// CancelJob - POST /api/video/jobs/{jobId}/cancel
// 이미 Veo 로 넘어간 Job 은 플래그만 남고 상태는 그대로
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := mux.Vars(r)["jobId"]
	h.log.Info("🛑 Cancel requested", "jobId", jobID)

	job, err := h.store.Cancel(r.Context(), jobID)
	if err != nil {
		h.writeError(w, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}

func (h *JobHandler) writeError(w http.ResponseWriter, jobID string, err error) {
	if errors.Is(err, ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found"})
		return
	}
	h.log.Error("❌ Job lookup failed", "jobId", jobID, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
