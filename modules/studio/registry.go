package studio

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"veo-studio-server/modules/common/logger"
)

// 비활성 세션 기준
const (
	DefaultIdleTimeout   = 2 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// ServerMetrics - 폼 세션 / 제출 카운터
type ServerMetrics struct {
	TotalSessions    int       `json:"totalSessions"`
	ActiveSessions   int       `json:"activeSessions"`
	TotalSubmissions int       `json:"totalSubmissions"`
	RejectedSubmits  int       `json:"rejectedSubmissions"`
	StartTime        time.Time `json:"startTime"`
}

// SessionInfo - 세션 조회 응답
type SessionInfo struct {
	SessionID    string         `json:"sessionId"`
	Mode         GenerationMode `json:"mode"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastActivity time.Time      `json:"lastActivity"`
	Age          string         `json:"age"`
	Inactive     string         `json:"inactive"`
}

type registryEntry struct {
	session      *Session
	mode         GenerationMode
	createdAt    time.Time
	lastActivity time.Time
}

// Registry - 열린 폼 세션 관리 + 메트릭
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*registryEntry
	metrics  ServerMetrics
	now      func() time.Time
	log      *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		sessions: make(map[string]*registryEntry),
		metrics:  ServerMetrics{StartTime: time.Now()},
		now:      time.Now,
		log:      log.With("module", "registry"),
	}
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sessions[s.id] = &registryEntry{session: s, mode: s.state.Mode, createdAt: now, lastActivity: now}
	r.metrics.TotalSessions++
	r.metrics.ActiveSessions++

	r.log.Info("✅ Session registered", "sessionId", s.id, "active", r.metrics.ActiveSessions)
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	r.metrics.ActiveSessions--
}

// touch - 이벤트 처리 시 활동 시간 + 현재 모드 갱신
func (r *Registry) touch(id string, mode GenerationMode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		e.lastActivity = r.now()
		e.mode = mode
	}
}

func (r *Registry) recordSubmit(accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if accepted {
		r.metrics.TotalSubmissions++
	} else {
		r.metrics.RejectedSubmits++
	}
}

// Metrics - 현재 카운터 스냅샷
func (r *Registry) Metrics() ServerMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics
}

// Lookup - 세션 정보 조회
func (r *Registry) Lookup(id string) (SessionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[id]
	if !ok {
		return SessionInfo{}, false
	}
	return r.info(id, e), true
}

func (r *Registry) info(id string, e *registryEntry) SessionInfo {
	now := r.now()
	return SessionInfo{
		SessionID:    id,
		Mode:         e.mode,
		CreatedAt:    e.createdAt,
		LastActivity: e.lastActivity,
		Age:          now.Sub(e.createdAt).String(),
		Inactive:     now.Sub(e.lastActivity).String(),
	}
}

// CloseIdle - idle 보다 오래 조용한 세션의 연결을 끊음. 끊은 개수 반환
func (r *Registry) CloseIdle(idle time.Duration) int {
	r.mu.RLock()
	now := r.now()
	var stale []*Session
	for _, e := range r.sessions {
		if now.Sub(e.lastActivity) > idle {
			stale = append(stale, e.session)
		}
	}
	r.mu.RUnlock()

	// 연결을 닫으면 readPump 가 끝나면서 remove 호출
	for _, s := range stale {
		r.log.Info("⏰ Closing inactive session", "sessionId", s.id)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	}
	if len(stale) > 0 {
		r.log.Info("🧼 Closed inactive sessions", "count", len(stale))
	}
	return len(stale)
}

// StartCleanup - ctx 가 끝날 때까지 주기적으로 CloseIdle
func (r *Registry) StartCleanup(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.CloseIdle(idle)
			}
		}
	}()

	r.log.Info("🔄 Started session cleanup routine", "interval", interval.String(), "idle", idle.String())
}

// RegisterRoutes - GET /metrics, GET /session/{sessionId}
func (r *Registry) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/metrics", r.HandleMetrics).Methods("GET")
	router.HandleFunc("/session/{sessionId}", r.HandleSessionInfo).Methods("GET")
}

func (r *Registry) HandleMetrics(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	metrics := r.metrics
	sessions := make([]SessionInfo, 0, len(r.sessions))
	for id, e := range r.sessions {
		sessions = append(sessions, r.info(id, e))
	}
	r.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"server": map[string]interface{}{
			"uptime":              time.Since(metrics.StartTime).String(),
			"startTime":           metrics.StartTime,
			"totalSessions":       metrics.TotalSessions,
			"activeSessions":      metrics.ActiveSessions,
			"totalSubmissions":    metrics.TotalSubmissions,
			"rejectedSubmissions": metrics.RejectedSubmits,
		},
		"sessions": sessions,
	})
}

func (r *Registry) HandleSessionInfo(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["sessionId"]
	info, ok := r.Lookup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		return
	}
	writeJSON(w, http.StatusOK, info)
}
