package studio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/semaphore"

	"veo-studio-server/modules/common/logger"
	"veo-studio-server/modules/common/model"
)

// 클라이언트 → 서버 이벤트 타입
const (
	EventSelectMode           = "select_mode"
	EventSetPrompt            = "set_prompt"
	EventSetModel             = "set_model"
	EventSetAspectRatio       = "set_aspect_ratio"
	EventSetResolution        = "set_resolution"
	EventSetLooping           = "set_looping"
	EventSetStartFrame        = "set_start_frame"
	EventSetEndFrame          = "set_end_frame"
	EventAddReferenceImage    = "add_reference_image"
	EventRemoveReferenceImage = "remove_reference_image"
	EventSetStyleImage        = "set_style_image"
	EventSetInputVideo        = "set_input_video"
	EventContinueFrom         = "continue_from"
	EventReset                = "reset"
	EventSubmit               = "submit"
)

// 서버 → 클라이언트 메시지 타입
const (
	MessageState     = "state"
	MessageSubmitted = "submitted"
	MessageError     = "error"
)

// AssetPayload - 웹소켓으로 받는 파일 (base64 / data URL)
type AssetPayload struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Base64   string `json:"base64"`
}

// ClientEvent - 폼 필드 이벤트
type ClientEvent struct {
	Type        string               `json:"type"`
	Mode        GenerationMode       `json:"mode,omitempty"`
	Prompt      string               `json:"prompt,omitempty"`
	Model       ModelTier            `json:"model,omitempty"`
	AspectRatio AspectRatio          `json:"aspectRatio,omitempty"`
	Resolution  Resolution           `json:"resolution,omitempty"`
	Looping     bool                 `json:"looping,omitempty"`
	Index       int                  `json:"index,omitempty"`
	Asset       *AssetPayload        `json:"asset,omitempty"`
	Video       *model.VideoHandle   `json:"video,omitempty"`
	Snapshot    *GenerateVideoParams `json:"snapshot,omitempty"`
}

// ServerMessage - 서버 응답
type ServerMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"sessionId,omitempty"`
	State     *FormView         `json:"state,omitempty"`
	Result    *GenerationResult `json:"result,omitempty"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// ApplyEvent - 이벤트 하나를 상태에 적용
// 파일을 읽지 못하면 상태는 그대로 두고 *FileReadError 반환
func ApplyEvent(state FormState, ev ClientEvent) (FormState, error) {
	switch ev.Type {
	case EventSelectMode:
		if !IsSelectable(ev.Mode) {
			return state, fmt.Errorf("mode %q cannot be selected", ev.Mode)
		}
		return SelectMode(state, ev.Mode), nil

	case EventSetPrompt:
		return SetPrompt(state, ev.Prompt), nil

	case EventSetModel:
		return SetModel(state, ev.Model), nil

	case EventSetAspectRatio:
		return SetAspectRatio(state, ev.AspectRatio), nil

	case EventSetResolution:
		return SetResolution(state, ev.Resolution), nil

	case EventSetLooping:
		return SetLooping(state, ev.Looping), nil

	case EventSetStartFrame, EventSetEndFrame, EventAddReferenceImage, EventSetStyleImage:
		if ev.Asset == nil {
			return clearImageField(state, ev.Type), nil
		}
		img, err := ImageFromBase64(ev.Asset.Name, ev.Asset.MIMEType, ev.Asset.Base64)
		if err != nil {
			return state, err
		}
		return setImageField(state, ev.Type, img), nil

	case EventRemoveReferenceImage:
		return RemoveReferenceImage(state, ev.Index), nil

	case EventSetInputVideo:
		if ev.Asset == nil {
			return ClearInputVideo(state), nil
		}
		video, err := VideoFromBase64(ev.Asset.Name, ev.Asset.MIMEType, ev.Asset.Base64)
		if err != nil {
			return state, err
		}
		return SetInputVideo(state, video), nil

	case EventContinueFrom:
		if ev.Video == nil || ev.Video.URI == "" {
			return state, errors.New("continue_from requires a video handle")
		}
		return ContinueFrom(state, *ev.Video), nil

	case EventReset:
		return Reset(ev.Snapshot), nil
	}

	return state, fmt.Errorf("unknown event type %q", ev.Type)
}

func setImageField(state FormState, eventType string, img *model.ImageFile) FormState {
	switch eventType {
	case EventSetStartFrame:
		return SetStartFrame(state, img)
	case EventSetEndFrame:
		return SetEndFrame(state, img)
	case EventAddReferenceImage:
		next, _ := AddReferenceImage(state, img)
		return next
	case EventSetStyleImage:
		return SetStyleImage(state, img)
	}
	return state
}

func clearImageField(state FormState, eventType string) FormState {
	switch eventType {
	case EventSetStartFrame:
		return ClearStartFrame(state)
	case EventSetEndFrame:
		return ClearEndFrame(state)
	case EventSetStyleImage:
		return SetStyleImage(state, nil)
	}
	return state
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 개발용 - 모든 origin 허용
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SessionHandler - GET /ws/video, 연결마다 폼 세션 하나
type SessionHandler struct {
	service      *Service
	registry     *Registry
	maxEventSize int64
	log          *logger.Logger
}

func NewSessionHandler(service *Service, registry *Registry, maxEventSize int64, log *logger.Logger) *SessionHandler {
	if log == nil {
		log = logger.Nop()
	}
	if registry == nil {
		registry = NewRegistry(log)
	}
	return &SessionHandler{service: service, registry: registry, maxEventSize: maxEventSize, log: log}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	session := newSession(conn, h.service, h.registry, h.log)
	if h.maxEventSize > 0 {
		conn.SetReadLimit(h.maxEventSize)
	}
	session.run()
}

// Session - 웹소켓 연결 하나에 묶인 폼
// state 는 readPump 에서만 변경. 제출은 고루틴에서 상태 스냅샷으로 진행
type Session struct {
	id       string
	conn     *websocket.Conn
	service  *Service
	registry *Registry
	log      *logger.Logger

	state    FormState
	inFlight *semaphore.Weighted

	send chan []byte
	done chan struct{}

	mu           sync.Mutex
	cancelSubmit context.CancelFunc
}

func newSession(conn *websocket.Conn, service *Service, registry *Registry, log *logger.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		conn:     conn,
		service:  service,
		registry: registry,
		log:      log.With("module", "session", "sessionId", id),
		state:    DefaultFormState(),
		inFlight: semaphore.NewWeighted(1),
		send:     make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

func (s *Session) run() {
	s.registry.add(s)
	s.log.Info("👤 Form session opened")

	go s.writePump()
	s.readPump()

	close(s.done)
	s.cancelInFlight()
	s.conn.Close()
	s.registry.remove(s.id)
	s.log.Info("👋 Form session closed")
}

// readPump - 이벤트를 하나씩 순서대로 적용
func (s *Session) readPump() {
	s.pushState()

	for {
		var ev ClientEvent
		if err := s.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("WebSocket read error", "error", err)
			}
			return
		}

		if ev.Type == EventSubmit {
			s.submit()
			continue
		}

		next, err := ApplyEvent(s.state, ev)
		if err != nil {
			var readErr *FileReadError
			if errors.As(err, &readErr) {
				s.log.Warn("⚠️ File read failed, field unchanged", "event", ev.Type, "error", err)
			} else {
				s.enqueue(ServerMessage{Type: MessageError, Code: ErrCodeInvalidRequest, Message: err.Error()})
			}
			s.pushState()
			continue
		}

		// 모드 선택(같은 모드 포함)은 폼을 비우므로 조립 중인 제출은 더 이상 유효하지 않음
		if ev.Type == EventSelectMode || ev.Type == EventReset || ev.Type == EventContinueFrom {
			s.cancelInFlight()
		}

		s.state = next
		s.registry.touch(s.id, next.Mode)
		s.pushState()
	}
}

// submit - 세션당 제출 하나만 진행. 진행 중이면 거부
func (s *Session) submit() {
	if !s.inFlight.TryAcquire(1) {
		s.registry.recordSubmit(false)
		s.enqueue(ServerMessage{Type: MessageError, Code: ErrCodeInFlight, Message: ErrSubmissionInFlight.Error()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancelSubmit = cancel
	s.mu.Unlock()

	state := s.state
	go func() {
		defer s.inFlight.Release(1)
		defer cancel()

		result, err := s.service.Submit(ctx, state)
		if err != nil {
			status, code := statusForError(err)
			if errors.Is(err, context.Canceled) {
				code = ErrCodeCancelled
			}
			s.log.Warn("Submission rejected", "status", status, "code", code, "error", err)
			s.registry.recordSubmit(false)
			s.enqueue(ServerMessage{Type: MessageError, Code: code, Message: messageForError(err)})
			return
		}
		s.registry.recordSubmit(true)
		s.enqueue(ServerMessage{Type: MessageSubmitted, SessionID: s.id, Result: result})
	}()
}

func (s *Session) cancelInFlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelSubmit != nil {
		s.cancelSubmit()
		s.cancelSubmit = nil
	}
}

func (s *Session) pushState() {
	view := NewFormView(s.state)
	s.enqueue(ServerMessage{Type: MessageState, SessionID: s.id, State: &view})
}

func (s *Session) enqueue(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("Error marshaling message", "error", err)
		return
	}
	select {
	case s.send <- data:
	case <-s.done:
	}
}

// writePump - conn 쓰기는 여기서만
func (s *Session) writePump() {
	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Warn("WebSocket write error", "error", err)
				return
			}
		case <-s.done:
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
