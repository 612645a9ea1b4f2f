package studio

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"veo-studio-server/modules/common/logger"
	"veo-studio-server/modules/common/model"
)

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeInFlight         = "SUBMISSION_IN_FLIGHT"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
	ErrCodeCancelled        = "SUBMISSION_CANCELLED"
)

// GenerateResponse - /api/video/generate 응답
type GenerateResponse struct {
	Success      bool   `json:"success"`
	RequestID    string `json:"requestId,omitempty"`
	Handle       string `json:"handle,omitempty"`
	Backend      string `json:"backend,omitempty"`
	Status       string `json:"status,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
}

type Handler struct {
	service        *Service
	maxUploadBytes int64
	log            *logger.Logger
}

func NewHandler(service *Service, maxUploadBytes int64, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 64 << 20
	}
	return &Handler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		log:            log.With("module", "handler"),
	}
}

// HandleModes - GET /api/video/modes
func (h *Handler) HandleModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"modes":               ModeInfos(),
		"maxReferenceImages":  MaxReferenceImages,
		"characterSwapPrompt": CharacterSwapPrompt,
	})
}

// HandleGenerate - POST /api/video/generate (multipart)
// 폼 필드로 FormState 를 만든 뒤 Submit. 읽지 못한 파일은 로그만 남기고 건너뜀
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.log.Warn("❌ Invalid multipart form", "error", err)
		writeJSON(w, http.StatusBadRequest, GenerateResponse{
			ErrorMessage: "Invalid multipart form",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}

	state, err := h.buildState(r.MultipartForm)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, GenerateResponse{
			ErrorMessage: err.Error(),
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}

	result, err := h.service.Submit(r.Context(), state)
	if err != nil {
		status, code := statusForError(err)
		writeJSON(w, status, GenerateResponse{
			ErrorMessage: messageForError(err),
			ErrorCode:    code,
		})
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Success:   true,
		RequestID: result.RequestID,
		Handle:    result.Handle,
		Backend:   result.Backend,
		Status:    result.Status,
	})
}

// buildState - 폼 입력을 폼 조작 함수 순서대로 적용 (모드 → 필드 → 파일)
func (h *Handler) buildState(form *multipart.Form) (FormState, error) {
	state := DefaultFormState()

	mode := GenerationMode(strings.TrimSpace(firstValue(form, "mode")))
	videoURI := strings.TrimSpace(firstValue(form, "videoUri"))

	switch {
	case mode == "" || mode == ModeTextToVideo:
		// 기본 모드
	case mode == ModeExtendVideo:
		if videoURI == "" {
			return state, errors.New("videoUri is required to extend a video")
		}
		state = ContinueFrom(state, model.VideoHandle{URI: videoURI, MIMEType: firstValue(form, "videoMimeType")})
	case IsSelectable(mode):
		state = SelectMode(state, mode)
	default:
		return state, errors.New("invalid mode: " + string(mode))
	}

	if values, ok := form.Value["prompt"]; ok && len(values) > 0 {
		state = SetPrompt(state, values[0])
	}
	if v := firstValue(form, "model"); v != "" {
		state = SetModel(state, ModelTier(v))
	}
	if v := firstValue(form, "aspectRatio"); v != "" {
		state = SetAspectRatio(state, AspectRatio(v))
	}
	if v := firstValue(form, "resolution"); v != "" {
		state = SetResolution(state, Resolution(v))
	}

	if img := h.readImage(form, "startFrame"); img != nil {
		state = SetStartFrame(state, img)
	}
	if img := h.readImage(form, "endFrame"); img != nil {
		state = SetEndFrame(state, img)
	}
	if v := firstValue(form, "isLooping"); v != "" {
		if looping, err := strconv.ParseBool(v); err == nil {
			state = SetLooping(state, looping)
		}
	}
	for _, fh := range form.File["referenceImages"] {
		img := h.readImageHeader(fh)
		if img == nil {
			continue
		}
		var added bool
		if state, added = AddReferenceImage(state, img); !added {
			h.log.Warn("⚠️ Reference image limit reached, ignoring file", "file", fh.Filename)
		}
	}
	if img := h.readImage(form, "styleImage"); img != nil {
		state = SetStyleImage(state, img)
	}
	if files := form.File["inputVideo"]; len(files) > 0 {
		if video := h.readVideoHeader(files[0]); video != nil {
			state = SetInputVideo(state, video)
		}
	}

	return state, nil
}

func (h *Handler) readImage(form *multipart.Form, field string) *model.ImageFile {
	files := form.File[field]
	if len(files) == 0 {
		return nil
	}
	return h.readImageHeader(files[0])
}

func (h *Handler) readImageHeader(fh *multipart.FileHeader) *model.ImageFile {
	f, err := fh.Open()
	if err != nil {
		h.log.Warn("⚠️ Cannot open uploaded file", "file", fh.Filename, "error", err)
		return nil
	}
	defer f.Close()

	img, err := ReadImageFile(fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		h.log.Warn("⚠️ Ignoring unreadable image", "file", fh.Filename, "error", err)
		return nil
	}
	return img
}

func (h *Handler) readVideoHeader(fh *multipart.FileHeader) *model.VideoFile {
	f, err := fh.Open()
	if err != nil {
		h.log.Warn("⚠️ Cannot open uploaded file", "file", fh.Filename, "error", err)
		return nil
	}
	defer f.Close()

	video, err := ReadVideoFile(fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		h.log.Warn("⚠️ Ignoring unreadable video", "file", fh.Filename, "error", err)
		return nil
	}
	return video
}

func firstValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func statusForError(err error) (int, string) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrCodeValidationFailed
	case errors.Is(err, ErrSubmissionInFlight):
		return http.StatusConflict, ErrCodeInFlight
	default:
		return http.StatusBadGateway, ErrCodeGenerationFailed
	}
}

func messageForError(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Reason
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
