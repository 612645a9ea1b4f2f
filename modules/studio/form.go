package studio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"veo-studio-server/modules/common/model"
	"veo-studio-server/modules/common/utils"
)

// DefaultFormState - 빈 폼 기본값
func DefaultFormState() FormState {
	return FormState{
		Model:           ModelFast,
		AspectRatio:     AspectLandscape,
		Resolution:      Resolution720p,
		Mode:            ModeTextToVideo,
		ReferenceImages: []*model.ImageFile{},
	}
}

// NewFormState - 스냅샷(수정/재제출)이 있으면 그 값으로, 없으면 기본값으로 초기화
func NewFormState(snapshot *GenerateVideoParams) FormState {
	state := DefaultFormState()
	if snapshot == nil {
		return state
	}

	state.Prompt = snapshot.Prompt
	if snapshot.Model.Valid() {
		state.Model = snapshot.Model
	}
	if snapshot.AspectRatio.Valid() {
		state.AspectRatio = snapshot.AspectRatio
	}
	if snapshot.Resolution.Valid() {
		state.Resolution = snapshot.Resolution
	}
	if snapshot.Mode.Valid() {
		state.Mode = snapshot.Mode
	}
	state.StartFrame = snapshot.StartFrame.Clone()
	state.EndFrame = snapshot.EndFrame.Clone()
	state.StyleImage = snapshot.StyleImage.Clone()
	state.InputVideo = snapshot.InputVideo.Clone()
	state.VideoHandle = snapshot.VideoHandle.Clone()
	state.IsLooping = snapshot.IsLooping

	refs := snapshot.ReferenceImages
	if len(refs) > MaxReferenceImages {
		refs = refs[:MaxReferenceImages]
	}
	state.ReferenceImages = model.CloneImages(refs)

	// 루프와 종료 프레임은 동시에 존재할 수 없음
	if state.IsLooping {
		state.EndFrame = nil
	}

	return applyModeEffects(state)
}

// Reset - 외부 스냅샷이 바뀌면 폼 전체 교체
func Reset(snapshot *GenerateVideoParams) FormState {
	return NewFormState(snapshot)
}

func SetPrompt(state FormState, prompt string) FormState {
	next := state.clone()
	next.Prompt = prompt
	return next
}

func SetModel(state FormState, tier ModelTier) FormState {
	if !tier.Valid() {
		return state
	}
	next := state.clone()
	next.Model = tier
	return next
}

func SetAspectRatio(state FormState, ratio AspectRatio) FormState {
	if !ratio.Valid() {
		return state
	}
	next := state.clone()
	next.AspectRatio = ratio
	return next
}

// SetResolution - 잠긴 상태(extend-video)에서는 무시
func SetResolution(state FormState, resolution Resolution) FormState {
	if IsResolutionLocked(state) || !resolution.Valid() {
		return state
	}
	next := state.clone()
	next.Resolution = resolution
	return next
}

func SetStartFrame(state FormState, frame *model.ImageFile) FormState {
	next := state.clone()
	next.StartFrame = frame
	return next
}

func ClearStartFrame(state FormState) FormState {
	return SetStartFrame(state, nil)
}

// SetEndFrame - 종료 프레임 지정 시 루프 해제
func SetEndFrame(state FormState, frame *model.ImageFile) FormState {
	next := state.clone()
	next.EndFrame = frame
	if frame != nil {
		next.IsLooping = false
	}
	return next
}

func ClearEndFrame(state FormState) FormState {
	return SetEndFrame(state, nil)
}

// SetLooping - 루프 켜면 종료 프레임 제거
func SetLooping(state FormState, looping bool) FormState {
	next := state.clone()
	next.IsLooping = looping
	if looping {
		next.EndFrame = nil
	}
	return next
}

// AddReferenceImage - 3장 꽉 차면 거부 (상태 그대로, false)
func AddReferenceImage(state FormState, image *model.ImageFile) (FormState, bool) {
	if image == nil || len(state.ReferenceImages) >= MaxReferenceImages {
		return state, false
	}
	next := state.clone()
	next.ReferenceImages = append(next.ReferenceImages, image)
	return next, true
}

// RemoveReferenceImage - 인덱스 범위 밖이면 무시
func RemoveReferenceImage(state FormState, index int) FormState {
	if index < 0 || index >= len(state.ReferenceImages) {
		return state
	}
	next := state.clone()
	next.ReferenceImages = append(next.ReferenceImages[:index], next.ReferenceImages[index+1:]...)
	return next
}

func SetStyleImage(state FormState, image *model.ImageFile) FormState {
	next := state.clone()
	next.StyleImage = image
	return next
}

func SetInputVideo(state FormState, video *model.VideoFile) FormState {
	next := state.clone()
	next.InputVideo = video
	return next
}

func ClearInputVideo(state FormState) FormState {
	return SetInputVideo(state, nil)
}

// ReadImageFile - 파일 선택 결과를 ImageFile 로 (실패 시 *FileReadError)
func ReadImageFile(name, mimeType string, r io.Reader) (*model.ImageFile, error) {
	data, mimeType, err := readMedia(name, mimeType, r, "image/")
	if err != nil {
		return nil, err
	}
	return model.NewImageFile(name, mimeType, data), nil
}

// ReadVideoFile - 파일 선택 결과를 VideoFile 로 (실패 시 *FileReadError)
func ReadVideoFile(name, mimeType string, r io.Reader) (*model.VideoFile, error) {
	data, mimeType, err := readMedia(name, mimeType, r, "video/")
	if err != nil {
		return nil, err
	}
	return model.NewVideoFile(name, mimeType, data), nil
}

// ImageFromBase64 - base64 (data URL 허용) 에서 ImageFile 생성
func ImageFromBase64(name, mimeType, encoded string) (*model.ImageFile, error) {
	data, err := utils.DecodeBase64(encoded)
	if err != nil {
		return nil, &FileReadError{Name: name, Err: err}
	}
	return ReadImageFile(name, mimeType, bytes.NewReader(data))
}

// VideoFromBase64 - base64 (data URL 허용) 에서 VideoFile 생성
func VideoFromBase64(name, mimeType, encoded string) (*model.VideoFile, error) {
	data, err := utils.DecodeBase64(encoded)
	if err != nil {
		return nil, &FileReadError{Name: name, Err: err}
	}
	return ReadVideoFile(name, mimeType, bytes.NewReader(data))
}

func readMedia(name, mimeType string, r io.Reader, kind string) ([]byte, string, error) {
	if r == nil {
		return nil, "", &FileReadError{Name: name, Err: errors.New("no file")}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", &FileReadError{Name: name, Err: err}
	}
	if len(data) == 0 {
		return nil, "", &FileReadError{Name: name, Err: errors.New("empty file")}
	}

	mimeType = strings.TrimSpace(strings.ToLower(mimeType))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
		if idx := strings.Index(mimeType, ";"); idx >= 0 {
			mimeType = mimeType[:idx]
		}
	}
	if !strings.HasPrefix(mimeType, kind) {
		return nil, "", &FileReadError{Name: name, Err: fmt.Errorf("unexpected content type %s", mimeType)}
	}
	return data, mimeType, nil
}
