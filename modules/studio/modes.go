package studio

import "veo-studio-server/modules/common/model"

// CharacterSwapPrompt - character-swap 모드 진입 시 고정 프롬프트
const CharacterSwapPrompt = "Replace the performer in the source video with the person shown in the identity reference image. " +
	"Keep the original motion, timing, camera movement, facial expressions and lip-sync of the source performance exactly. " +
	"Preserve the reference person's face, hairstyle and overall identity consistently in every frame."

var placeholders = map[GenerationMode]string{
	ModeTextToVideo:       "Describe the video you want to create...",
	ModeFramesToVideo:     "Describe the motion between the start and end frames (optional)...",
	ModeReferencesToVideo: "Describe a scene that uses the reference images...",
	ModeExtendVideo:       "Describe what should happen next in the video...",
	ModeCharacterSwap:     "Describe how the reference character should perform the source video...",
}

// 사용자가 직접 고를 수 있는 모드 (extend-video 는 "이어서 생성" 흐름으로만 진입)
var selectableModes = []GenerationMode{
	ModeTextToVideo,
	ModeFramesToVideo,
	ModeReferencesToVideo,
	ModeCharacterSwap,
}

// PlaceholderFor - 모드별 프롬프트 placeholder
func PlaceholderFor(mode GenerationMode) string {
	return placeholders[mode]
}

// SelectableModes - 모드 선택 UI 에 노출할 모드 목록
func SelectableModes() []GenerationMode {
	return append([]GenerationMode(nil), selectableModes...)
}

// IsSelectable - 직접 선택 가능한 모드인지
func IsSelectable(mode GenerationMode) bool {
	for _, m := range selectableModes {
		if m == mode {
			return true
		}
	}
	return false
}

// SelectMode - 모드 전환. 미디어 필드는 모드와 상관없이 전부 초기화
func SelectMode(state FormState, mode GenerationMode) FormState {
	next := state.clone()
	next.Mode = mode

	next.StartFrame = nil
	next.EndFrame = nil
	next.ReferenceImages = []*model.ImageFile{}
	next.StyleImage = nil
	next.InputVideo = nil
	next.VideoHandle = nil
	next.IsLooping = false

	if mode == ModeCharacterSwap {
		next.Model = ModelHighQuality
		next.Prompt = CharacterSwapPrompt
	} else {
		next.Prompt = ""
	}

	return applyModeEffects(next)
}

// ContinueFrom - 이전 생성 결과를 이어서 생성 (extend-video 진입 경로)
func ContinueFrom(state FormState, handle model.VideoHandle) FormState {
	next := SelectMode(state, ModeExtendVideo)
	next.VideoHandle = &handle
	return next
}

// IsResolutionLocked - extend-video 에서는 해상도 변경 불가
func IsResolutionLocked(state FormState) bool {
	return state.Mode == ModeExtendVideo
}

// applyModeEffects - 모드에 종속된 파생 값 적용
// extend-video: 고해상도 소스는 연장 불가라서 720p 고정
func applyModeEffects(state FormState) FormState {
	if state.Mode == ModeExtendVideo {
		state.Resolution = Resolution720p
	}
	return state
}
