package studio

import "strings"

// 제출 차단 사유
const (
	ReasonEnterPrompt         = "Please enter a prompt."
	ReasonStartFrameRequired  = "A start frame is required."
	ReasonPromptAndReference  = "Please enter a prompt and add at least one reference image."
	ReasonReferenceRequired   = "Please add at least one reference image."
	ReasonIdentityRequired    = "Please add a reference image of the character."
	ReasonSourceVideoRequired = "Please add a source video."
	ReasonVideoObjectRequired = "An input video object is required."
	ReasonUnknownMode         = "Unknown generation mode."
)

// CanSubmit - 모드별 제출 조건 검사. 실패 시 첫 번째 사유 반환
func CanSubmit(state FormState) SubmitGate {
	hasPrompt := strings.TrimSpace(state.Prompt) != ""
	hasReference := len(state.ReferenceImages) > 0

	switch state.Mode {
	case ModeTextToVideo:
		if !hasPrompt {
			return blocked(ReasonEnterPrompt)
		}

	case ModeFramesToVideo:
		if state.StartFrame == nil {
			return blocked(ReasonStartFrameRequired)
		}

	case ModeReferencesToVideo:
		switch {
		case !hasPrompt && !hasReference:
			return blocked(ReasonPromptAndReference)
		case !hasPrompt:
			return blocked(ReasonEnterPrompt)
		case !hasReference:
			return blocked(ReasonReferenceRequired)
		}

	case ModeCharacterSwap:
		switch {
		case !hasPrompt:
			return blocked(ReasonEnterPrompt)
		case !hasReference:
			return blocked(ReasonIdentityRequired)
		case state.InputVideo == nil:
			return blocked(ReasonSourceVideoRequired)
		}

	case ModeExtendVideo:
		if state.VideoHandle == nil {
			return blocked(ReasonVideoObjectRequired)
		}

	default:
		return blocked(ReasonUnknownMode)
	}

	return SubmitGate{Allowed: true}
}

// IsSubmitDisabled - 제출 버튼 비활성 여부
func IsSubmitDisabled(state FormState) bool {
	return !CanSubmit(state).Allowed
}

func blocked(reason string) SubmitGate {
	return SubmitGate{Allowed: false, Reason: reason}
}
