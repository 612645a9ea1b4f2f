package studio

import "veo-studio-server/modules/common/model"

// AssetView - 바이너리 없이 에셋 요약만
type AssetView struct {
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// FormView - 클라이언트에게 보내는 폼 상태 + 파생 값
type FormView struct {
	Prompt          string             `json:"prompt"`
	Model           ModelTier          `json:"model"`
	AspectRatio     AspectRatio        `json:"aspectRatio"`
	Resolution      Resolution         `json:"resolution"`
	Mode            GenerationMode     `json:"mode"`
	StartFrame      *AssetView         `json:"startFrame,omitempty"`
	EndFrame        *AssetView         `json:"endFrame,omitempty"`
	ReferenceImages []AssetView        `json:"referenceImages"`
	StyleImage      *AssetView         `json:"styleImage,omitempty"`
	InputVideo      *AssetView         `json:"inputVideo,omitempty"`
	VideoHandle     *model.VideoHandle `json:"videoHandle,omitempty"`
	IsLooping       bool               `json:"isLooping"`

	Gate             SubmitGate       `json:"gate"`
	SubmitDisabled   bool             `json:"submitDisabled"`
	Placeholder      string           `json:"placeholder"`
	ResolutionLocked bool             `json:"resolutionLocked"`
	CanAddReference  bool             `json:"canAddReference"`
	SelectableModes  []GenerationMode `json:"selectableModes"`
}

// ModeInfo - 모드 목록 응답 항목
type ModeInfo struct {
	Mode        GenerationMode `json:"mode"`
	Placeholder string         `json:"placeholder"`
}

func NewFormView(state FormState) FormView {
	gate := CanSubmit(state)

	refs := make([]AssetView, 0, len(state.ReferenceImages))
	for _, img := range state.ReferenceImages {
		if v := imageView(img); v != nil {
			refs = append(refs, *v)
		}
	}

	var inputVideo *AssetView
	if state.InputVideo != nil {
		inputVideo = &AssetView{
			Name:     state.InputVideo.Name,
			MIMEType: state.InputVideo.MIMEType,
			Size:     len(state.InputVideo.Data),
		}
	}

	return FormView{
		Prompt:          state.Prompt,
		Model:           state.Model,
		AspectRatio:     state.AspectRatio,
		Resolution:      state.Resolution,
		Mode:            state.Mode,
		StartFrame:      imageView(state.StartFrame),
		EndFrame:        imageView(state.EndFrame),
		ReferenceImages: refs,
		StyleImage:      imageView(state.StyleImage),
		InputVideo:      inputVideo,
		VideoHandle:     state.VideoHandle.Clone(),
		IsLooping:       state.IsLooping,

		Gate:             gate,
		SubmitDisabled:   !gate.Allowed,
		Placeholder:      PlaceholderFor(state.Mode),
		ResolutionLocked: IsResolutionLocked(state),
		CanAddReference:  len(state.ReferenceImages) < MaxReferenceImages,
		SelectableModes:  SelectableModes(),
	}
}

// ModeInfos - 선택 가능한 모드 + placeholder
func ModeInfos() []ModeInfo {
	modes := SelectableModes()
	out := make([]ModeInfo, 0, len(modes))
	for _, m := range modes {
		out = append(out, ModeInfo{Mode: m, Placeholder: PlaceholderFor(m)})
	}
	return out
}

func imageView(img *model.ImageFile) *AssetView {
	if img == nil {
		return nil
	}
	return &AssetView{Name: img.Name, MIMEType: img.MIMEType, Size: len(img.Data)}
}
