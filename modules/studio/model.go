package studio

import "veo-studio-server/modules/common/model"

// GenerationMode - 생성 모드
type GenerationMode string

const (
	ModeTextToVideo       GenerationMode = "text-to-video"
	ModeFramesToVideo     GenerationMode = "frames-to-video"
	ModeReferencesToVideo GenerationMode = "references-to-video"
	ModeExtendVideo       GenerationMode = "extend-video"
	ModeCharacterSwap     GenerationMode = "character-swap"
)

// ModelTier - 모델 등급
type ModelTier string

const (
	ModelFast        ModelTier = "fast"
	ModelHighQuality ModelTier = "high-quality"
)

// AspectRatio - 화면 비율
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

// Resolution - 출력 해상도
type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4k"
)

// MaxReferenceImages - 레퍼런스 이미지 최대 개수
const MaxReferenceImages = 3

var allModes = []GenerationMode{
	ModeTextToVideo,
	ModeFramesToVideo,
	ModeReferencesToVideo,
	ModeExtendVideo,
	ModeCharacterSwap,
}

func (m GenerationMode) Valid() bool {
	for _, mode := range allModes {
		if m == mode {
			return true
		}
	}
	return false
}

func (t ModelTier) Valid() bool {
	return t == ModelFast || t == ModelHighQuality
}

func (a AspectRatio) Valid() bool {
	return a == AspectLandscape || a == AspectPortrait
}

func (r Resolution) Valid() bool {
	return r == Resolution720p || r == Resolution1080p || r == Resolution4K
}

// FormState - 폼 전체 상태. 값으로 전달하고 전이 함수는 새 상태를 반환
// 에셋 포인터는 불변이라 공유해도 됨. ReferenceImages 슬라이스는 전이마다 복사
type FormState struct {
	Prompt          string
	Model           ModelTier
	AspectRatio     AspectRatio
	Resolution      Resolution
	Mode            GenerationMode
	StartFrame      *model.ImageFile
	EndFrame        *model.ImageFile
	ReferenceImages []*model.ImageFile
	StyleImage      *model.ImageFile
	InputVideo      *model.VideoFile
	VideoHandle     *model.VideoHandle
	IsLooping       bool
}

// GenerateVideoParams - 제출 시점의 불변 요청 스냅샷
type GenerateVideoParams struct {
	RequestID       string             `json:"requestId,omitempty"`
	Prompt          string             `json:"prompt"`
	Model           ModelTier          `json:"model"`
	AspectRatio     AspectRatio        `json:"aspectRatio"`
	Resolution      Resolution         `json:"resolution"`
	Mode            GenerationMode     `json:"mode"`
	StartFrame      *model.ImageFile   `json:"startFrame,omitempty"`
	EndFrame        *model.ImageFile   `json:"endFrame,omitempty"`
	ReferenceImages []*model.ImageFile `json:"referenceImages"`
	StyleImage      *model.ImageFile   `json:"styleImage,omitempty"`
	InputVideo      *model.VideoFile   `json:"inputVideo,omitempty"`
	VideoHandle     *model.VideoHandle `json:"videoHandle,omitempty"`
	IsLooping       bool               `json:"isLooping"`
}

// SubmitGate - 제출 가능 여부 + 사용자용 사유
type SubmitGate struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// clone - 슬라이스까지 복사한 상태
func (s FormState) clone() FormState {
	out := s
	out.ReferenceImages = append([]*model.ImageFile(nil), s.ReferenceImages...)
	return out
}

// snapshot - 요청 객체로 깊은 복사
func (s FormState) snapshot() GenerateVideoParams {
	return GenerateVideoParams{
		Prompt:          s.Prompt,
		Model:           s.Model,
		AspectRatio:     s.AspectRatio,
		Resolution:      s.Resolution,
		Mode:            s.Mode,
		StartFrame:      s.StartFrame.Clone(),
		EndFrame:        s.EndFrame.Clone(),
		ReferenceImages: model.CloneImages(s.ReferenceImages),
		StyleImage:      s.StyleImage.Clone(),
		InputVideo:      s.InputVideo.Clone(),
		VideoHandle:     s.VideoHandle.Clone(),
		IsLooping:       s.IsLooping,
	}
}
