package model

import "veo-studio-server/modules/common/utils"

// ImageFile - 이미지 에셋 (원본 바이너리 + base64)
// 생성 후 변경하지 않음. 요청으로 넘길 때는 Clone 사용
type ImageFile struct {
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
	Base64   string `json:"base64"`
}

// VideoFile - 비디오 에셋 (원본 바이너리 + base64)
type VideoFile struct {
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
	Base64   string `json:"base64"`
}

// VideoHandle - 이전에 생성된 비디오 객체 참조 (extend 모드 입력)
type VideoHandle struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
}

// NewImageFile - 바이너리로 ImageFile 생성 (base64 자동 계산)
func NewImageFile(name, mimeType string, data []byte) *ImageFile {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &ImageFile{
		Name:     name,
		MIMEType: mimeType,
		Data:     buf,
		Base64:   utils.ConvertImageToBase64(buf),
	}
}

// NewVideoFile - 바이너리로 VideoFile 생성 (base64 자동 계산)
func NewVideoFile(name, mimeType string, data []byte) *VideoFile {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &VideoFile{
		Name:     name,
		MIMEType: mimeType,
		Data:     buf,
		Base64:   utils.ConvertImageToBase64(buf),
	}
}

// Clone - 깊은 복사 (nil 허용)
func (f *ImageFile) Clone() *ImageFile {
	if f == nil {
		return nil
	}
	data, err := f.Bytes()
	if err != nil {
		c := *f
		return &c
	}
	return NewImageFile(f.Name, f.MIMEType, data)
}

// Clone - 깊은 복사 (nil 허용)
func (f *VideoFile) Clone() *VideoFile {
	if f == nil {
		return nil
	}
	data, err := f.Bytes()
	if err != nil {
		c := *f
		return &c
	}
	return NewVideoFile(f.Name, f.MIMEType, data)
}

// Clone - 복사 (nil 허용)
func (h *VideoHandle) Clone() *VideoHandle {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

// Bytes - 원본 바이너리 (JSON 으로 넘어와 Data 가 비어 있으면 Base64 디코딩)
func (f *ImageFile) Bytes() ([]byte, error) {
	if f == nil {
		return nil, nil
	}
	if len(f.Data) > 0 || f.Base64 == "" {
		return f.Data, nil
	}
	return utils.DecodeBase64(f.Base64)
}

// Bytes - 원본 바이너리 (JSON 으로 넘어와 Data 가 비어 있으면 Base64 디코딩)
func (f *VideoFile) Bytes() ([]byte, error) {
	if f == nil {
		return nil, nil
	}
	if len(f.Data) > 0 || f.Base64 == "" {
		return f.Data, nil
	}
	return utils.DecodeBase64(f.Base64)
}

// CloneImages - 이미지 슬라이스 깊은 복사 (nil 은 빈 슬라이스로)
func CloneImages(images []*ImageFile) []*ImageFile {
	out := make([]*ImageFile, 0, len(images))
	for _, img := range images {
		out = append(out, img.Clone())
	}
	return out
}

// 큐 Job 상태
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSubmitted  = "submitted"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)
