package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strings"
	"time"

	"veo-studio-server/modules/common/logger"
	"veo-studio-server/modules/common/model"
	"veo-studio-server/modules/common/utils"
)

// 첫 프레임이 검은 화면일 수 있어서 0 이 아닌 약간 뒤로 seek
const (
	DefaultSeekOffset = 100 * time.Millisecond
	DefaultTimeout    = 15 * time.Second
)

// DecodeError 단계
const (
	StageLoad   = "load"
	StageRender = "render"
	StageEncode = "encode"
)

// DecodeError - 프레임 추출 실패 (load / render / encode)
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("frame capture failed at %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Options - Pipeline 설정
type Options struct {
	SeekOffset time.Duration
	Timeout    time.Duration
	Format     string // "png" or "webp" (둘 다 무손실)
}

func DefaultOptions() Options {
	return Options{
		SeekOffset: DefaultSeekOffset,
		Timeout:    DefaultTimeout,
		Format:     utils.FormatPNG,
	}
}

// Pipeline - 비디오 에셋에서 대표 프레임 한 장을 뽑아 이미지 에셋으로 변환
type Pipeline struct {
	extractor FrameExtractor
	scratch   Scratch
	options   Options
	log       *logger.Logger
}

func NewPipeline(extractor FrameExtractor, scratch Scratch, options Options, log *logger.Logger) *Pipeline {
	if options.SeekOffset <= 0 {
		options.SeekOffset = DefaultSeekOffset
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.Format == "" {
		options.Format = utils.FormatPNG
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		extractor: extractor,
		scratch:   scratch,
		options:   options,
		log:       log.With("module", "capture"),
	}
}

// ExtractRepresentativeFrame - 단일 시도, 재시도 없음. 실패는 전부 *DecodeError
func (p *Pipeline) ExtractRepresentativeFrame(ctx context.Context, video *model.VideoFile) (*model.ImageFile, error) {
	if video == nil {
		return nil, &DecodeError{Stage: StageLoad, Err: errors.New("no video")}
	}
	payload, err := video.Bytes()
	if err != nil {
		return nil, &DecodeError{Stage: StageLoad, Err: err}
	}
	if len(payload) == 0 {
		return nil, &DecodeError{Stage: StageLoad, Err: errors.New("empty video payload")}
	}

	ctx, cancel := context.WithTimeout(ctx, p.options.Timeout)
	defer cancel()

	path, release, err := p.scratch.Acquire(ctx, payload, suffixFor(video))
	if err != nil {
		return nil, &DecodeError{Stage: StageLoad, Err: err}
	}
	defer release()

	frame, err := p.extractor.DecodeFrame(ctx, path, p.options.SeekOffset)
	if err != nil {
		return nil, &DecodeError{Stage: StageLoad, Err: err}
	}

	canvas, err := renderFrame(frame)
	if err != nil {
		return nil, &DecodeError{Stage: StageRender, Err: err}
	}

	data, mimeType, err := utils.EncodeLossless(canvas, p.options.Format)
	if err != nil {
		return nil, &DecodeError{Stage: StageEncode, Err: err}
	}

	p.log.Info("🎞️ Frame captured",
		"video", video.Name,
		"width", canvas.Bounds().Dx(),
		"height", canvas.Bounds().Dy(),
		"format", p.options.Format,
		"bytes", len(data))

	return model.NewImageFile(frameName(video.Name, p.options.Format), mimeType, data), nil
}

// renderFrame - 원본 크기의 픽셀 버퍼에 프레임을 그림
func renderFrame(frame image.Image) (*image.RGBA, error) {
	if frame == nil {
		return nil, errors.New("no decoded frame")
	}
	bounds := frame.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", bounds.Dx(), bounds.Dy())
	}

	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), frame, bounds.Min, draw.Src)
	return canvas, nil
}

func suffixFor(video *model.VideoFile) string {
	switch strings.ToLower(video.MIMEType) {
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	case "video/x-matroska":
		return ".mkv"
	case "video/x-msvideo":
		return ".avi"
	default:
		return ".mp4"
	}
}

func frameName(videoName, format string) string {
	base := strings.TrimSpace(videoName)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	if base == "" {
		base = "video"
	}
	return base + "-frame." + format
}
