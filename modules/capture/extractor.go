package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"
)

// FrameExtractor - 비디오의 특정 시점 프레임 하나를 디코딩
type FrameExtractor interface {
	DecodeFrame(ctx context.Context, videoPath string, offset time.Duration) (image.Image, error)
}

// FFmpegExtractor - ffmpeg 로 프레임을 PNG 스트림으로 뽑아서 디코딩 (스케일 없음 = 원본 크기)
type FFmpegExtractor struct {
	FFmpegPath string
	runner     Runner
}

func NewFFmpegExtractor(ffmpegPath string, runner Runner) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if runner == nil {
		runner = NewCommandRunner()
	}
	return &FFmpegExtractor{
		FFmpegPath: ffmpegPath,
		runner:     runner,
	}
}

func (e *FFmpegExtractor) DecodeFrame(ctx context.Context, videoPath string, offset time.Duration) (image.Image, error) {
	args := []string{
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}

	out, err := e.runner.Run(ctx, e.FFmpegPath, args...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame at %.3fs: %w", offset.Seconds(), err)
	}
	if len(out) == 0 {
		return nil, errors.New("ffmpeg produced no frame")
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode ffmpeg frame: %w", err)
	}
	return img, nil
}

// StaticExtractor - 고정 이미지를 돌려주는 테스트용 FrameExtractor
type StaticExtractor struct {
	Frame image.Image
	Err   error

	Calls      int
	LastPath   string
	LastOffset time.Duration
}

func (e *StaticExtractor) DecodeFrame(ctx context.Context, videoPath string, offset time.Duration) (image.Image, error) {
	e.Calls++
	e.LastPath = videoPath
	e.LastOffset = offset

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Frame, nil
}
