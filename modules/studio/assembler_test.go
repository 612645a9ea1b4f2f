package studio

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veo-studio-server/modules/capture"
	"veo-studio-server/modules/common/model"
	"veo-studio-server/modules/common/utils"
)

// memScratch - 디스크 대신 가짜 경로, release 횟수 기록
type memScratch struct {
	released int
}

func (s *memScratch) Acquire(ctx context.Context, data []byte, suffix string) (string, func(), error) {
	return "/tmp/mem" + suffix, func() { s.released++ }, nil
}

type fakeCapturer struct {
	frame *model.ImageFile
	err   error
	calls int
}

func (c *fakeCapturer) ExtractRepresentativeFrame(ctx context.Context, video *model.VideoFile) (*model.ImageFile, error) {
	c.calls++
	return c.frame, c.err
}

func characterSwapState() FormState {
	state := SelectMode(DefaultFormState(), ModeCharacterSwap)
	state, _ = AddReferenceImage(state, testImage("face"))
	state = SetStartFrame(state, testImage("manual-start"))
	return SetInputVideo(state, testVideo("dance.mp4"))
}

func TestAssemble_CharacterSwapUsesCapturedFrame(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 48, 27))
	frame.Set(0, 0, color.RGBA{R: 255, A: 255})
	extractor := &capture.StaticExtractor{Frame: frame}
	scratch := &memScratch{}
	pipeline := capture.NewPipeline(extractor, scratch, capture.DefaultOptions(), nil)
	assembler := NewAssembler(pipeline, nil)

	state := characterSwapState()
	params, err := assembler.Assemble(context.Background(), state)
	require.NoError(t, err)

	require.NotNil(t, params.StartFrame)
	assert.Equal(t, "image/png", params.StartFrame.MIMEType)
	w, h, _, err := utils.ImageDimensions(params.StartFrame.Data)
	require.NoError(t, err)
	assert.Equal(t, 48, w)
	assert.Equal(t, 27, h)

	assert.Equal(t, capture.DefaultSeekOffset, extractor.LastOffset)
	assert.Equal(t, 1, scratch.released)

	// 입력 비디오와 레퍼런스는 그대로 전달
	require.NotNil(t, params.InputVideo)
	assert.Equal(t, state.InputVideo.Data, params.InputVideo.Data)
	assert.Len(t, params.ReferenceImages, 1)
	assert.Equal(t, CharacterSwapPrompt, params.Prompt)
	assert.Equal(t, ModelHighQuality, params.Model)

	// 폼 상태는 바뀌지 않음
	assert.Equal(t, "manual-start", state.StartFrame.Name)
}

func TestAssemble_CaptureFailureKeepsStartFrame(t *testing.T) {
	extractor := &capture.StaticExtractor{Err: errors.New("corrupt container")}
	scratch := &memScratch{}
	assembler := NewAssembler(capture.NewPipeline(extractor, scratch, capture.DefaultOptions(), nil), nil)

	params, err := assembler.Assemble(context.Background(), characterSwapState())
	require.NoError(t, err)
	require.NotNil(t, params.StartFrame)
	assert.Equal(t, "manual-start", params.StartFrame.Name)
	assert.Equal(t, 1, scratch.released)
}

func TestAssemble_OnlyCharacterSwapCaptures(t *testing.T) {
	capturer := &fakeCapturer{frame: testImage("captured")}
	assembler := NewAssembler(capturer, nil)

	state := SelectMode(DefaultFormState(), ModeFramesToVideo)
	state = SetStartFrame(state, testImage("start"))
	state = SetInputVideo(state, testVideo("ignored.mp4"))

	params, err := assembler.Assemble(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, 0, capturer.calls)
	assert.Equal(t, "start", params.StartFrame.Name)

	// character-swap 이라도 입력 비디오가 없으면 추출 안 함
	swap := SelectMode(DefaultFormState(), ModeCharacterSwap)
	_, err = assembler.Assemble(context.Background(), swap)
	require.NoError(t, err)
	assert.Equal(t, 0, capturer.calls)
}

func TestAssemble_SnapshotIsIndependent(t *testing.T) {
	assembler := NewAssembler(nil, nil)
	state := SetPrompt(DefaultFormState(), "ocean")
	state = SelectMode(state, ModeReferencesToVideo)
	state = SetPrompt(state, "ocean")
	state, _ = AddReferenceImage(state, testImage("r1"))

	first, err := assembler.Assemble(context.Background(), state)
	require.NoError(t, err)
	second, err := assembler.Assemble(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first.ReferenceImages[0], second.ReferenceImages[0])
	assert.NotSame(t, state.ReferenceImages[0], first.ReferenceImages[0])

	first.ReferenceImages[0].Data[0] = 'X'
	assert.Equal(t, byte('p'), state.ReferenceImages[0].Data[0])
	assert.Equal(t, byte('p'), second.ReferenceImages[0].Data[0])
}

func TestAssemble_CharacterSwapIsIdempotent(t *testing.T) {
	extractor := &capture.StaticExtractor{Frame: image.NewRGBA(image.Rect(0, 0, 16, 9))}
	scratch := &memScratch{}
	assembler := NewAssembler(capture.NewPipeline(extractor, scratch, capture.DefaultOptions(), nil), nil)

	state := characterSwapState()
	first, err := assembler.Assemble(context.Background(), state)
	require.NoError(t, err)
	second, err := assembler.Assemble(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first.StartFrame, second.StartFrame)
	assert.Equal(t, 2, extractor.Calls)
	assert.Equal(t, 2, scratch.released)
}

func TestAssemble_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAssembler(&fakeCapturer{}, nil).Assemble(ctx, characterSwapState())
	assert.ErrorIs(t, err, context.Canceled)
}

// slowCapturer - ctx 가 끝날 때까지 대기
type slowCapturer struct{}

func (slowCapturer) ExtractRepresentativeFrame(ctx context.Context, video *model.VideoFile) (*model.ImageFile, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAssemble_CancelDuringCapture(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewAssembler(slowCapturer{}, nil).Assemble(ctx, characterSwapState())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
