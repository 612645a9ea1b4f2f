package studio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingGenerator - 받은 요청을 기록하는 가짜 생성 서비스
type recordingGenerator struct {
	mu       sync.Mutex
	requests []GenerateVideoParams
	err      error
	block    chan struct{}
}

func (g *recordingGenerator) Generate(ctx context.Context, params *GenerateVideoParams) (*GenerationResult, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, *params)
	if g.err != nil {
		return nil, g.err
	}
	return &GenerationResult{Handle: "operations/op-1", Backend: "fake", Status: "submitted"}, nil
}

func (g *recordingGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func TestService_Submit(t *testing.T) {
	generator := &recordingGenerator{}
	service := NewService(NewAssembler(nil, nil), generator, nil)

	state := SetPrompt(DefaultFormState(), "a red fox in snow")
	result, err := service.Submit(context.Background(), state)
	require.NoError(t, err)

	require.Equal(t, 1, generator.count())
	sent := generator.requests[0]
	assert.NotEmpty(t, sent.RequestID)
	assert.Equal(t, sent.RequestID, result.RequestID)
	assert.Equal(t, "a red fox in snow", sent.Prompt)
	assert.Equal(t, ModeTextToVideo, sent.Mode)
	assert.Equal(t, "operations/op-1", result.Handle)
}

func TestService_SubmitBlockedByGate(t *testing.T) {
	generator := &recordingGenerator{}
	service := NewService(NewAssembler(nil, nil), generator, nil)

	_, err := service.Submit(context.Background(), SelectMode(DefaultFormState(), ModeFramesToVideo))

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, ReasonStartFrameRequired, validationErr.Reason)
	assert.Equal(t, ModeFramesToVideo, validationErr.Mode)
	assert.Equal(t, 0, generator.count())
}

func TestService_SubmitCancelledBeforeGenerate(t *testing.T) {
	generator := &recordingGenerator{}
	service := NewService(NewAssembler(nil, nil), generator, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Submit(ctx, SetPrompt(DefaultFormState(), "late"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, generator.count())
}

func TestService_GeneratorError(t *testing.T) {
	generator := &recordingGenerator{err: errors.New("quota exceeded")}
	service := NewService(NewAssembler(nil, nil), generator, nil)

	_, err := service.Submit(context.Background(), SetPrompt(DefaultFormState(), "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate video")
	assert.Contains(t, err.Error(), "quota exceeded")
}

// nilGenerator - 결과도 에러도 없이 반환
type nilGenerator struct{}

func (nilGenerator) Generate(ctx context.Context, params *GenerateVideoParams) (*GenerationResult, error) {
	return nil, nil
}

func TestService_SubmitNilResult(t *testing.T) {
	service := NewService(NewAssembler(nil, nil), nilGenerator{}, nil)

	result, err := service.Submit(context.Background(), SetPrompt(DefaultFormState(), "quiet forest"))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "no result")
}
