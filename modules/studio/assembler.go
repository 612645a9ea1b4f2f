package studio

import (
	"context"
	"fmt"

	"veo-studio-server/modules/common/logger"
	"veo-studio-server/modules/common/model"
)

// FrameCapturer - 비디오에서 대표 프레임 추출 (capture.Pipeline)
type FrameCapturer interface {
	ExtractRepresentativeFrame(ctx context.Context, video *model.VideoFile) (*model.ImageFile, error)
}

// Assembler - FormState 를 요청 객체로 조립
type Assembler struct {
	capturer FrameCapturer
	log      *logger.Logger
}

func NewAssembler(capturer FrameCapturer, log *logger.Logger) *Assembler {
	if log == nil {
		log = logger.Nop()
	}
	return &Assembler{
		capturer: capturer,
		log:      log.With("module", "assembler"),
	}
}

// Assemble - 상태 스냅샷 후 character-swap + 입력 비디오일 때만 프레임 추출로 StartFrame 교체
// 추출 실패는 치명적이지 않음: 경고 로그 남기고 원래 값으로 진행
// 에러는 ctx 가 취소된 경우에만 반환
func (a *Assembler) Assemble(ctx context.Context, state FormState) (GenerateVideoParams, error) {
	if err := ctx.Err(); err != nil {
		return GenerateVideoParams{}, fmt.Errorf("assemble cancelled: %w", err)
	}

	params := state.snapshot()

	if params.Mode != ModeCharacterSwap || params.InputVideo == nil || a.capturer == nil {
		return params, nil
	}

	frame, err := a.capturer.ExtractRepresentativeFrame(ctx, params.InputVideo)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return GenerateVideoParams{}, fmt.Errorf("assemble cancelled: %w", ctxErr)
		}
		a.log.Warn("⚠️ Frame extraction failed, submitting without derived start frame",
			"video", params.InputVideo.Name,
			"error", err)
		return params, nil
	}

	params.StartFrame = frame
	a.log.Debug("✅ Start frame replaced with captured frame", "frame", frame.Name)
	return params, nil
}
