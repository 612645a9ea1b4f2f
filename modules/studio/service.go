package studio

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"veo-studio-server/modules/common/logger"
)

// Generator - 외부 비디오 생성 서비스 (요청 하나 받아서 핸들 반환)
type Generator interface {
	Generate(ctx context.Context, params *GenerateVideoParams) (*GenerationResult, error)
}

// GenerationResult - 생성 서비스가 돌려준 작업 핸들
type GenerationResult struct {
	RequestID string `json:"requestId"`
	Handle    string `json:"handle"`  // operation name 또는 queue job id
	Backend   string `json:"backend"` // "genai" or "queue"
	Status    string `json:"status"`
}

// Service - 검증 → 조립 → 생성 서비스 전달 (상태 없음, 폼 여러 개가 공유)
type Service struct {
	assembler *Assembler
	generator Generator
	log       *logger.Logger
}

func NewService(assembler *Assembler, generator Generator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		assembler: assembler,
		generator: generator,
		log:       log.With("module", "studio"),
	}
}

// Submit - 제출 게이트 통과 시 요청 조립 후 생성 서비스에 한 번 전달
func (s *Service) Submit(ctx context.Context, state FormState) (*GenerationResult, error) {
	gate := CanSubmit(state)
	if !gate.Allowed {
		return nil, &ValidationError{Mode: state.Mode, Reason: gate.Reason}
	}

	params, err := s.assembler.Assemble(ctx, state)
	if err != nil {
		return nil, err
	}
	// 조립 도중 취소(모드 전환 등)된 요청은 생성 서비스로 보내지 않음
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("submission cancelled: %w", err)
	}
	params.RequestID = uuid.NewString()

	s.log.Info("🎬 Submitting video request",
		"requestId", params.RequestID,
		"mode", params.Mode,
		"model", params.Model,
		"resolution", params.Resolution,
		"references", len(params.ReferenceImages),
		"hasStartFrame", params.StartFrame != nil)

	result, err := s.generator.Generate(ctx, &params)
	if err != nil {
		s.log.Error("❌ Generation request failed", "requestId", params.RequestID, "error", err)
		return nil, fmt.Errorf("generate video: %w", err)
	}
	if result == nil {
		s.log.Error("❌ Generator returned no result", "requestId", params.RequestID)
		return nil, errors.New("generator returned no result")
	}
	if result.RequestID == "" {
		result.RequestID = params.RequestID
	}

	s.log.Info("✅ Video request accepted", "requestId", result.RequestID, "handle", result.Handle, "backend", result.Backend)
	return result, nil
}
