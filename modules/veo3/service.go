package veo3

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"veo-studio-server/modules/common/config"
	"veo-studio-server/modules/common/gemini"
	"veo-studio-server/modules/common/logger"
	"veo-studio-server/modules/common/model"
	"veo-studio-server/modules/studio"
)

// videoModels - genai Models 중 비디오 생성 부분
type videoModels interface {
	GenerateVideosFromSource(ctx context.Context, model string, source *genai.GenerateVideosSource, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
}

// GenaiGenerator - Gemini API (Veo) 로 바로 요청
type GenaiGenerator struct {
	models videoModels
	config Config
	log    *logger.Logger
}

// NewGenaiGenerator - 설정된 백엔드 (Gemini API 멀티 키 / Vertex AI) 로 Genai 클라이언트 초기화
func NewGenaiGenerator(ctx context.Context, appCfg *config.Config, log *logger.Logger) (*GenaiGenerator, error) {
	if log == nil {
		log = logger.Nop()
	}

	clients, err := gemini.NewClients(ctx, appCfg, log)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	models := make([]videoModels, 0, len(clients))
	for _, client := range clients {
		models = append(models, client.Models)
	}

	cfg := ConfigFrom(appCfg)
	log.Info("✅ [Veo3] Genai generator initialized", "backend", appCfg.GenaiBackend, "fast", cfg.FastModel, "quality", cfg.QualityModel)
	return &GenaiGenerator{
		models: newKeyRotation(models, gemini.DefaultRetryPolicy(), log),
		config: cfg,
		log:    log.With("module", "veo3"),
	}, nil
}

// keyRotation - 429 가 나면 다음 키의 클라이언트로 넘어감
type keyRotation struct {
	models []videoModels
	policy gemini.RetryPolicy
	log    *logger.Logger
}

func newKeyRotation(models []videoModels, policy gemini.RetryPolicy, log *logger.Logger) *keyRotation {
	return &keyRotation{models: models, policy: policy, log: log}
}

func (k *keyRotation) GenerateVideosFromSource(ctx context.Context, modelName string, source *genai.GenerateVideosSource, videoConfig *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return gemini.WithKeyRetry(ctx, k.policy, len(k.models), k.log, func(ctx context.Context, key int) (*genai.GenerateVideosOperation, error) {
		return k.models[key].GenerateVideosFromSource(ctx, modelName, source, videoConfig)
	})
}

// Generate - 요청을 Veo 작업으로 시작하고 operation 이름 반환 (완료까지 기다리지 않음)
func (g *GenaiGenerator) Generate(ctx context.Context, params *studio.GenerateVideoParams) (*studio.GenerationResult, error) {
	source, err := buildSource(params)
	if err != nil {
		return nil, err
	}
	videoConfig, err := buildConfig(params)
	if err != nil {
		return nil, err
	}

	modelName := g.config.ModelFor(params.Model)
	g.log.Info("🎬 [Veo3] Starting video generation",
		"requestId", params.RequestID,
		"model", modelName,
		"mode", params.Mode,
		"aspectRatio", videoConfig.AspectRatio,
		"resolution", videoConfig.Resolution,
		"references", len(videoConfig.ReferenceImages))

	op, err := g.models.GenerateVideosFromSource(ctx, modelName, source, videoConfig)
	if err != nil {
		return nil, fmt.Errorf("veo generate videos: %w", err)
	}
	if op == nil || op.Name == "" {
		return nil, errors.New("veo returned no operation")
	}

	g.log.Info("✅ [Veo3] Operation started", "requestId", params.RequestID, "operation", op.Name)
	return &studio.GenerationResult{
		RequestID: params.RequestID,
		Handle:    op.Name,
		Backend:   BackendGenai,
		Status:    model.StatusSubmitted,
	}, nil
}

// buildSource - 프롬프트 + 모드별 입력 미디어
func buildSource(params *studio.GenerateVideoParams) (*genai.GenerateVideosSource, error) {
	source := &genai.GenerateVideosSource{Prompt: params.Prompt}

	switch params.Mode {
	case studio.ModeTextToVideo, studio.ModeReferencesToVideo:
		// 프롬프트만 (레퍼런스는 config)

	case studio.ModeFramesToVideo:
		img, err := toImage(params.StartFrame)
		if err != nil {
			return nil, fmt.Errorf("start frame: %w", err)
		}
		if img == nil {
			return nil, errors.New("frames-to-video requires a start frame")
		}
		source.Image = img

	case studio.ModeExtendVideo:
		if params.VideoHandle == nil || params.VideoHandle.URI == "" {
			return nil, errors.New("extend-video requires a video handle")
		}
		source.Video = &genai.Video{URI: params.VideoHandle.URI, MIMEType: params.VideoHandle.MIMEType}

	case studio.ModeCharacterSwap:
		video, err := toVideo(params.InputVideo)
		if err != nil {
			return nil, fmt.Errorf("input video: %w", err)
		}
		if video == nil {
			return nil, errors.New("character-swap requires an input video")
		}
		// 소스에는 Image / Video 중 하나만 (캡처 프레임은 config 의 레퍼런스로)
		source.Video = video

	default:
		return nil, fmt.Errorf("unsupported mode: %s", params.Mode)
	}

	return source, nil
}

// buildConfig - 화면 비율 / 해상도 / 종료 프레임 / 레퍼런스
// style 이미지는 Veo 에 대응 필드가 없어서 보내지 않음
func buildConfig(params *studio.GenerateVideoParams) (*genai.GenerateVideosConfig, error) {
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    string(params.AspectRatio),
		Resolution:     string(params.Resolution),
	}

	switch params.Mode {
	case studio.ModeFramesToVideo:
		// 루프 = 시작 프레임으로 끝남
		last := params.EndFrame
		if params.IsLooping {
			last = params.StartFrame
		}
		img, err := toImage(last)
		if err != nil {
			return nil, fmt.Errorf("last frame: %w", err)
		}
		cfg.LastFrame = img

	case studio.ModeReferencesToVideo, studio.ModeCharacterSwap:
		refs := params.ReferenceImages
		if params.Mode == studio.ModeCharacterSwap && params.StartFrame != nil {
			// 캡처된 대표 프레임이 첫 번째 레퍼런스 (Veo 레퍼런스 최대 개수 유지)
			refs = append([]*model.ImageFile{params.StartFrame}, refs...)
			if len(refs) > studio.MaxReferenceImages {
				refs = refs[:studio.MaxReferenceImages]
			}
		}
		for i, ref := range refs {
			img, err := toImage(ref)
			if err != nil {
				return nil, fmt.Errorf("reference image %d: %w", i, err)
			}
			if img == nil {
				continue
			}
			cfg.ReferenceImages = append(cfg.ReferenceImages, &genai.VideoGenerationReferenceImage{
				Image:         img,
				ReferenceType: genai.VideoGenerationReferenceTypeAsset,
			})
		}
	}

	return cfg, nil
}

func toImage(f *model.ImageFile) (*genai.Image, error) {
	if f == nil {
		return nil, nil
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, err
	}
	return &genai.Image{ImageBytes: data, MIMEType: f.MIMEType}, nil
}

func toVideo(f *model.VideoFile) (*genai.Video, error) {
	if f == nil {
		return nil, nil
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, err
	}
	return &genai.Video{VideoBytes: data, MIMEType: f.MIMEType}, nil
}
