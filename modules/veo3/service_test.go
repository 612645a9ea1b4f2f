package veo3

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"veo-studio-server/modules/common/gemini"
	"veo-studio-server/modules/common/logger"
	"veo-studio-server/modules/common/model"
	"veo-studio-server/modules/studio"
)

type fakeModels struct {
	model  string
	source *genai.GenerateVideosSource
	config *genai.GenerateVideosConfig
	op     *genai.GenerateVideosOperation
	err    error
}

func (f *fakeModels) GenerateVideosFromSource(ctx context.Context, model string, source *genai.GenerateVideosSource, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	f.model, f.source, f.config = model, source, config
	return f.op, f.err
}

func testConfig() Config {
	return Config{FastModel: "veo-fast", QualityModel: "veo-quality"}
}

func newTestGenerator(models videoModels) *GenaiGenerator {
	return &GenaiGenerator{models: models, config: testConfig(), log: logger.Nop()}
}

func refImage(name string) *model.ImageFile {
	return model.NewImageFile(name, "image/png", []byte("png-"+name))
}

func TestConfig_ModelFor(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "veo-fast", cfg.ModelFor(studio.ModelFast))
	assert.Equal(t, "veo-quality", cfg.ModelFor(studio.ModelHighQuality))
	assert.Equal(t, "veo-fast", cfg.ModelFor(""))
}

func TestGenerate_TextToVideo(t *testing.T) {
	models := &fakeModels{op: &genai.GenerateVideosOperation{Name: "operations/abc"}}
	generator := newTestGenerator(models)

	result, err := generator.Generate(context.Background(), &studio.GenerateVideoParams{
		RequestID:   "req-1",
		Prompt:      "a whale breaching",
		Model:       studio.ModelHighQuality,
		AspectRatio: studio.AspectPortrait,
		Resolution:  studio.Resolution1080p,
		Mode:        studio.ModeTextToVideo,
	})
	require.NoError(t, err)

	assert.Equal(t, "operations/abc", result.Handle)
	assert.Equal(t, "req-1", result.RequestID)
	assert.Equal(t, BackendGenai, result.Backend)
	assert.Equal(t, "veo-quality", models.model)
	assert.Equal(t, "a whale breaching", models.source.Prompt)
	assert.Nil(t, models.source.Image)
	assert.Equal(t, "9:16", models.config.AspectRatio)
	assert.Equal(t, "1080p", models.config.Resolution)
}

func TestGenerate_Errors(t *testing.T) {
	params := &studio.GenerateVideoParams{Prompt: "x", Mode: studio.ModeTextToVideo, Model: studio.ModelFast}

	_, err := newTestGenerator(&fakeModels{err: errors.New("quota")}).Generate(context.Background(), params)
	assert.ErrorContains(t, err, "quota")

	_, err = newTestGenerator(&fakeModels{op: &genai.GenerateVideosOperation{}}).Generate(context.Background(), params)
	assert.Error(t, err)
}

func TestBuild_FramesToVideo(t *testing.T) {
	start, end := refImage("start"), refImage("end")

	tests := []struct {
		name    string
		end     *model.ImageFile
		looping bool
		want    []byte
	}{
		{name: "no end frame", want: nil},
		{name: "end frame", end: end, want: end.Data},
		{name: "looping reuses start frame", looping: true, want: start.Data},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := &studio.GenerateVideoParams{
				Mode:       studio.ModeFramesToVideo,
				StartFrame: start,
				EndFrame:   tt.end,
				IsLooping:  tt.looping,
			}

			source, err := buildSource(params)
			require.NoError(t, err)
			require.NotNil(t, source.Image)
			assert.Equal(t, start.Data, source.Image.ImageBytes)
			assert.Equal(t, "image/png", source.Image.MIMEType)

			cfg, err := buildConfig(params)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, cfg.LastFrame)
				return
			}
			require.NotNil(t, cfg.LastFrame)
			assert.Equal(t, tt.want, cfg.LastFrame.ImageBytes)
		})
	}

	_, err := buildSource(&studio.GenerateVideoParams{Mode: studio.ModeFramesToVideo})
	assert.Error(t, err)
}

func TestBuild_ReferencesAsAssets(t *testing.T) {
	params := &studio.GenerateVideoParams{
		Mode:            studio.ModeReferencesToVideo,
		Prompt:          "walk",
		ReferenceImages: []*model.ImageFile{refImage("a"), refImage("b")},
		StyleImage:      refImage("style"),
	}

	cfg, err := buildConfig(params)
	require.NoError(t, err)
	require.Len(t, cfg.ReferenceImages, 2)
	for _, ref := range cfg.ReferenceImages {
		assert.Equal(t, genai.VideoGenerationReferenceTypeAsset, ref.ReferenceType)
	}
	assert.Equal(t, []byte("png-a"), cfg.ReferenceImages[0].Image.ImageBytes)
}

func TestBuild_ExtendVideo(t *testing.T) {
	params := &studio.GenerateVideoParams{
		Mode:        studio.ModeExtendVideo,
		VideoHandle: &model.VideoHandle{URI: "files/prev", MIMEType: "video/mp4"},
	}
	source, err := buildSource(params)
	require.NoError(t, err)
	require.NotNil(t, source.Video)
	assert.Equal(t, "files/prev", source.Video.URI)
	assert.Empty(t, source.Video.VideoBytes)

	_, err = buildSource(&studio.GenerateVideoParams{Mode: studio.ModeExtendVideo})
	assert.Error(t, err)
}

func TestBuild_CharacterSwap(t *testing.T) {
	params := &studio.GenerateVideoParams{
		Mode:            studio.ModeCharacterSwap,
		StartFrame:      refImage("captured"),
		InputVideo:      model.NewVideoFile("dance.mp4", "video/mp4", []byte("mp4")),
		ReferenceImages: []*model.ImageFile{refImage("face")},
	}

	source, err := buildSource(params)
	require.NoError(t, err)
	require.NotNil(t, source.Video)
	assert.Equal(t, []byte("mp4"), source.Video.VideoBytes)
	assert.Nil(t, source.Image)

	cfg, err := buildConfig(params)
	require.NoError(t, err)
	require.Len(t, cfg.ReferenceImages, 2)
	assert.Equal(t, []byte("png-captured"), cfg.ReferenceImages[0].Image.ImageBytes)
	assert.Equal(t, []byte("png-face"), cfg.ReferenceImages[1].Image.ImageBytes)

	// 추출 실패로 시작 프레임이 없어도 요청은 만들어짐
	params.StartFrame = nil
	_, err = buildSource(params)
	require.NoError(t, err)
	cfg, err = buildConfig(params)
	require.NoError(t, err)
	assert.Len(t, cfg.ReferenceImages, 1)
}

func TestBuild_AssetsFromBase64Only(t *testing.T) {
	// 큐를 거친 요청은 Data 없이 Base64 만 있음
	params := &studio.GenerateVideoParams{
		Mode:       studio.ModeFramesToVideo,
		StartFrame: &model.ImageFile{Name: "s.png", MIMEType: "image/png", Base64: "cG5n"},
	}
	source, err := buildSource(params)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), source.Image.ImageBytes)
}

func TestBuild_UnknownMode(t *testing.T) {
	_, err := buildSource(&studio.GenerateVideoParams{Mode: "slideshow"})
	assert.Error(t, err)
}

func TestKeyRotation_FallsBackOnRateLimit(t *testing.T) {
	limited := &fakeModels{err: errors.New("Error 429: RESOURCE_EXHAUSTED")}
	healthy := &fakeModels{op: &genai.GenerateVideosOperation{Name: "operations/second-key"}}
	rotation := newKeyRotation([]videoModels{limited, healthy}, gemini.RetryPolicy{AttemptsPerKey: 2, Delay: time.Millisecond}, logger.Nop())

	result, err := newTestGenerator(rotation).Generate(context.Background(), &studio.GenerateVideoParams{
		RequestID: "req-rotate",
		Prompt:    "rain on neon streets",
		Mode:      studio.ModeTextToVideo,
	})
	require.NoError(t, err)
	assert.Equal(t, "operations/second-key", result.Handle)
	assert.Equal(t, "veo-fast", healthy.model)
}

func TestKeyRotation_DoesNotRetryOtherErrors(t *testing.T) {
	first := &fakeModels{err: errors.New("invalid prompt")}
	second := &fakeModels{op: &genai.GenerateVideosOperation{Name: "operations/unused"}}
	rotation := newKeyRotation([]videoModels{first, second}, gemini.RetryPolicy{AttemptsPerKey: 2, Delay: time.Millisecond}, logger.Nop())

	_, err := newTestGenerator(rotation).Generate(context.Background(), &studio.GenerateVideoParams{
		Prompt: "x",
		Mode:   studio.ModeTextToVideo,
	})
	require.Error(t, err)
	assert.Empty(t, second.model)
}
