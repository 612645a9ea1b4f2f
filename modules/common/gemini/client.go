package gemini

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/auth/credentials"
	"google.golang.org/genai"

	"veo-studio-server/modules/common/config"
	"veo-studio-server/modules/common/logger"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// NewClients - 설정된 genai 백엔드로 클라이언트 생성
// Gemini API: 키마다 하나 (429 재시도 순서대로), Vertex AI: 하나
func NewClients(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]*genai.Client, error) {
	if cfg.GenaiBackend == config.GenaiVertexAI {
		client, err := NewVertexClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return []*genai.Client{client}, nil
	}

	keys := cfg.APIKeys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("no API keys provided")
	}

	clients := make([]*genai.Client, 0, len(keys))
	for i, key := range keys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create genai client for key #%d: %w", i+1, err)
		}
		clients = append(clients, client)
	}

	log.Info("✅ [Gemini] Clients initialized", "keys", len(clients))
	return clients, nil
}

// NewVertexClient - Vertex AI 백엔드 클라이언트 (자격 증명은 환경 변수 → 파일 → ADC 순서)
func NewVertexClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*genai.Client, error) {
	opts := &credentials.DetectOptions{Scopes: []string{cloudPlatformScope}}

	switch {
	case cfg.VertexCredentialsJSON != "":
		// Render 배포용
		log.Info("✅ [VertexAI] Using VERTEXAI_CREDENTIALS_JSON from environment")
		opts.CredentialsJSON = []byte(cfg.VertexCredentialsJSON)
	case cfg.VertexCredentialsPath != "":
		// 로컬 테스트용
		log.Info("✅ [VertexAI] Using credentials from file", "path", cfg.VertexCredentialsPath)
		data, err := os.ReadFile(cfg.VertexCredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		opts.CredentialsJSON = data
	default:
		log.Warn("⚠️  [VertexAI] No explicit credentials found, using Application Default Credentials")
	}

	creds, err := credentials.DetectDefault(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load Vertex AI credentials: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:     genai.BackendVertexAI,
		Project:     cfg.VertexProject,
		Location:    cfg.VertexLocation,
		Credentials: creds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	log.Info("✅ [VertexAI] Client initialized", "project", cfg.VertexProject, "location", cfg.VertexLocation)
	return client, nil
}
