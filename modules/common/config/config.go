package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 생성 백엔드 종류
const (
	BackendGenai = "genai"
	BackendQueue = "queue"
)

// genai 클라이언트 백엔드
const (
	GenaiGeminiAPI = "gemini"
	GenaiVertexAI  = "vertex"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	Port        string
	MaxUploadMB int
	LogMode     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Gemini / Veo
	GeminiAPIKey      string
	GeminiAPIKeys     []string // 429 시 순서대로 시도할 추가 키
	GenaiBackend      string
	VeoFastModel      string
	VeoQualityModel   string
	GenerationBackend string

	// Queue worker (queue 백엔드에서만)
	RunWorker         bool
	WorkerConcurrency int

	// Frame capture
	FFmpegPath     string
	ScratchDir     string
	CaptureSeek    time.Duration
	CaptureTimeout time.Duration
	CaptureFormat  string

	// Vertex AI (GENAI_BACKEND=vertex)
	VertexProject         string
	VertexLocation        string
	VertexCredentialsJSON string
	VertexCredentialsPath string
}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg := FromEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Backend: %s", cfg.GenerationBackend)
	log.Printf("   Veo models: fast=%s, quality=%s", cfg.VeoFastModel, cfg.VeoQualityModel)
	log.Printf("   Capture: seek=%s timeout=%s format=%s", cfg.CaptureSeek, cfg.CaptureTimeout, cfg.CaptureFormat)

	return cfg, nil
}

// FromEnv - .env 로드 없이 현재 환경변수만으로 Config 생성 (검증 없음)
func FromEnv() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 64),
		LogMode:     getEnv("LOG_MODE", "dev"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getEnvBool("REDIS_USE_TLS", false),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiAPIKeys:     splitList(getEnv("GEMINI_API_KEYS", "")),
		GenaiBackend:      strings.ToLower(getEnv("GENAI_BACKEND", GenaiGeminiAPI)),
		VeoFastModel:      getEnv("VEO_FAST_MODEL", "veo-3.1-fast-generate-preview"),
		VeoQualityModel:   getEnv("VEO_QUALITY_MODEL", "veo-3.1-generate-preview"),
		GenerationBackend: strings.ToLower(getEnv("GENERATION_BACKEND", BackendGenai)),

		RunWorker:         getEnvBool("RUN_WORKER", true),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),

		FFmpegPath:     getEnv("FFMPEG_PATH", "ffmpeg"),
		ScratchDir:     getEnv("SCRATCH_DIR", os.TempDir()),
		CaptureSeek:    time.Duration(getEnvInt("CAPTURE_SEEK_MS", 100)) * time.Millisecond,
		CaptureTimeout: time.Duration(getEnvInt("CAPTURE_TIMEOUT_SEC", 15)) * time.Second,
		CaptureFormat:  strings.ToLower(getEnv("CAPTURE_FORMAT", "png")),

		VertexProject:         getEnv("VERTEXAI_PROJECT", ""),
		VertexLocation:        getEnv("VERTEXAI_LOCATION", "us-central1"),
		VertexCredentialsJSON: getEnv("VERTEXAI_CREDENTIALS_JSON", ""),
		VertexCredentialsPath: getEnv("VERTEXAI_CREDENTIALS_PATH", ""),
	}
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	switch c.GenerationBackend {
	case BackendGenai:
		if err := c.validateGenai(); err != nil {
			return err
		}
	case BackendQueue:
		if c.RedisHost == "" {
			return fmt.Errorf("REDIS_HOST is required for the %s backend", BackendQueue)
		}
		// 워커가 같은 프로세스에서 돌면 Veo 호출 설정 필요
		if c.RunWorker {
			if err := c.validateGenai(); err != nil {
				return fmt.Errorf("RUN_WORKER: %w", err)
			}
			if c.WorkerConcurrency <= 0 {
				return fmt.Errorf("WORKER_CONCURRENCY must be positive")
			}
		}
	default:
		return fmt.Errorf("invalid GENERATION_BACKEND: %s", c.GenerationBackend)
	}

	if c.CaptureFormat != "png" && c.CaptureFormat != "webp" {
		return fmt.Errorf("invalid CAPTURE_FORMAT: %s", c.CaptureFormat)
	}
	if c.CaptureSeek <= 0 {
		return fmt.Errorf("CAPTURE_SEEK_MS must be positive")
	}
	if c.CaptureTimeout <= 0 {
		return fmt.Errorf("CAPTURE_TIMEOUT_SEC must be positive")
	}
	return nil
}

func (c *Config) validateGenai() error {
	switch c.GenaiBackend {
	case GenaiGeminiAPI:
		if len(c.APIKeys()) == 0 {
			return fmt.Errorf("GEMINI_API_KEY is required for the %s genai backend", GenaiGeminiAPI)
		}
	case GenaiVertexAI:
		if c.VertexProject == "" {
			return fmt.Errorf("VERTEXAI_PROJECT is required for the %s genai backend", GenaiVertexAI)
		}
	default:
		return fmt.Errorf("invalid GENAI_BACKEND: %s", c.GenaiBackend)
	}
	return nil
}

// APIKeys - 기본 키 + 추가 키 (중복 제거, 순서 유지)
func (c *Config) APIKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, k := range append([]string{c.GeminiAPIKey}, c.GeminiAPIKeys...) {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// MaxUploadBytes - multipart 업로드 최대 크기
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
