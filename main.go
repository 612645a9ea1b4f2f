package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"veo-studio-server/modules/capture"
	"veo-studio-server/modules/common/config"
	"veo-studio-server/modules/common/logger"
	redisClient "veo-studio-server/modules/common/redis"
	"veo-studio-server/modules/studio"
	"veo-studio-server/modules/veo3"
)

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": "veo-studio",
			"backend": backend,
		})
	}
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("❌ Failed to create logger: %v", err)
	}
	defer logr.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 프레임 추출 파이프라인
	pipeline := capture.NewPipeline(
		capture.NewFFmpegExtractor(cfg.FFmpegPath, nil),
		capture.NewTempScratch(cfg.ScratchDir),
		capture.Options{
			SeekOffset: cfg.CaptureSeek,
			Timeout:    cfg.CaptureTimeout,
			Format:     cfg.CaptureFormat,
		},
		logr,
	)

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(enableCORS)

	// 생성 백엔드 선택
	var generator studio.Generator
	var worker *veo3.Worker

	switch cfg.GenerationBackend {
	case config.BackendQueue:
		rdb, err := redisClient.Connect(cfg, logr)
		if err != nil {
			logr.Fatal("❌ Failed to connect to Redis", "error", err)
		}
		defer rdb.Close()

		generator = veo3.NewQueueGenerator(rdb, logr)
		veo3.NewJobHandler(veo3.NewJobStore(rdb), logr).RegisterRoutes(r)

		if cfg.RunWorker {
			genaiGenerator, err := veo3.NewGenaiGenerator(ctx, cfg, logr)
			if err != nil {
				logr.Fatal("❌ Failed to initialize Veo generator", "error", err)
			}
			worker = veo3.NewWorker(rdb, genaiGenerator, int64(cfg.WorkerConcurrency), logr)
		}

	default:
		genaiGenerator, err := veo3.NewGenaiGenerator(ctx, cfg, logr)
		if err != nil {
			logr.Fatal("❌ Failed to initialize Veo generator", "error", err)
		}
		generator = genaiGenerator
	}

	service := studio.NewService(studio.NewAssembler(pipeline, logr), generator, logr)
	handler := studio.NewHandler(service, cfg.MaxUploadBytes(), logr)

	// 폼 세션 관리 + 정리 루틴
	registry := studio.NewRegistry(logr)
	registry.StartCleanup(ctx, studio.DefaultSweepInterval, studio.DefaultIdleTimeout)

	// 라우트 설정
	r.HandleFunc("/", healthCheck(cfg.GenerationBackend)).Methods("GET")
	r.HandleFunc("/health", healthCheck(cfg.GenerationBackend)).Methods("GET")
	r.HandleFunc("/api/video/modes", handler.HandleModes).Methods("GET")
	r.HandleFunc("/api/video/generate", handler.HandleGenerate).Methods("POST", "OPTIONS")
	// 웹소켓 이벤트는 base64 라서 업로드 한도의 2배까지 허용
	r.Handle("/ws/video", studio.NewSessionHandler(service, registry, 2*cfg.MaxUploadBytes(), logr))
	registry.RegisterRoutes(r)

	// Redis Queue Worker 시작 (백그라운드)
	workerDone := make(chan struct{})
	if worker != nil {
		go func() {
			defer close(workerDone)
			worker.Start(ctx)
		}()
	} else {
		close(workerDone)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logr.Info("🛑 Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("Server shutdown failed", "error", err)
		}
	}()

	logr.Info("🚀 Veo Studio Server starting", "port", cfg.Port, "backend", cfg.GenerationBackend)
	logr.Info("📡 WebSocket endpoint", "url", "ws://localhost:"+cfg.Port+"/ws/video")
	logr.Info("❤️  Health check", "url", "http://localhost:"+cfg.Port+"/health")
	logr.Info("📊 Metrics", "url", "http://localhost:"+cfg.Port+"/metrics")

	// 서버 시작
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Fatal("Server failed to start", "error", err)
	}

	<-workerDone
	logr.Info("👋 Server stopped")
}
