package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emotion-diary/internal/config"
	"emotion-diary/internal/db"
	apihttp "emotion-diary/internal/http"
	"emotion-diary/internal/llm"
	"emotion-diary/internal/repository"
	"emotion-diary/internal/service"
	"emotion-diary/internal/speech"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
	}

	paletteRepo := repository.NewPgPaletteRepository(pool)
	diaryRepo := repository.NewPgDiaryRepository(pool)
	blobRepo := repository.NewPgBlobRepository(pool)

	llmClient, err := llm.NewClient(ctx, &cfg.AnalysisConfig, logger)
	if err != nil {
		logger.Fatal("llm client", zap.Error(err))
	}

	var audioSvc apihttp.AudioTranscriber
	transcriber, err := speech.NewTranscriber(ctx, &cfg.AnalysisConfig, logger)
	if err != nil {
		logger.Warn("transcriber not configured, audio endpoint disabled", zap.Error(err))
	} else {
		audioSvc = service.NewAudioService(logger, blobRepo, transcriber, cfg.TranscribeTimeout, cfg.MaxAudioBytes)
	}

	paletteSvc := service.NewPaletteService(logger, paletteRepo)
	var pipelineOpts []service.PipelineOption
	if cfg.ColorSource == config.ColorSourcePalette {
		pipelineOpts = append(pipelineOpts, service.WithPaletteColorSource())
	}
	pipeline, err := service.NewEmotionColorPipeline(logger, cfg.Variant(), llmClient, paletteSvc, pipelineOpts...)
	if err != nil {
		logger.Fatal("pipeline", zap.Error(err))
	}

	limiter := service.NewMemoryRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory rate limiter", zap.Error(err))
		} else {
			limiter = service.NewRedisRateLimiter(redisClient, cfg.RateLimitWindow, cfg.RateLimitMax)
		}
		cancel()
	}

	var jwtSvc *service.JWTService
	if cfg.JWTSecret != "" {
		jwtSvc = service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	} else {
		logger.Warn("jwt secret not configured, diary routes are unauthenticated")
	}

	store := service.NewAsyncResultStore(logger, diaryRepo, cfg.PersistWorkers, cfg.PersistQueueSize, cfg.PersistTimeout)
	store.Start()

	healthHandler := apihttp.NewHealthHandler(logger, pool)
	diaryHandler := apihttp.NewDiaryHandler(logger, pipeline, store, audioSvc, diaryRepo, limiter, cfg.MaxAudioBytes)
	paletteHandler := apihttp.NewPaletteHandler(logger, paletteSvc)
	router := apihttp.NewRouter(logger, healthHandler, diaryHandler, paletteHandler, jwtSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("variant", string(cfg.Variant())),
			zap.String("llm_provider", cfg.LLMProvider),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("persist queue drain", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.LogDevelopment {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
