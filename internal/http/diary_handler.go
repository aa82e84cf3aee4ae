package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emotion-diary/internal/domain"
	"emotion-diary/internal/repository"
	"emotion-diary/internal/service"
)

// ReadingPipeline produce la lectura afectiva de un texto.
type ReadingPipeline interface {
	Run(ctx context.Context, userID, text string) (domain.Reading, error)
}

// AudioTranscriber sube y transcribe el audio de una entrada.
type AudioTranscriber interface {
	Transcribe(ctx context.Context, userID, date string, upload service.AudioUpload) (service.AudioResult, error)
}

// DiaryReader consulta entradas guardadas.
type DiaryReader interface {
	Get(ctx context.Context, userID, date string) (domain.DiaryRecord, error)
	Similar(ctx context.Context, userID string, variant domain.Variant, affect []float32, excludeDate string, k int) ([]domain.DiaryRecord, error)
}

const (
	defaultSimilarK = 5
	maxSimilarK     = 50
)

// DiaryHandler expone los endpoints de analisis e historial del diario.
type DiaryHandler struct {
	logger   *zap.Logger
	pipeline ReadingPipeline
	store    service.ResultStore
	audio    AudioTranscriber
	diaries  DiaryReader
	limiter  service.RateLimiter
	maxAudio int64
	now      func() time.Time
}

func NewDiaryHandler(
	logger *zap.Logger,
	pipeline ReadingPipeline,
	store service.ResultStore,
	audio AudioTranscriber,
	diaries DiaryReader,
	limiter service.RateLimiter,
	maxAudio int64,
) *DiaryHandler {
	return &DiaryHandler{
		logger:   logger,
		pipeline: pipeline,
		store:    store,
		audio:    audio,
		diaries:  diaries,
		limiter:  limiter,
		maxAudio: maxAudio,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PostText maneja POST /diary y POST /diary/text.
func (h *DiaryHandler) PostText(c *gin.Context) {
	var req struct {
		UserID string `form:"uid" json:"uid" binding:"required"`
		Date   string `form:"date" json:"date" binding:"required"`
		Text   string `form:"text" json:"text" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil || blank(req.UserID, req.Date, req.Text) {
		h.logger.Warn("invalid diary text request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !authorizeUser(c, req.UserID) || !h.allow(c, req.UserID) {
		return
	}

	reading, err := h.pipeline.Run(c.Request.Context(), req.UserID, req.Text)
	if err != nil {
		h.logger.Error("diary text processing failed",
			zap.String("uid", req.UserID),
			zap.String("date", req.Date),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H(reading.Fields()))
	h.save(req.UserID, req.Date, req.Text, domain.SourceText, reading)
}

// PostAudio maneja POST /diary/audio.
func (h *DiaryHandler) PostAudio(c *gin.Context) {
	userID := strings.TrimSpace(c.PostForm("uid"))
	date := strings.TrimSpace(c.PostForm("date"))
	file, err := c.FormFile("audio")
	if err != nil || userID == "" || date == "" {
		h.logger.Warn("invalid diary audio request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.maxAudio > 0 && file.Size > h.maxAudio {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio too large"})
		return
	}
	if !authorizeUser(c, userID) || !h.allow(c, userID) {
		return
	}
	if h.audio == nil {
		h.logger.Error("audio transcription not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	f, err := file.Open()
	if err != nil {
		h.logger.Warn("open audio upload failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Warn("read audio upload failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.audio.Transcribe(c.Request.Context(), userID, date, service.AudioUpload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAudioInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		case errors.Is(err, service.ErrAudioTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio too large"})
		default:
			h.logger.Error("diary audio transcription failed",
				zap.String("uid", userID),
				zap.String("date", date),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		}
		return
	}

	reading, err := h.pipeline.Run(c.Request.Context(), userID, result.Transcript)
	if err != nil {
		h.logger.Error("diary audio processing failed",
			zap.String("uid", userID),
			zap.String("date", date),
			zap.String("blob", result.BlobKey),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	resp := gin.H(reading.Fields())
	resp["transcript"] = result.Transcript
	c.JSON(http.StatusOK, resp)
	h.save(userID, date, result.Transcript, domain.SourceAudio, reading)
}

// GetEntry maneja GET /diary?uid=&date=.
func (h *DiaryHandler) GetEntry(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("uid"))
	date := strings.TrimSpace(c.Query("date"))
	if userID == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !authorizeUser(c, userID) {
		return
	}

	record, err := h.diaries.Get(c.Request.Context(), userID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.logger.Error("get diary entry failed", zap.String("uid", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load entry"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetSimilar maneja GET /diary/similar?uid=&date=&k=.
func (h *DiaryHandler) GetSimilar(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("uid"))
	date := strings.TrimSpace(c.Query("date"))
	if userID == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	k := defaultSimilarK
	if raw := c.Query("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		k = min(n, maxSimilarK)
	}
	if !authorizeUser(c, userID) {
		return
	}

	ctx := c.Request.Context()
	base, err := h.diaries.Get(ctx, userID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.logger.Error("get diary entry failed", zap.String("uid", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load entries"})
		return
	}

	entries, err := h.diaries.Similar(ctx, userID, base.Reading.Variant(), base.Reading.Affect(), date, k)
	if err != nil {
		h.logger.Error("similar diary entries failed", zap.String("uid", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load entries"})
		return
	}
	if entries == nil {
		entries = []domain.DiaryRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"entry": base, "similar": entries})
}

func (h *DiaryHandler) allow(c *gin.Context, userID string) bool {
	if h.limiter == nil || h.limiter.Allow(userID) {
		return true
	}
	h.logger.Warn("diary rate limited", zap.String("uid", userID), zap.Error(service.ErrRateLimited))
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
	return false
}

// save encola el registro despues de responder; nunca bloquea ni falla la request.
func (h *DiaryHandler) save(userID, date, text string, source domain.EntrySource, reading domain.Reading) {
	if h.store == nil {
		return
	}
	now := h.now()
	h.store.Save(domain.DiaryRecord{
		UserID:    userID,
		Date:      date,
		Text:      text,
		Source:    source,
		Reading:   reading,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
