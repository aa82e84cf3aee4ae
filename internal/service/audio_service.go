package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"emotion-diary/internal/domain"
	"emotion-diary/internal/speech"
)

var (
	ErrAudioInvalid    = errors.New("audio invalid")
	ErrAudioTooLarge   = errors.New("audio too large")
	ErrEmptyTranscript = errors.New("empty transcript")
)

// BlobStore guarda el audio original.
type BlobStore interface {
	Put(ctx context.Context, blob domain.AudioBlob) error
}

// AudioUpload es el archivo recibido en el formulario.
type AudioUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AudioResult devuelve la clave del blob y la transcripcion.
type AudioResult struct {
	BlobKey    string
	Transcript string
}

// AudioService sube el audio y lo transcribe.
type AudioService struct {
	logger      *zap.Logger
	blobs       BlobStore
	transcriber speech.Transcriber
	timeout     time.Duration
	maxBytes    int64
	now         func() time.Time
}

func NewAudioService(logger *zap.Logger, blobs BlobStore, transcriber speech.Transcriber, timeout time.Duration, maxBytes int64) *AudioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AudioService{
		logger:      logger,
		blobs:       blobs,
		transcriber: transcriber,
		timeout:     timeout,
		maxBytes:    maxBytes,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// BlobKey arma la clave {uid}/{date}/{uuid}{ext}.
func BlobKey(userID, date, filename string) string {
	return fmt.Sprintf("%s/%s/%s%s", userID, date, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
}

func (s *AudioService) Transcribe(ctx context.Context, userID, date string, upload AudioUpload) (AudioResult, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(date) == "" || len(upload.Data) == 0 {
		return AudioResult{}, ErrAudioInvalid
	}
	if s.maxBytes > 0 && int64(len(upload.Data)) > s.maxBytes {
		return AudioResult{}, ErrAudioTooLarge
	}
	if s.transcriber == nil {
		return AudioResult{}, fmt.Errorf("transcriber not configured")
	}

	blob := domain.AudioBlob{
		Key:         BlobKey(userID, date, upload.Filename),
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Data:        upload.Data,
		CreatedAt:   s.now(),
	}
	if s.blobs != nil {
		if err := s.blobs.Put(ctx, blob); err != nil {
			return AudioResult{}, fmt.Errorf("upload audio: %w", err)
		}
		s.logger.Info("audio uploaded", zap.String("key", blob.Key), zap.Int("bytes", len(blob.Data)))
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	transcript, err := s.transcriber.Transcribe(tctx, blob)
	if err != nil {
		return AudioResult{}, fmt.Errorf("transcribe audio: %w", err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return AudioResult{}, ErrEmptyTranscript
	}
	return AudioResult{BlobKey: blob.Key, Transcript: transcript}, nil
}
