package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"emotion-diary/internal/domain"
)

// ResultStore guarda el registro del dia sin bloquear al llamador. Los errores solo se loguean.
type ResultStore interface {
	Save(record domain.DiaryRecord)
}

// DiaryWriter es la escritura que necesita el store (sobreescritura completa por uid+date).
type DiaryWriter interface {
	Upsert(ctx context.Context, record domain.DiaryRecord) error
}

const (
	defaultPersistWorkers = 2
	defaultPersistQueue   = 256
	defaultPersistTimeout = 10 * time.Second
)

// AsyncResultStore encola registros en un canal acotado que drenan N workers.
// Con la cola llena el registro se descarta con un log de error.
type AsyncResultStore struct {
	logger  *zap.Logger
	writer  DiaryWriter
	workers int
	timeout time.Duration

	queue     chan domain.DiaryRecord
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	startOnce sync.Once
}

func NewAsyncResultStore(logger *zap.Logger, writer DiaryWriter, workers, queueSize int, timeout time.Duration) *AsyncResultStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = defaultPersistWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultPersistQueue
	}
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return &AsyncResultStore{
		logger:  logger,
		writer:  writer,
		workers: workers,
		timeout: timeout,
		queue:   make(chan domain.DiaryRecord, queueSize),
	}
}

// Start lanza los workers. Llamadas repetidas no tienen efecto.
func (s *AsyncResultStore) Start() {
	s.startOnce.Do(func() {
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go s.run()
		}
	})
}

func (s *AsyncResultStore) Save(record domain.DiaryRecord) {
	if !validRecord(record) {
		s.logger.Error("diary record rejected: uid and date are required",
			zap.String("uid", record.UserID),
			zap.String("date", record.Date),
		)
		return
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Error("diary record dropped: store closed", zap.String("key", record.Key()))
		return
	}
	select {
	case s.queue <- record:
	default:
		s.logger.Error("diary record dropped: persist queue full", zap.String("key", record.Key()))
	}
}

// Close deja de aceptar registros y espera a que los workers vacien la cola.
func (s *AsyncResultStore) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncResultStore) run() {
	defer s.wg.Done()
	for record := range s.queue {
		s.write(record)
	}
}

func (s *AsyncResultStore) write(record domain.DiaryRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("diary write panicked", zap.String("key", record.Key()), zap.Any("panic", r))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.writer.Upsert(ctx, record); err != nil {
		s.logger.Error("diary write failed",
			zap.String("key", record.Key()),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("diary write success", zap.String("key", record.Key()))
}

// SyncResultStore escribe en el momento; lo usan el CLI y los tests.
type SyncResultStore struct {
	logger  *zap.Logger
	writer  DiaryWriter
	timeout time.Duration
}

func NewSyncResultStore(logger *zap.Logger, writer DiaryWriter, timeout time.Duration) *SyncResultStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return &SyncResultStore{logger: logger, writer: writer, timeout: timeout}
}

func (s *SyncResultStore) Save(record domain.DiaryRecord) {
	if !validRecord(record) {
		s.logger.Error("diary record rejected: uid and date are required")
		return
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.writer.Upsert(ctx, record); err != nil {
		s.logger.Error("diary write failed", zap.String("key", record.Key()), zap.Error(err))
	}
}

func validRecord(record domain.DiaryRecord) bool {
	return strings.TrimSpace(record.UserID) != "" && strings.TrimSpace(record.Date) != ""
}
