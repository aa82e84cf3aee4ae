package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emotion-diary/internal/domain"
	"emotion-diary/internal/llm"
	"emotion-diary/internal/repository"
	"emotion-diary/internal/service"
	"emotion-diary/internal/speech"
)

type recordingStore struct {
	mu      sync.Mutex
	records []domain.DiaryRecord
}

func (s *recordingStore) Save(record domain.DiaryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *recordingStore) saved() []domain.DiaryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DiaryRecord(nil), s.records...)
}

type memoryDiaries struct {
	records    map[string]domain.DiaryRecord
	similar    []domain.DiaryRecord
	err        error
	lastK      int
	lastAffect []float32
}

func (m *memoryDiaries) Get(_ context.Context, userID, date string) (domain.DiaryRecord, error) {
	if m.err != nil {
		return domain.DiaryRecord{}, m.err
	}
	r, ok := m.records[userID+"_"+date]
	if !ok {
		return domain.DiaryRecord{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *memoryDiaries) Similar(_ context.Context, userID string, variant domain.Variant, affect []float32, excludeDate string, k int) ([]domain.DiaryRecord, error) {
	m.lastK = k
	m.lastAffect = affect
	return m.similar, nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

type diaryFixture struct {
	router  *gin.Engine
	llm     *llm.MockClient
	store   *recordingStore
	diaries *memoryDiaries
	stt     *speech.MockTranscriber
}

func newDiaryFixture(t *testing.T, variant domain.Variant, reply string, limiter service.RateLimiter, jwtSvc *service.JWTService) *diaryFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	mock := &llm.MockClient{Response: reply}
	palettes := service.NewPaletteService(logger, nil)
	pipeline, err := service.NewEmotionColorPipeline(logger, variant, mock, palettes)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	store := &recordingStore{}
	diaries := &memoryDiaries{records: map[string]domain.DiaryRecord{}}
	stt := &speech.MockTranscriber{Transcript: "今日は楽しかった"}
	audio := service.NewAudioService(logger, nil, stt, time.Second, 1<<20)

	diaryH := NewDiaryHandler(logger, pipeline, store, audio, diaries, limiter, 1<<20)
	router := NewRouter(logger, NewHealthHandler(logger, nil), diaryH, NewPaletteHandler(logger, palettes), jwtSvc)
	return &diaryFixture{router: router, llm: mock, store: store, diaries: diaries, stt: stt}
}

func postForm(r http.Handler, path string, form url.Values, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func diaryForm(uid, date, text string) url.Values {
	return url.Values{"uid": {uid}, "date": {date}, "text": {text}}
}

func TestPostTextReturnsReadingAndPersists(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantCoordinate, "x=8,y=4,color=#ffcc00", nil, nil)

	for _, path := range []string{"/diary", "/diary/text"} {
		rec := postForm(f.router, path, diaryForm("u1", "2026-01-01", "今日は楽しかった"), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", path, rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["x"] != float64(8) || body["y"] != float64(4) || body["color"] != "#FFCC00" {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
	}

	saved := f.store.saved()
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved records, got %d", len(saved))
	}
	rec := saved[0]
	if rec.UserID != "u1" || rec.Date != "2026-01-01" || rec.Source != domain.SourceText || rec.Text != "今日は楽しかった" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Reading.HexColor() != "#FFCC00" {
		t.Fatalf("unexpected saved color %s", rec.Reading.HexColor())
	}
}

func TestPostTextMissingFieldsIs400(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantCoordinate, "x=1,y=1,color=#000000", nil, nil)

	for _, form := range []url.Values{
		diaryForm("", "2026-01-01", "text"),
		diaryForm("u1", "", "text"),
		diaryForm("u1", "2026-01-01", "   "),
		{},
	} {
		rec := postForm(f.router, "/diary", form, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", form, rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "invalid request" {
			t.Fatalf("unexpected error body %v", body)
		}
	}
	if f.llm.Calls() != 0 {
		t.Fatalf("model must not be called on invalid input")
	}
}

func TestPostTextMalformedReplyIsOpaque500AndNotPersisted(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantCoordinate, "bad output with no structure", nil, nil)

	rec := postForm(f.router, "/diary", diaryForm("u1", "2026-01-01", "text"), "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "processing failed" {
		t.Fatalf("expected opaque error, got %v", body)
	}
	if strings.Contains(rec.Body.String(), "bad output") {
		t.Fatalf("raw model reply leaked to client")
	}
	if n := len(f.store.saved()); n != 0 {
		t.Fatalf("expected nothing persisted, got %d records", n)
	}
}

func TestPostTextUpstreamErrorIs500(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantCoordinate, "", nil, nil)
	f.llm.Err = errors.New("upstream timeout: secret detail")

	rec := postForm(f.router, "/diary", diaryForm("u1", "2026-01-01", "text"), "")
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "secret") {
		t.Fatalf("expected opaque 500, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestPostTextTraitsVariant(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantTraits, "fun=12,bright=-3,energy=5,color=#112233", nil, nil)

	rec := postForm(f.router, "/diary", diaryForm("u1", "2026-01-01", "text"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["fun"] != float64(10) || body["bright"] != float64(0) || body["energy"] != float64(5) || body["color"] != "#112233" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestPostTextLevelFallback(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantLevel, "no idea", nil, nil)

	rec := postForm(f.router, "/diary", diaryForm("u1", "2026-01-01", "text"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["level"] != float64(2) || body["color"] != "#88E0A6" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestPostTextRateLimited(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantCoordinate, "x=1,y=1,color=#000000", denyAllLimiter{}, nil)

	rec := postForm(f.router, "/diary", diaryForm("u1", "2026-01-01", "text"), "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if f.llm.Calls() != 0 {
		t.Fatalf("model must not be called when rate limited")
	}
}

func TestPostTextRequiresMatchingToken(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", time.Minute)
	f := newDiaryFixture(t, domain.VariantCoordinate, "x=1,y=1,color=#000000", nil, jwtSvc)
	token, err := jwtSvc.IssueAccessToken("u1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if rec := postForm(f.router, "/diary", diaryForm("u1", "d", "text"), ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := postForm(f.router, "/diary", diaryForm("u2", "d", "text"), token); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign uid, got %d", rec.Code)
	}
	if rec := postForm(f.router, "/diary", diaryForm("u1", "d", "text"), token); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with matching token, got %d", rec.Code)
	}
}

func newAudioRequest(t *testing.T, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("audio", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/diary/audio", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPostAudioTranscribesAndPersists(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantCoordinate, "x=8,y=4,color=#ffcc00", nil, nil)

	req := newAudioRequest(t, map[string]string{"uid": "u1", "date": "2026-01-01"}, "memo.m4a", []byte("audio-bytes"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["transcript"] != "今日は楽しかった" || body["color"] != "#FFCC00" {
		t.Fatalf("unexpected body %v", body)
	}
	if string(f.stt.Last.Data) != "audio-bytes" || !strings.HasSuffix(f.stt.Last.Key, ".m4a") {
		t.Fatalf("unexpected blob passed to transcriber: %+v", f.stt.Last)
	}
	saved := f.store.saved()
	if len(saved) != 1 || saved[0].Source != domain.SourceAudio || saved[0].Text != "今日は楽しかった" {
		t.Fatalf("unexpected saved records %+v", saved)
	}
}

func TestPostAudioMissingFileIs400(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantCoordinate, "x=1,y=1,color=#000000", nil, nil)

	req := newAudioRequest(t, map[string]string{"uid": "u1", "date": "2026-01-01"}, "", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPostAudioTranscriptionFailureIs500(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantCoordinate, "x=1,y=1,color=#000000", nil, nil)
	f.stt.Err = errors.New("stt unavailable")

	req := newAudioRequest(t, map[string]string{"uid": "u1", "date": "2026-01-01"}, "memo.wav", []byte("x"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "processing failed" {
		t.Fatalf("unexpected body %v", body)
	}
	if len(f.store.saved()) != 0 || f.llm.Calls() != 0 {
		t.Fatalf("nothing should run after a failed transcription")
	}
}

func TestGetEntryAndSimilar(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantCoordinate, "", nil, nil)
	base := domain.DiaryRecord{
		UserID: "u1", Date: "2026-01-02", Text: "t", Source: domain.SourceText,
		Reading: domain.CoordinateReading{X: 5, Y: -5, Color: "#A8E6CF"},
	}
	f.diaries.records["u1_2026-01-02"] = base
	f.diaries.similar = []domain.DiaryRecord{{
		UserID: "u1", Date: "2026-01-01", Text: "t", Source: domain.SourceText,
		Reading: domain.CoordinateReading{X: 4, Y: -6, Color: "#A8E6CF"},
	}}

	req := httptest.NewRequest(http.MethodGet, "/diary?uid=u1&date=2026-01-02", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["x"] != float64(5) || body["variant"] != "coordinate" {
		t.Fatalf("unexpected entry %v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/diary?uid=u1&date=2026-02-02", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/diary/similar?uid=u1&date=2026-01-02&k=500", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	similar, ok := body["similar"].([]any)
	if !ok || len(similar) != 1 {
		t.Fatalf("unexpected similar body %v", body)
	}
	if f.diaries.lastK != maxSimilarK {
		t.Fatalf("expected k capped at %d, got %d", maxSimilarK, f.diaries.lastK)
	}
	if len(f.diaries.lastAffect) != 2 {
		t.Fatalf("expected coordinate affect vector, got %v", f.diaries.lastAffect)
	}

	req = httptest.NewRequest(http.MethodGet, "/diary/similar?uid=u1&date=2026-01-02&k=zero", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad k, got %d", rec.Code)
	}
}

func TestGetEntryStoreErrorIs500(t *testing.T) {
	f := newDiaryFixture(t, domain.VariantCoordinate, "", nil, nil)
	f.diaries.err = errors.New("db down")

	req := httptest.NewRequest(http.MethodGet, "/diary?uid=u1&date=2026-01-02", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
