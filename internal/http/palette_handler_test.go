package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emotion-diary/internal/domain"
	"emotion-diary/internal/repository"
	"emotion-diary/internal/service"
)

type mockPaletteRepo struct {
	rows map[string]domain.StoredPalette
	err  error
}

func (m *mockPaletteRepo) GetByUserID(_ context.Context, userID string) (domain.StoredPalette, error) {
	if m.err != nil {
		return domain.StoredPalette{}, m.err
	}
	row, ok := m.rows[userID]
	if !ok {
		return domain.StoredPalette{}, repository.ErrNotFound
	}
	return row, nil
}

func (m *mockPaletteRepo) Upsert(_ context.Context, p domain.StoredPalette) error {
	if m.err != nil {
		return m.err
	}
	m.rows[p.UserID] = p
	return nil
}

type healthyDB struct{ err error }

func (h healthyDB) Ping(context.Context) error { return h.err }

func newPaletteRouter(repo *mockPaletteRepo, db Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	palettes := service.NewPaletteService(logger, repo)
	diaryH := NewDiaryHandler(logger, nil, nil, nil, nil, nil, 0)
	return NewRouter(logger, NewHealthHandler(logger, db), diaryH, NewPaletteHandler(logger, palettes), nil)
}

func TestGetPaletteDefaults(t *testing.T) {
	r := newPaletteRouter(&mockPaletteRepo{rows: map[string]domain.StoredPalette{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/u1/palette", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	palette, ok := body["palette"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected body %v", body)
	}
	want := domain.DefaultPalette().Map()
	for role, color := range want {
		if palette[role] != color {
			t.Fatalf("role %s: expected %s, got %v", role, color, palette[role])
		}
	}
}

func TestPutPaletteMergesRoles(t *testing.T) {
	repo := &mockPaletteRepo{rows: map[string]domain.StoredPalette{}}
	r := newPaletteRouter(repo, nil)

	req := httptest.NewRequest(http.MethodPut, "/users/u1/palette", strings.NewReader(`{"bright":"#aabbcc"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPut, "/users/u1/palette", strings.NewReader(`{"calm":"112233"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	palette := decodeBody(t, rec)["palette"].(map[string]any)
	if palette["bright"] != "#AABBCC" || palette["calm"] != "#112233" || palette["dark"] != domain.DefaultDarkColor {
		t.Fatalf("unexpected palette %v", palette)
	}
}

func TestPutPaletteRejectsInvalidColor(t *testing.T) {
	r := newPaletteRouter(&mockPaletteRepo{rows: map[string]domain.StoredPalette{}}, nil)

	for _, payload := range []string{`{"dark":"#12345"}`, `{"dark":""}`, `not json`} {
		req := httptest.NewRequest(http.MethodPut, "/users/u1/palette", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", payload, rec.Code)
		}
	}
}

func TestPutPaletteStoreErrorIs500(t *testing.T) {
	r := newPaletteRouter(&mockPaletteRepo{rows: map[string]domain.StoredPalette{}, err: errors.New("db down")}, nil)

	req := httptest.NewRequest(http.MethodPut, "/users/u1/palette", strings.NewReader(`{"dark":"#123456"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	r := newPaletteRouter(&mockPaletteRepo{rows: map[string]domain.StoredPalette{}}, healthyDB{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || decodeBody(t, rec)["status"] != "ok" {
		t.Fatalf("unexpected root response %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected content type %q", ct)
	}

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d", rec.Code)
	}

	r = newPaletteRouter(&mockPaletteRepo{rows: map[string]domain.StoredPalette{}}, healthyDB{err: errors.New("refused")})
	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
