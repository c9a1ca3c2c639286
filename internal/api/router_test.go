package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/casper/babelbot/internal/config"
	"github.com/casper/babelbot/internal/domain"
	"github.com/casper/babelbot/internal/repository"
	"github.com/casper/babelbot/internal/service"
	"github.com/gin-gonic/gin"
)

type scriptedModel struct {
	result *service.ModelTranslation
	err    error
}

func (m *scriptedModel) Translate(ctx context.Context, text, targetLanguage string) (*service.ModelTranslation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func newTestRouter(t *testing.T, model service.TranslationModel) (*gin.Engine, *repository.HistoryRepository) {
	t.Helper()

	dbCfg := &config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxIdleConns: 2,
		MaxOpenConns: 5,
		AutoMigrate:  true,
	}
	db, err := repository.InitDB(dbCfg)
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	repo := repository.NewHistoryRepository(db)

	translator := service.NewTranslator(repo, model)
	poster := service.NewFollowupPoster(&config.FollowupConfig{})
	dispatcher := service.NewDispatcher(translator, poster)

	router := SetupRouter(translator, dispatcher, repo, &config.ServerConfig{
		Mode: "test",
		CORS: config.CORSConfig{AllowAllOrigins: true},
	})
	return router, repo
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedModel{})

	w := doJSON(router, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestTranslateEndpoint(t *testing.T) {
	model := &scriptedModel{result: &service.ModelTranslation{
		Original:         "Hello",
		Translated:       "Hola",
		DetectedLanguage: "english",
	}}
	router, _ := newTestRouter(t, model)

	w := doJSON(router, http.MethodPost, "/api/v1/translate",
		`{"message": "Hello", "language": "spanish"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result domain.TranslationResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.TranslatedMessage != "Hola" {
		t.Errorf("unexpected translation %q", result.TranslatedMessage)
	}
	if result.FromCache {
		t.Error("first request must not be from cache")
	}

	// Second identical request hits the cache.
	w = doJSON(router, http.MethodPost, "/api/v1/translate",
		`{"message": "Hello", "language": "spanish"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.FromCache {
		t.Error("second request must be from cache")
	}
	if result.UseCount != 2 {
		t.Errorf("expected use_count 2, got %d", result.UseCount)
	}
}

func TestTranslateEndpointMissingMessage(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedModel{})

	for _, body := range []string{`{}`, `{"language": "spanish"}`, `not json`} {
		w := doJSON(router, http.MethodPost, "/api/v1/translate", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestTranslateEndpointModelFailure(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedModel{err: errors.New("model down")})

	w := doJSON(router, http.MethodPost, "/api/v1/translate",
		`{"message": "Hello", "language": "spanish"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// Uniform message, no internal detail.
	if resp["error"] != "Translation failed, please try again." {
		t.Errorf("unexpected error message %q", resp["error"])
	}
	if strings.Contains(w.Body.String(), "model down") {
		t.Error("internal error detail leaked into the response")
	}
}

func TestTranslateEndpointParseFailure(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedModel{err: &service.ParseError{Raw: "gibberish reply"}})

	w := doJSON(router, http.MethodPost, "/api/v1/translate",
		`{"message": "Hello", "language": "spanish"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "gibberish") {
		t.Error("raw model reply leaked into the response")
	}
}

func TestTranslateAsyncEndpoint(t *testing.T) {
	model := &scriptedModel{result: &service.ModelTranslation{
		Original:         "Hello",
		Translated:       "Hola",
		DetectedLanguage: "english",
	}}
	router, _ := newTestRouter(t, model)

	w := doJSON(router, http.MethodPost, "/api/v1/translate/async",
		`{"message": "Hello", "language": "spanish"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["request_id"] == "" {
		t.Error("expected a request_id in the acknowledgment")
	}
}

func TestStatsEndpoint(t *testing.T) {
	model := &scriptedModel{result: &service.ModelTranslation{
		Original:         "Hello",
		Translated:       "Hola",
		DetectedLanguage: "english",
	}}
	router, _ := newTestRouter(t, model)

	doJSON(router, http.MethodPost, "/api/v1/translate",
		`{"message": "Hello", "language": "spanish"}`)

	w := doJSON(router, http.MethodGet, "/api/v1/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var stats domain.GlobalStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.TotalEntries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.TotalEntries)
	}
}

func TestUserEndpoints(t *testing.T) {
	model := &scriptedModel{result: &service.ModelTranslation{
		Original:         "Hello",
		Translated:       "Hola",
		DetectedLanguage: "english",
	}}
	router, _ := newTestRouter(t, model)

	w := doJSON(router, http.MethodGet, "/api/v1/users/u1/stats", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", w.Code)
	}

	doJSON(router, http.MethodPost, "/api/v1/translate",
		`{"message": "Hello", "language": "spanish", "user_id": "u1", "display_name": "Alice"}`)

	w = doJSON(router, http.MethodGet, "/api/v1/users/u1/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats domain.UserStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.TranslationCount != 1 {
		t.Errorf("expected 1 attribution, got %d", stats.TranslationCount)
	}

	w = doJSON(router, http.MethodDelete, "/api/v1/users/u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var deleted domain.DeleteUserDataResult
	if err := json.Unmarshal(w.Body.Bytes(), &deleted); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !deleted.UserDeleted || deleted.LinksDeleted != 1 {
		t.Errorf("unexpected delete result %+v", deleted)
	}

	w = doJSON(router, http.MethodGet, "/api/v1/users/u1/stats", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after deletion, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedModel{})

	w := doJSON(router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
