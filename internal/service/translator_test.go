package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/casper/babelbot/internal/config"
	"github.com/casper/babelbot/internal/repository"
)

// fakeModel is a scripted TranslationModel that records how often it was called.
type fakeModel struct {
	calls  int
	result *ModelTranslation
	err    error
}

func (m *fakeModel) Translate(ctx context.Context, text, targetLanguage string) (*ModelTranslation, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func newTestTranslator(t *testing.T, model TranslationModel) (*Translator, *repository.HistoryRepository) {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxIdleConns: 2,
		MaxOpenConns: 5,
		AutoMigrate:  true,
	}
	db, err := repository.InitDB(cfg)
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	repo := repository.NewHistoryRepository(db)
	return NewTranslator(repo, model), repo
}

func TestTranslateMissingInput(t *testing.T) {
	model := &fakeModel{}
	translator, _ := newTestTranslator(t, model)

	for _, message := range []string{"", "   ", "\n\t"} {
		_, err := translator.Translate(context.Background(), &TranslateRequest{Message: message})
		if !errors.Is(err, ErrMissingInput) {
			t.Errorf("message %q: expected ErrMissingInput, got %v", message, err)
		}
	}
	if model.calls != 0 {
		t.Errorf("model should not be called for empty input, got %d calls", model.calls)
	}
}

func TestTranslateMissThenHit(t *testing.T) {
	model := &fakeModel{result: &ModelTranslation{
		Original:         "Hello",
		Translated:       "Hola",
		DetectedLanguage: "english",
	}}
	translator, _ := newTestTranslator(t, model)
	ctx := context.Background()

	first, err := translator.Translate(ctx, &TranslateRequest{Message: "Hello", Language: "spanish"})
	if err != nil {
		t.Fatalf("first Translate failed: %v", err)
	}
	if first.FromCache {
		t.Error("first request must be a miss")
	}
	if first.TranslatedMessage != "Hola" {
		t.Errorf("unexpected translation %q", first.TranslatedMessage)
	}
	if first.UseCount != 1 {
		t.Errorf("expected use_count 1, got %d", first.UseCount)
	}

	second, err := translator.Translate(ctx, &TranslateRequest{Message: "Hello", Language: "spanish"})
	if err != nil {
		t.Fatalf("second Translate failed: %v", err)
	}
	if !second.FromCache {
		t.Error("second request must be a hit")
	}
	if second.UseCount != 2 {
		t.Errorf("expected use_count 2, got %d", second.UseCount)
	}
	if model.calls != 1 {
		t.Errorf("model should be called exactly once, got %d", model.calls)
	}
}

func TestTranslateEquivalentSubmissionsShareEntry(t *testing.T) {
	model := &fakeModel{result: &ModelTranslation{
		Original:         "Hello",
		Translated:       "Hola",
		DetectedLanguage: "english",
	}}
	translator, repo := newTestTranslator(t, model)
	ctx := context.Background()

	if _, err := translator.Translate(ctx, &TranslateRequest{Message: "Hello", Language: "spanish"}); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	// Different casing and whitespace, same cache key.
	result, err := translator.Translate(ctx, &TranslateRequest{
		Message:     "  HELLO  ",
		Language:    "Spanish",
		UserID:      "u1",
		DisplayName: "Alice",
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if !result.FromCache {
		t.Error("equivalent submission must hit the cache")
	}
	// The stored raw text is the first writer's.
	if result.OriginalMessage != "Hello" {
		t.Errorf("expected original message from first submission, got %q", result.OriginalMessage)
	}
	if model.calls != 1 {
		t.Errorf("model should be called once, got %d", model.calls)
	}

	stats, err := repo.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("UserStats failed: %v", err)
	}
	if stats == nil || stats.TranslationCount != 1 {
		t.Errorf("expected one attribution for the hit, got %+v", stats)
	}
}

func TestTranslateModelFailureWritesNothing(t *testing.T) {
	model := &fakeModel{err: errors.New("model unavailable")}
	translator, repo := newTestTranslator(t, model)
	ctx := context.Background()

	_, err := translator.Translate(ctx, &TranslateRequest{Message: "Hello", Language: "spanish"})
	if err == nil {
		t.Fatal("expected model failure to surface")
	}

	stats, err := repo.GlobalStats(ctx)
	if err != nil {
		t.Fatalf("GlobalStats failed: %v", err)
	}
	if stats.TotalEntries != 0 {
		t.Errorf("no cache entry may be written on failure, got %d", stats.TotalEntries)
	}
}

func TestTranslateDefaultLanguage(t *testing.T) {
	model := &fakeModel{result: &ModelTranslation{
		Original:         "Hallo",
		Translated:       "Hello",
		DetectedLanguage: "german",
	}}
	translator, _ := newTestTranslator(t, model)

	result, err := translator.Translate(context.Background(), &TranslateRequest{Message: "Hallo"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if result.TargetLanguage != DefaultLanguage {
		t.Errorf("expected default language %q, got %q", DefaultLanguage, result.TargetLanguage)
	}
}

func TestTranslateAttributionOnMiss(t *testing.T) {
	model := &fakeModel{result: &ModelTranslation{
		Original:         "Hello",
		Translated:       "Hola",
		DetectedLanguage: "english",
	}}
	translator, repo := newTestTranslator(t, model)
	ctx := context.Background()

	if _, err := translator.Translate(ctx, &TranslateRequest{
		Message:     "Hello",
		Language:    "spanish",
		UserID:      "u1",
		DisplayName: "Alice",
	}); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	stats, err := repo.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("UserStats failed: %v", err)
	}
	if stats == nil {
		t.Fatal("expected user to be recorded on the miss path")
	}
	if stats.TranslationCount != 1 {
		t.Errorf("expected 1 attribution, got %d", stats.TranslationCount)
	}
}

func TestTranslateAnonymousSkipsAttribution(t *testing.T) {
	model := &fakeModel{result: &ModelTranslation{
		Original:         "Hello",
		Translated:       "Hola",
		DetectedLanguage: "english",
	}}
	translator, repo := newTestTranslator(t, model)
	ctx := context.Background()

	// Only one of the two identity fields present: no attribution.
	if _, err := translator.Translate(ctx, &TranslateRequest{
		Message:  "Hello",
		Language: "spanish",
		UserID:   "u1",
	}); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	stats, err := repo.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("UserStats failed: %v", err)
	}
	if stats != nil {
		t.Errorf("expected no user record without a display name, got %+v", stats)
	}
}

func TestTranslateUnknownDetectedLanguage(t *testing.T) {
	model := &fakeModel{result: &ModelTranslation{
		Original:         "Hello",
		Translated:       "Hola",
		DetectedLanguage: "",
	}}
	translator, _ := newTestTranslator(t, model)

	result, err := translator.Translate(context.Background(), &TranslateRequest{Message: "Hello", Language: "spanish"})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if result.DetectedLanguage != "unknown" {
		t.Errorf("expected unknown detected language, got %q", result.DetectedLanguage)
	}
}
