package service

import (
	"context"
	"errors"
	"strings"

	"github.com/casper/babelbot/internal/domain"
	"github.com/casper/babelbot/internal/fingerprint"
	"github.com/casper/babelbot/internal/logger"
	"github.com/casper/babelbot/internal/metrics"
	"github.com/casper/babelbot/internal/repository"
)

// ErrMissingInput is returned when the request carries no message text.
var ErrMissingInput = errors.New("missing message text")

// DefaultLanguage is used when the caller supplies no target language.
const DefaultLanguage = "english"

// TranslationModel is the single outbound call the orchestrator depends on.
type TranslationModel interface {
	Translate(ctx context.Context, text, targetLanguage string) (*ModelTranslation, error)
}

// TranslateRequest carries one translation request through the orchestrator.
// UserID and DisplayName are optional; attribution happens only when both
// are present.
type TranslateRequest struct {
	Message     string `json:"message" binding:"required"`
	Language    string `json:"language"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Translator composes the history store and the model client into the
// cache-first translate operation.
type Translator struct {
	repo  *repository.HistoryRepository
	model TranslationModel
}

// NewTranslator creates a new translator.
// Parameters:
//   - repo: history store handle.
//   - model: model client used on cache misses.
// Returns:
//   - *Translator: initialized orchestrator.
func NewTranslator(repo *repository.HistoryRepository, model TranslationModel) *Translator {
	return &Translator{repo: repo, model: model}
}

// Translate serves one request with cache-first semantics: a hit returns the
// stored record (usage already bumped inside Lookup) tagged from_cache=true;
// a miss calls the model, persists the normalized reply, and returns it
// tagged from_cache=false. Persistence after a successful model call is
// best-effort relative to the user-visible result: a failed cache write is
// logged and the translation is still returned. Attribution is best-effort
// on both paths and never surfaces to the caller.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: translation request; Message is required.
// Returns:
//   - *domain.TranslationResult: translation tagged with cache provenance.
//   - error: ErrMissingInput, model failure, or *ParseError.
func (t *Translator) Translate(ctx context.Context, req *TranslateRequest) (*domain.TranslationResult, error) {
	message := req.Message
	if strings.TrimSpace(message) == "" {
		return nil, ErrMissingInput
	}

	language := strings.ToLower(strings.TrimSpace(req.Language))
	if language == "" {
		language = DefaultLanguage
	}

	fp := fingerprint.Fingerprint(message)
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldFingerprint: fp,
		logger.FieldLanguage:    language,
	})

	entry, err := t.repo.Lookup(ctx, fp, language)
	if err != nil {
		// Degraded read path: treat as a miss, the post-model upsert still
		// gets its chance to cache.
		logger.CtxWarn(ctx, "Cache lookup failed, treating as miss: msg=%q err=%v", truncate(message, 48), err)
		entry = nil
	}

	if entry != nil {
		metrics.CacheHitsTotal.Inc()
		t.attribute(ctx, req, entry.ID)
		return resultFromEntry(entry, true), nil
	}
	metrics.CacheMissesTotal.Inc()

	translated, err := t.model.Translate(ctx, message, language)
	if err != nil {
		// No partial writes on the failure path.
		return nil, err
	}

	stored, _, err := t.repo.Upsert(ctx, fp, message, language, translated.DetectedLanguage, translated.Translated)
	if err != nil {
		logger.CtxError(ctx, "Cache write failed after successful translation: msg=%q err=%v", truncate(message, 48), err)
		return &domain.TranslationResult{
			OriginalMessage:   message,
			TranslatedMessage: translated.Translated,
			DetectedLanguage:  translated.DetectedLanguage,
			TargetLanguage:    language,
			FromCache:         false,
			UseCount:          1,
		}, nil
	}

	t.attribute(ctx, req, stored.ID)
	return resultFromEntry(stored, false), nil
}

// attribute records the user against the cache entry when the caller supplied
// both an identifier and a display name. Failures are logged, never raised:
// the translation result is already correct whether or not the bookkeeping
// lands.
func (t *Translator) attribute(ctx context.Context, req *TranslateRequest, entryID uint) {
	if req.UserID == "" || req.DisplayName == "" {
		return
	}
	ctx = logger.SetUserID(ctx, req.UserID)
	if err := t.repo.AttributeUser(ctx, req.UserID, req.DisplayName, entryID); err != nil {
		logger.CtxError(ctx, "Attribution failed: %v", err)
	}
}

func resultFromEntry(entry *domain.CacheEntry, fromCache bool) *domain.TranslationResult {
	detected := "unknown"
	if entry.DetectedLanguage != nil && *entry.DetectedLanguage != "" {
		detected = *entry.DetectedLanguage
	}
	return &domain.TranslationResult{
		OriginalMessage:   entry.OriginalMessage,
		TranslatedMessage: entry.TranslatedMessage,
		DetectedLanguage:  detected,
		TargetLanguage:    entry.TargetLanguage,
		FromCache:         fromCache,
		UseCount:          entry.UseCount,
	}
}

// truncate limits a message to n runes for log output, keeping PII in logs
// to a prefix.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
