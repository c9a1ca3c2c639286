package service

import (
	"context"
	"errors"

	"github.com/casper/babelbot/internal/logger"
	"github.com/google/uuid"
)

// UserFacingError maps an internal failure to the uniform, non-leaking
// message shown to end users. Raw diagnostic detail stays in the logs.
func UserFacingError(err error) string {
	var parseErr *ParseError
	switch {
	case errors.Is(err, ErrMissingInput):
		return "Please provide a message to translate."
	case errors.As(err, &parseErr):
		return "Translation failed, please try again."
	default:
		return "Translation failed, please try again."
	}
}

// Dispatcher implements the two-phase deferred protocol: Submit returns an
// immediate acknowledgment value and schedules the actual translation on a
// background goroutine that delivers its outcome through the follow-up
// channel. The request handler never awaits the work.
type Dispatcher struct {
	translator *Translator
	poster     *FollowupPoster
}

// NewDispatcher creates a new dispatcher.
// Parameters:
//   - translator: orchestrator performing the actual work.
//   - poster: follow-up channel for result delivery.
// Returns:
//   - *Dispatcher: initialized dispatcher.
func NewDispatcher(translator *Translator, poster *FollowupPoster) *Dispatcher {
	return &Dispatcher{translator: translator, poster: poster}
}

// Submit acknowledges the request and schedules the translation.
//
// The background task is panic-safe: any failure, including a panic, still
// produces a user-visible failure notice through the follow-up channel and
// never crashes the process.
// Parameters:
//   - req: translation request to run in the background.
// Returns:
//   - string: request ID returned to the caller as the acknowledgment.
func (d *Dispatcher) Submit(req *TranslateRequest) string {
	requestID := uuid.New().String()

	// Detached from the inbound request lifecycle on purpose; cancellation
	// of the HTTP request must not cancel the deferred work.
	ctx := logger.SetRequestID(context.Background(), requestID)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.CtxError(ctx, "Deferred translation panicked: %v", rec)
				if err := d.poster.DeliverFailure(ctx, requestID, "Translation failed, please try again."); err != nil {
					logger.CtxError(ctx, "Failure notice delivery failed: %v", err)
				}
			}
		}()

		result, err := d.translator.Translate(ctx, req)
		if err != nil {
			logger.CtxError(ctx, "Deferred translation failed: %v", err)
			if derr := d.poster.DeliverFailure(ctx, requestID, UserFacingError(err)); derr != nil {
				logger.CtxError(ctx, "Failure notice delivery failed: %v", derr)
			}
			return
		}

		if err := d.poster.Deliver(ctx, requestID, result); err != nil {
			logger.CtxError(ctx, "Result delivery failed: %v", err)
		}
	}()

	return requestID
}
