package handler

import (
	"errors"
	"net/http"

	"github.com/casper/babelbot/internal/logger"
	"github.com/casper/babelbot/internal/service"
	"github.com/gin-gonic/gin"
)

// TranslateHandler handles translation endpoints.
type TranslateHandler struct {
	translator *service.Translator
	dispatcher *service.Dispatcher
}

// NewTranslateHandler creates a new translate handler.
// Parameters:
//   - translator: orchestrator for synchronous requests.
//   - dispatcher: two-phase dispatcher for deferred requests.
// Returns:
//   - *TranslateHandler: initialized handler.
func NewTranslateHandler(translator *service.Translator, dispatcher *service.Dispatcher) *TranslateHandler {
	return &TranslateHandler{
		translator: translator,
		dispatcher: dispatcher,
	}
}

// Translate handles POST /api/v1/translate.
//
// Failure responses are uniform and non-leaking: raw model output and
// internal error detail go to the logs only.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TranslateHandler) Translate(c *gin.Context) {
	var req service.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Please provide a message to translate.",
		})
		return
	}

	result, err := h.translator.Translate(c.Request.Context(), &req)
	if err != nil {
		h.writeTranslateError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// TranslateAsync handles POST /api/v1/translate/async.
//
// The request is acknowledged immediately with a request ID; the result is
// delivered later through the configured follow-up channel.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TranslateHandler) TranslateAsync(c *gin.Context) {
	var req service.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Please provide a message to translate.",
		})
		return
	}

	requestID := h.dispatcher.Submit(&req)
	c.JSON(http.StatusAccepted, gin.H{
		"request_id": requestID,
	})
}

func (h *TranslateHandler) writeTranslateError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	if errors.Is(err, service.ErrMissingInput) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Please provide a message to translate.",
		})
		return
	}

	var parseErr *service.ParseError
	if errors.As(err, &parseErr) {
		// Raw reply stays in the logs for diagnostics.
		logger.CtxError(ctx, "Model reply unparseable: raw=%q", parseErr.Raw)
	} else {
		logger.CtxError(ctx, "Translation failed: %v", err)
	}

	c.JSON(http.StatusBadGateway, gin.H{
		"error": "Translation failed, please try again.",
	})
}
