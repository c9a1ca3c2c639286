package service

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseError is returned when the model reply cannot be coerced into the
// expected JSON shape even after the repair pass. Raw carries the reply for
// diagnostics; it is logged, never shown to end users.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return "unparseable model reply"
}

// modelReply mirrors the JSON object the model is instructed to emit.
type modelReply struct {
	OriginalMessage   string `json:"original_message"`
	TranslatedMessage string `json:"translated_message"`
	DetectedLanguage  string `json:"detected_language"`
}

// bareKeyPattern matches object keys that are bare or partially quoted
// (e.g. `original_message:` or `"original_message:`) so they can be
// normalized to strict JSON.
var bareKeyPattern = regexp.MustCompile(`([{,]\s*)"?([A-Za-z_][A-Za-z0-9_]*)"?\s*:`)

// stripCodeFences removes optional markdown fence markers around the payload.
// The model is told not to use fences but frequently does anyway.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	// Drop a leading language tag like "json"
	if !strings.HasPrefix(s, "{") {
		if idx := strings.IndexAny(s, "{\n"); idx != -1 {
			s = s[idx:]
		}
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	return s
}

// quoteBareKeys rewrites bare or half-quoted object keys into quoted ones.
// It is a heuristic: a value containing `, word:` would be mangled, which is
// an accepted trade for recovering the common failure mode.
func quoteBareKeys(s string) string {
	return bareKeyPattern.ReplaceAllString(s, `$1"$2":`)
}

// ParseModelReply runs the two-stage parse pipeline over a raw model reply:
// fence stripping, strict parse, then a key-quoting repair pass. Missing
// fields after a successful parse fall back to defaults instead of erroring:
// an absent translation degrades to the original input, an absent detected
// language to "unknown".
// Parameters:
//   - raw: reply text as received from the model.
//   - fallbackOriginal: the submitted message, used for field defaults.
// Returns:
//   - *ModelTranslation: normalized record.
//   - error: *ParseError carrying raw on repair failure.
func ParseModelReply(raw, fallbackOriginal string) (*ModelTranslation, error) {
	content := stripCodeFences(raw)

	var reply modelReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		if err := json.Unmarshal([]byte(quoteBareKeys(content)), &reply); err != nil {
			return nil, &ParseError{Raw: raw}
		}
	}

	if reply.OriginalMessage == "" {
		reply.OriginalMessage = fallbackOriginal
	}
	if reply.TranslatedMessage == "" {
		reply.TranslatedMessage = fallbackOriginal
	}
	if reply.DetectedLanguage == "" {
		reply.DetectedLanguage = "unknown"
	}

	return &ModelTranslation{
		Original:         reply.OriginalMessage,
		Translated:       reply.TranslatedMessage,
		DetectedLanguage: strings.ToLower(strings.TrimSpace(reply.DetectedLanguage)),
	}, nil
}
