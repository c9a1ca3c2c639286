package service

import (
	"errors"
	"testing"
)

func TestParseModelReply(t *testing.T) {
	testCases := []struct {
		name           string
		raw            string
		fallback       string
		wantOriginal   string
		wantTranslated string
		wantDetected   string
	}{
		{
			name:           "strict json",
			raw:            `{"original_message": "Hello", "translated_message": "Hola", "detected_language": "English"}`,
			fallback:       "Hello",
			wantOriginal:   "Hello",
			wantTranslated: "Hola",
			wantDetected:   "english",
		},
		{
			name:           "fenced with language tag",
			raw:            "```json\n{\"original_message\": \"Hello\", \"translated_message\": \"Hola\", \"detected_language\": \"english\"}\n```",
			fallback:       "Hello",
			wantOriginal:   "Hello",
			wantTranslated: "Hola",
			wantDetected:   "english",
		},
		{
			name:           "fenced without language tag",
			raw:            "```\n{\"translated_message\": \"Hola\", \"detected_language\": \"english\"}\n```",
			fallback:       "Hello",
			wantOriginal:   "Hello",
			wantTranslated: "Hola",
			wantDetected:   "english",
		},
		{
			name:           "bare keys repaired",
			raw:            `{original_message: "Hello", translated_message: "Hola", detected_language: "english"}`,
			fallback:       "Hello",
			wantOriginal:   "Hello",
			wantTranslated: "Hola",
			wantDetected:   "english",
		},
		{
			name:           "fenced bare keys",
			raw:            "```json\n{original_message: \"Hello\", translated_message: \"Hola\", detected_language: \"english\"}\n```",
			fallback:       "Hello",
			wantOriginal:   "Hello",
			wantTranslated: "Hola",
			wantDetected:   "english",
		},
		{
			name:           "half quoted keys",
			raw:            `{"original_message: "Hello", "translated_message: "Hola", "detected_language: "english"}`,
			fallback:       "Hello",
			wantOriginal:   "Hello",
			wantTranslated: "Hola",
			wantDetected:   "english",
		},
		{
			name:           "missing translation falls back to input",
			raw:            `{"detected_language": "english"}`,
			fallback:       "Hello",
			wantOriginal:   "Hello",
			wantTranslated: "Hello",
			wantDetected:   "english",
		},
		{
			name:           "missing detected language defaults to unknown",
			raw:            `{"original_message": "Hello", "translated_message": "Hola"}`,
			fallback:       "Hello",
			wantOriginal:   "Hello",
			wantTranslated: "Hola",
			wantDetected:   "unknown",
		},
		{
			name:           "detected language normalized",
			raw:            `{"translated_message": "Hola", "detected_language": "  ENGLISH  "}`,
			fallback:       "Hello",
			wantOriginal:   "Hello",
			wantTranslated: "Hola",
			wantDetected:   "english",
		},
		{
			name:           "surrounding whitespace",
			raw:            "\n\n  {\"translated_message\": \"Hola\", \"detected_language\": \"english\"}  \n",
			fallback:       "Hello",
			wantOriginal:   "Hello",
			wantTranslated: "Hola",
			wantDetected:   "english",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseModelReply(tc.raw, tc.fallback)
			if err != nil {
				t.Fatalf("ParseModelReply failed: %v", err)
			}
			if got.Original != tc.wantOriginal {
				t.Errorf("original: got %q, want %q", got.Original, tc.wantOriginal)
			}
			if got.Translated != tc.wantTranslated {
				t.Errorf("translated: got %q, want %q", got.Translated, tc.wantTranslated)
			}
			if got.DetectedLanguage != tc.wantDetected {
				t.Errorf("detected: got %q, want %q", got.DetectedLanguage, tc.wantDetected)
			}
		})
	}
}

func TestParseModelReplyFailure(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{name: "prose refusal", raw: "I'm sorry, I can't translate that."},
		{name: "empty reply", raw: ""},
		{name: "truncated json", raw: `{"translated_message": "Hol`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseModelReply(tc.raw, "Hello")
			if err == nil {
				t.Fatal("expected error")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			// Raw carries the reply verbatim for diagnostics.
			if parseErr.Raw != tc.raw {
				t.Errorf("Raw: got %q, want %q", parseErr.Raw, tc.raw)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fences", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "plain fences", in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "json tag", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "tag on same line", in: "```json {\"a\": 1}```", want: `{"a": 1}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripCodeFences(tc.in); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
