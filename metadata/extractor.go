// Package metadata derives document-level metadata from raw text via a
// structured LLM extraction prompt.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/m4rc0z/securedoc-project/llm"
)

// maxInputChars bounds LLM cost and latency for the extraction call.
const maxInputChars = 4000

const extractionPrompt = `Analyze the following document and extract its metadata.
Respond with a single JSON object containing exactly these fields:
"document_type", "category", "author", "date", "language", "keywords" (array of strings), "entities" (array of strings), "summary" (one sentence).
Use an empty string or empty array when a field cannot be determined.

Document:
%s`

// Extractor is a best-effort enhancement stage: it never returns an error,
// only a mapping that may describe its own failure.
type Extractor struct {
	llm     llm.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewExtractor(client llm.Client, timeout time.Duration, logger *zap.Logger) *Extractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{llm: client, timeout: timeout, logger: logger}
}

// Extract asks the LLM for the fixed metadata schema. On timeout or any
// model failure the result carries document_type "Unknown" plus the cause;
// a response with no recoverable JSON yields an empty mapping.
func (e *Extractor) Extract(ctx context.Context, text string) map[string]any {
	text = truncateUTF8(text, maxInputChars)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.llm.Complete(ctx, fmt.Sprintf(extractionPrompt, text))
	if err != nil {
		e.logger.Warn("metadata extraction failed", zap.Error(err))
		return map[string]any{
			"document_type": "Unknown",
			"error":         err.Error(),
		}
	}

	obj := firstJSONObject(raw)
	if obj == "" {
		e.logger.Warn("metadata extraction returned no JSON object")
		return map[string]any{}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		e.logger.Warn("metadata extraction returned malformed JSON", zap.Error(err))
		return map[string]any{}
	}
	return fields
}

// truncateUTF8 cuts text to at most limit bytes, backing off to the nearest
// rune boundary so no multibyte sequence is split.
func truncateUTF8(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}

// firstJSONObject finds the first balanced top-level JSON object in text,
// tolerating surrounding prose and markdown fences. Braces inside string
// literals are ignored.
func firstJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
