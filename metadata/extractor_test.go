package metadata

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4rc0z/securedoc-project/llm"
)

type stubLLM struct {
	response string
	err      error
	prompt   string
}

var _ llm.Client = (*stubLLM)(nil)

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func TestExtractParsesEmbeddedJSON(t *testing.T) {
	client := &stubLLM{response: "Sure, here is the metadata:\n```json\n" +
		`{"document_type":"CV","category":"hr","keywords":["go","sql"],"summary":"A resume."}` +
		"\n```"}
	extractor := NewExtractor(client, time.Second, nil)

	fields := extractor.Extract(context.Background(), "John Doe. Software engineer since 2019.")

	assert.Equal(t, "CV", fields["document_type"])
	assert.Equal(t, "hr", fields["category"])
	assert.Equal(t, []any{"go", "sql"}, fields["keywords"])
	assert.Contains(t, client.prompt, "John Doe")
}

func TestExtractLLMFailure(t *testing.T) {
	client := &stubLLM{err: errors.New("model offline")}
	extractor := NewExtractor(client, time.Second, nil)

	fields := extractor.Extract(context.Background(), "some document")

	assert.Equal(t, "Unknown", fields["document_type"])
	assert.Equal(t, "model offline", fields["error"])
}

func TestExtractNoJSON(t *testing.T) {
	client := &stubLLM{response: "I could not determine any metadata for this document."}
	extractor := NewExtractor(client, time.Second, nil)

	fields := extractor.Extract(context.Background(), "some document")

	assert.Empty(t, fields)
}

func TestExtractMalformedJSON(t *testing.T) {
	client := &stubLLM{response: `{"document_type": "CV", "category": `}
	extractor := NewExtractor(client, time.Second, nil)

	fields := extractor.Extract(context.Background(), "some document")

	assert.Empty(t, fields)
}

func TestExtractTruncatesLongInput(t *testing.T) {
	client := &stubLLM{response: "{}"}
	extractor := NewExtractor(client, time.Second, nil)

	long := make([]byte, maxInputChars*2)
	for i := range long {
		long[i] = 'a'
	}
	extractor.Extract(context.Background(), string(long))

	require.NotEmpty(t, client.prompt)
	assert.Less(t, len(client.prompt), maxInputChars+len(extractionPrompt))
}

func TestTruncateUTF8KeepsRunesIntact(t *testing.T) {
	// The limit lands on the second byte of the final two-byte rune.
	text := "a" + strings.Repeat("ü", maxInputChars/2)

	truncated := truncateUTF8(text, maxInputChars)

	assert.True(t, utf8.ValidString(truncated))
	assert.Equal(t, maxInputChars-1, len(truncated))
	assert.Equal(t, "short", truncateUTF8("short", maxInputChars))
}

func TestFirstJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, firstJSONObject(`prefix {"a":1} suffix`))
	assert.Equal(t, `{"a":{"b":2}}`, firstJSONObject(`{"a":{"b":2}}`))
	assert.Equal(t, `{"a":"}"}`, firstJSONObject(`{"a":"}"}`))
	assert.Equal(t, "", firstJSONObject("no braces at all"))
	assert.Equal(t, "", firstJSONObject(`{"unbalanced":`))
}
