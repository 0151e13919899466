package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/m4rc0z/securedoc-project/llm"
)

type stubLLM struct {
	response string
	err      error
	waitCtx  bool
	panics   bool

	prompts []string
}

var _ llm.Client = (*stubLLM)(nil)

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.panics {
		panic("llm exploded")
	}
	if s.waitCtx {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.response, s.err
}

func newTestService(client llm.Client, timeout time.Duration) *Service {
	return NewService(nil, nil, client, zap.NewNop(), Options{QueryTimeout: timeout})
}

func TestAskProvidedContext(t *testing.T) {
	client := &stubLLM{response: "The answer is 42."}
	svc := newTestService(client, time.Minute)
	svc.now = func() time.Time {
		return time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	}

	answer := svc.Ask(context.Background(), "What is the answer?", "Chunk one text here.\n---\nChunk two text here.")

	assert.Equal(t, "The answer is 42.", answer.Text)
	assert.Equal(t, []string{providedContextSource}, answer.Sources)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "Chunk one text here.")
	assert.Contains(t, prompt, "Chunk two text here.")
	assert.Contains(t, prompt, "2026-08-30")
	assert.Contains(t, prompt, "What is the answer?")
}

func TestAskShortContextIsIgnored(t *testing.T) {
	// Fewer than ten characters of context falls through to retrieval,
	// which is unconfigured here and must degrade to a failure answer.
	client := &stubLLM{response: "unused"}
	svc := newTestService(client, time.Minute)

	answer := svc.Ask(context.Background(), "Anything?", " short ")

	assert.Equal(t, failureAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestAskTimeout(t *testing.T) {
	client := &stubLLM{waitCtx: true}
	svc := newTestService(client, 20*time.Millisecond)

	answer := svc.Ask(context.Background(), "Slow question?", "Enough context to answer directly.")

	assert.Contains(t, answer.Text, "couldn't search the documents fast enough")
	assert.Equal(t, []string{timeoutSource}, answer.Sources)
}

func TestAskRecoversFromPanic(t *testing.T) {
	client := &stubLLM{panics: true}
	svc := newTestService(client, time.Minute)

	answer := svc.Ask(context.Background(), "Trigger?", "Enough context to answer directly.")

	assert.Equal(t, failureAnswer, answer.Text)
	assert.Equal(t, []string{}, answer.Sources)
}

func TestAskEmptyQuestion(t *testing.T) {
	svc := newTestService(&stubLLM{}, time.Minute)

	answer := svc.Ask(context.Background(), "   ", "")

	assert.Equal(t, failureAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
}
