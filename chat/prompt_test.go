package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptContainsRules(t *testing.T) {
	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	prompt := buildPrompt("Wie lange?", []string{"Some passage."}, now)

	assert.Contains(t, prompt, "2026-08-30")
	assert.Contains(t, prompt, "Some passage.")
	assert.Contains(t, prompt, "Wie lange?")
	assert.Contains(t, prompt, "same language as the question")
	assert.Contains(t, prompt, "ONLY the context")
}

func TestBuildPromptAddsDurationHints(t *testing.T) {
	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	contexts := []string{"Worked at Acme from 2020-01-01 to 2023-04-05 as an engineer."}

	prompt := buildPrompt("How long at Acme?", contexts, now)

	assert.Contains(t, prompt, "Computed durations:")
	assert.Contains(t, prompt, "2020-01-01 to 2023-04-05: 3 years and 3 months")
}

func TestDurationHintsPresentAndDedup(t *testing.T) {
	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)
	text := "Role one: 2024-08-30 - present. Role repeated: 2024-08-30 - present."

	hints := durationHints(text, now)

	require.Len(t, hints, 1)
	assert.Equal(t, "2024-08-30 to present: 2 years and 0 months", hints[0])
}

func TestSplitProvidedContext(t *testing.T) {
	parts := splitProvidedContext("First chunk.\n---\nSecond chunk.\n---\n  \n")
	assert.Equal(t, []string{"First chunk.", "Second chunk."}, parts)
}
