package chat

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/m4rc0z/securedoc-project/models"
)

const contextSeparator = "\n---\n"

const promptTemplate = `You are a precise document assistant. Today's date is %s.

Answer the question using ONLY the context below. Rules:
- If the answer is not in the context, say you cannot find it in the documents.
- Be concrete and specific; never give generic filler.
- Answer in the same language as the question.
- When asked how long something lasted, compute the duration from the dates in the context: subtract the start date from the end date (use today's date for "present") and state the result in years and months.

Context:
%s

Question: %s

Answer:`

// buildPrompt assembles the synthesis prompt from retrieved or provided
// context blocks. Date ranges found in the context get their durations
// precomputed so the model does not have to do calendar arithmetic.
func buildPrompt(question string, contexts []string, now time.Time) string {
	joined := strings.Join(contexts, contextSeparator)
	if hints := durationHints(joined, now); len(hints) > 0 {
		joined += "\n\nComputed durations:\n" + strings.Join(hints, "\n")
	}
	return fmt.Sprintf(promptTemplate, now.Format("2006-01-02"), joined, question)
}

var dateRangePattern = regexp.MustCompile(
	`(?i)(\d{4}-\d{2}-\d{2}|\d{2}\.\d{2}\.\d{4}|\d{4}-\d{2}|\d{2}\.\d{4}|\d{4})\s*(?:-|–|—|to|until)\s*(\d{4}-\d{2}-\d{2}|\d{2}\.\d{2}\.\d{4}|\d{4}-\d{2}|\d{2}\.\d{4}|\d{4}|present|now)`)

// durationHints finds "start - end" date ranges in the context and renders
// their computed spans.
func durationHints(text string, now time.Time) []string {
	matches := dateRangePattern.FindAllStringSubmatch(text, -1)
	hints := make([]string, 0, len(matches))
	seen := map[string]bool{}
	for _, match := range matches {
		duration, err := CalculateDuration(match[1], match[2], now)
		if err != nil {
			continue
		}
		hint := fmt.Sprintf("%s to %s: %s", match[1], match[2], duration)
		if seen[hint] {
			continue
		}
		seen[hint] = true
		hints = append(hints, hint)
	}
	return hints
}

func contextsFromNodes(nodes []models.ScoredNode) []string {
	contexts := make([]string, 0, len(nodes))
	for _, node := range nodes {
		text := strings.TrimSpace(node.Node.Text)
		if text == "" {
			continue
		}
		contexts = append(contexts, text)
	}
	return contexts
}

// splitProvidedContext breaks caller-supplied context into blocks on the
// "---" separator so multi-document context keeps its boundaries.
func splitProvidedContext(provided string) []string {
	parts := strings.Split(provided, contextSeparator)
	contexts := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			contexts = append(contexts, trimmed)
		}
	}
	return contexts
}
