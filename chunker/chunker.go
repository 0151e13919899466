// Package chunker splits documents into retrievable nodes.
package chunker

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/m4rc0z/securedoc-project/models"
)

// Utility metadata keys excluded from the embedded representation.
var defaultExcludedEmbedKeys = []string{"filename", "page_label"}

// Splitter turns a document into an ordered, unembedded node sequence.
type Splitter interface {
	Split(ctx context.Context, doc models.Document) ([]models.Node, error)
}

var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?]+\s*)`)

// splitSentences breaks text into trimmed sentences. Text without terminal
// punctuation becomes a single sentence.
func splitSentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	if len(raw) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	sentences := make([]string, 0, len(raw))
	matched := 0
	for _, s := range raw {
		matched += len(s)
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	// Keep any unterminated trailing text so no content is lost.
	if tail := strings.TrimSpace(text[min(matched, len(text)):]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// newNode builds a node inheriting document metadata. Node-positional fields
// are set afterwards by the splitter and are never overwritten by the
// document metadata.
func newNode(doc models.Document, text string, index int) models.Node {
	return models.Node{
		ID:                uuid.NewString(),
		Text:              text,
		Metadata:          doc.Metadata,
		ChunkIndex:        index,
		ExcludedEmbedKeys: append([]string(nil), defaultExcludedEmbedKeys...),
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
