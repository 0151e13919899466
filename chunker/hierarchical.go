package chunker

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/m4rc0z/securedoc-project/models"
)

// Nested window target sizes in characters.
const (
	parentWindowSize = 4000
	middleWindowSize = 1000
	leafWindowSize   = 500
)

// WindowMetadataKey holds the leaf's enclosing medium window text. It is
// excluded from embedding and used at query time to expand a retrieved leaf
// to its surrounding context.
const WindowMetadataKey = "window"

// HierarchicalSplitter splits text into three nested size tiers. Only the
// leaf windows are returned for embedding; each leaf carries its medium
// window's text in metadata so retrieval can expand small hits to their
// larger context.
type HierarchicalSplitter struct {
	parentSize int
	middleSize int
	leafSize   int
}

func NewHierarchicalSplitter() *HierarchicalSplitter {
	return &HierarchicalSplitter{
		parentSize: parentWindowSize,
		middleSize: middleWindowSize,
		leafSize:   leafWindowSize,
	}
}

func (s *HierarchicalSplitter) Split(_ context.Context, doc models.Document) ([]models.Node, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil
	}

	nodes := make([]models.Node, 0, 8)
	for _, parent := range splitWindows(doc.Text, s.parentSize) {
		parentID := uuid.NewString()
		for _, middle := range splitWindows(parent, s.middleSize) {
			middleID := uuid.NewString()
			for _, leaf := range splitWindows(middle, s.leafSize) {
				node := newNode(doc, leaf, len(nodes))
				node.ParentID = middleID
				if node.Metadata.Extra == nil {
					node.Metadata.Extra = map[string]string{}
				} else {
					extra := make(map[string]string, len(node.Metadata.Extra)+2)
					for k, v := range node.Metadata.Extra {
						extra[k] = v
					}
					node.Metadata.Extra = extra
				}
				node.Metadata.Extra[WindowMetadataKey] = middle
				node.Metadata.Extra["parent_id"] = parentID
				node.ExcludedEmbedKeys = append(node.ExcludedEmbedKeys, WindowMetadataKey, "parent_id")
				nodes = append(nodes, node)
			}
		}
	}

	return nodes, nil
}

// splitWindows cuts text into contiguous segments of at most target
// characters, breaking at whitespace where possible. Concatenating the
// segments in order reproduces the text's content order.
func splitWindows(text string, target int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= target {
		return []string{text}
	}

	segments := make([]string, 0, len(text)/target+1)
	for len(text) > target {
		cut := target
		if idx := strings.LastIndexAny(text[:target], " \t\n"); idx > 0 {
			cut = idx
		}
		segment := strings.TrimSpace(text[:cut])
		if segment != "" {
			segments = append(segments, segment)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		segments = append(segments, text)
	}
	return segments
}
