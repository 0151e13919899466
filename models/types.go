// Package models holds the domain types shared across the RAG pipeline.
package models

import "fmt"

// Metadata is the typed document metadata schema. Known fields are populated
// at ingestion (caller-supplied values win over extracted ones); anything
// outside the schema travels in Extra.
type Metadata struct {
	Filename     string            `json:"filename,omitempty"`
	Source       string            `json:"source,omitempty"`
	Category     string            `json:"category,omitempty"`
	DocumentType string            `json:"document_type,omitempty"`
	Author       string            `json:"author,omitempty"`
	Date         string            `json:"date,omitempty"`
	Language     string            `json:"language,omitempty"`
	Summary      string            `json:"summary,omitempty"`
	PageLabel    string            `json:"page_label,omitempty"`
	Keywords     []string          `json:"keywords,omitempty"`
	Entities     []string          `json:"entities,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Merge overlays other onto m, with m's values winning on collision.
func (m Metadata) Merge(other Metadata) Metadata {
	out := m
	if out.Filename == "" {
		out.Filename = other.Filename
	}
	if out.Source == "" {
		out.Source = other.Source
	}
	if out.Category == "" {
		out.Category = other.Category
	}
	if out.DocumentType == "" {
		out.DocumentType = other.DocumentType
	}
	if out.Author == "" {
		out.Author = other.Author
	}
	if out.Date == "" {
		out.Date = other.Date
	}
	if out.Language == "" {
		out.Language = other.Language
	}
	if out.Summary == "" {
		out.Summary = other.Summary
	}
	if out.PageLabel == "" {
		out.PageLabel = other.PageLabel
	}
	if len(out.Keywords) == 0 {
		out.Keywords = other.Keywords
	}
	if len(out.Entities) == 0 {
		out.Entities = other.Entities
	}
	for k, v := range other.Extra {
		if out.Extra == nil {
			out.Extra = map[string]string{}
		}
		if _, ok := out.Extra[k]; !ok {
			out.Extra[k] = v
		}
	}
	return out
}

// Pair is an ordered metadata key/value entry.
type Pair struct {
	Key   string
	Value string
}

// Pairs returns the populated metadata fields as ordered key/value pairs.
// The ordering is stable so that embedded representations are deterministic.
func (m Metadata) Pairs() []Pair {
	pairs := make([]Pair, 0, 8)
	add := func(key, value string) {
		if value != "" {
			pairs = append(pairs, Pair{Key: key, Value: value})
		}
	}
	add("filename", m.Filename)
	add("source", m.Source)
	add("category", m.Category)
	add("document_type", m.DocumentType)
	add("author", m.Author)
	add("date", m.Date)
	add("language", m.Language)
	add("summary", m.Summary)
	add("page_label", m.PageLabel)
	if len(m.Keywords) > 0 {
		add("keywords", joinComma(m.Keywords))
	}
	if len(m.Entities) > 0 {
		add("entities", joinComma(m.Entities))
	}
	for _, key := range sortedKeys(m.Extra) {
		add(key, m.Extra[key])
	}
	return pairs
}

// Document is a raw input text plus its metadata, immutable once chunked.
type Document struct {
	ID       string
	Text     string
	Metadata Metadata
}

// Node is the minimal retrievable unit: a chunk of document text with its
// embedding, metadata, and positional information.
type Node struct {
	ID         string
	Text       string
	Embedding  []float32
	Metadata   Metadata
	ParentID   string
	ChunkIndex int
	// ExcludedEmbedKeys lists metadata keys that must not contribute to the
	// embedded representation (utility keys such as filename or window text).
	ExcludedEmbedKeys []string
}

// EmbedText renders the text that is embedded for this node: the
// non-excluded metadata pairs followed by the chunk content.
func (n Node) EmbedText() string {
	excluded := make(map[string]struct{}, len(n.ExcludedEmbedKeys))
	for _, key := range n.ExcludedEmbedKeys {
		excluded[key] = struct{}{}
	}
	out := ""
	for _, pair := range n.Metadata.Pairs() {
		if _, skip := excluded[pair.Key]; skip {
			continue
		}
		out += fmt.Sprintf("%s: %s\n", pair.Key, pair.Value)
	}
	if out != "" {
		out += "\n"
	}
	return out + n.Text
}

// ScoredNode pairs a node with its relevance scores. Similarity comes from
// vector retrieval; RerankScore from the cross-encoder pass. The two are not
// comparable and are kept apart.
type ScoredNode struct {
	Node        Node
	Similarity  float64
	RerankScore float64
	Reranked    bool
}

// Answer is the final, always well-formed result of a query.
type Answer struct {
	Text    string
	Sources []string
}

// DistanceMetric selects the collection's vector distance function.
type DistanceMetric string

const (
	MetricL2     DistanceMetric = "l2"
	MetricCosine DistanceMetric = "cosine"
)
