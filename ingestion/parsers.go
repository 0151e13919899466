package ingestion

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/m4rc0z/securedoc-project/models"
)

// DocumentPayload is a raw file handed to a parser.
type DocumentPayload struct {
	Path string
	Data []byte
}

// DocumentParser normalizes a payload into one or more documents.
type DocumentParser interface {
	Parse(ctx context.Context, payload DocumentPayload) ([]models.Document, error)
}

// ParserFor returns the parser for a detected format.
func ParserFor(format DocumentFormat) (DocumentParser, error) {
	switch format {
	case FormatMarkdown, FormatText:
		return plainTextParser{}, nil
	case FormatPDF:
		return pdfParser{}, nil
	case FormatCSV:
		return csvParser{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported document format", models.ErrValidation)
	}
}

type plainTextParser struct{}

func (plainTextParser) Parse(_ context.Context, payload DocumentPayload) ([]models.Document, error) {
	content := normalizePlainText(string(payload.Data))
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	return []models.Document{{
		ID:   uuid.NewString(),
		Text: content,
		Metadata: models.Metadata{
			Filename: filepath.Base(payload.Path),
		},
	}}, nil
}

type pdfParser struct{}

// Parse extracts one document per PDF page so page labels survive into node
// metadata and citations.
func (pdfParser) Parse(_ context.Context, payload DocumentPayload) ([]models.Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(payload.Data), int64(len(payload.Data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	docs := make([]models.Document, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		text = normalizePlainText(text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, models.Document{
			ID:   uuid.NewString(),
			Text: text,
			Metadata: models.Metadata{
				Filename:  filepath.Base(payload.Path),
				PageLabel: strconv.Itoa(i),
			},
		})
	}
	return docs, nil
}

type csvParser struct{}

func (csvParser) Parse(_ context.Context, payload DocumentPayload) ([]models.Document, error) {
	records, err := csv.NewReader(bytes.NewReader(payload.Data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	builder := &strings.Builder{}
	for idx, row := range records[1:] {
		builder.WriteString(formatCSVRow(headers, row, idx))
		builder.WriteString("\n\n")
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return nil, nil
	}
	return []models.Document{{
		ID:   uuid.NewString(),
		Text: text,
		Metadata: models.Metadata{
			Filename: filepath.Base(payload.Path),
		},
	}}, nil
}

func formatCSVRow(headers, row []string, idx int) string {
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "Row %d", idx+1)

	limit := len(headers)
	if len(row) < limit {
		limit = len(row)
	}
	for i := 0; i < limit; i++ {
		header := strings.TrimSpace(headers[i])
		if header == "" {
			header = fmt.Sprintf("Column %d", i+1)
		}
		fmt.Fprintf(builder, "\n%s: %s", header, strings.TrimSpace(row[i]))
	}
	for i := len(headers); i < len(row); i++ {
		fmt.Fprintf(builder, "\nExtra %d: %s", i+1, strings.TrimSpace(row[i]))
	}
	return builder.String()
}

func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
