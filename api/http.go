package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/m4rc0z/securedoc-project/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func metadataFromMap(fields map[string]string) models.Metadata {
	meta := models.Metadata{
		Filename:     fields["filename"],
		Source:       fields["source"],
		Category:     fields["category"],
		DocumentType: fields["document_type"],
		Author:       fields["author"],
		Date:         fields["date"],
		Language:     fields["language"],
		Summary:      fields["summary"],
		PageLabel:    fields["page_label"],
	}
	known := map[string]bool{
		"filename": true, "source": true, "category": true,
		"document_type": true, "author": true, "date": true,
		"language": true, "summary": true, "page_label": true,
	}
	for key, value := range fields {
		if known[key] || value == "" {
			continue
		}
		if meta.Extra == nil {
			meta.Extra = map[string]string{}
		}
		meta.Extra[key] = value
	}
	return meta
}
