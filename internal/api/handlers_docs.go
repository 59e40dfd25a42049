package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/docquiz/internal/artifact"
	"github.com/dgallion1/docquiz/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists stored documents, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.orchestrator.Store().ListDocuments(r.Context())
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.orchestrator.Store().GetDocument(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleReconstructed returns the normalized text units, one per paragraph.
func (s *Server) handleReconstructed(w http.ResponseWriter, r *http.Request) {
	text, err := s.orchestrator.Store().Reconstructed(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		storeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := artifact.WriteReconstructed(&buf, text); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", artifact.Text.ContentType())
	w.Write(buf.Bytes())
}

// handleEntities returns the entity-context records as JSON, or in the
// delimited text layout with ?format=text.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	pool, err := s.orchestrator.Store().Entities(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		storeError(w, err)
		return
	}

	format := artifact.JSON
	if r.URL.Query().Get("format") == "text" {
		format = artifact.Text
	}

	var buf bytes.Buffer
	if format == artifact.Text {
		err = artifact.WriteEntities(&buf, pool)
	} else {
		err = artifact.WriteJSON(&buf, map[string]any{"entities": pool})
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Write(buf.Bytes())
}

// handleQuestions renders the stored question set. JSON is the default.
func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	format := artifact.JSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := artifact.ParseFormat(q)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}

	ctx := r.Context()
	doc, err := s.orchestrator.Store().GetDocument(ctx, docID)
	if err != nil {
		storeError(w, err)
		return
	}
	set, err := s.orchestrator.Store().Questions(ctx, docID)
	if err != nil {
		storeError(w, err)
		return
	}

	// Render fully before writing so a failure can still become a 500.
	var buf bytes.Buffer
	if err := artifact.WriteSet(&buf, format, doc.Title, set); err != nil {
		s.log.Error("render questions failed", "doc_id", docID, "format", format, "error", err)
		jsonError(w, "failed to render questions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format == artifact.PDF {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", docID+format.Extension()))
	}
	w.Write(buf.Bytes())
}

// handleDeleteDocument deletes a document with its entities and questions.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.orchestrator.Store().DeleteDocument(r.Context(), docID); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}

func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	jsonError(w, err.Error(), http.StatusInternalServerError)
}
