// Package http - knowledge.go serves the knowledge base endpoints.
package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

var errNoText = errors.New("no text could be extracted from the upload")

type uploadRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type queryRequest struct {
	Requirement string `json:"requirement"`
	Mode        string `json:"mode"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.knowledge.UploadedDocuments())
}

// handleAddDocument accepts either a multipart "file" upload, which goes
// through text extraction, or a JSON body with inline text content.
func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)

	filename, content, err := s.readUpload(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	res := s.knowledge.AddDocument(r.Context(), filename, content)
	if !res.Success {
		err := res.Err
		if err == nil {
			err = errors.New(res.Error)
		}
		writeJSON(w, statusFor(err), res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) readUpload(r *http.Request) (string, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req uploadRequest
		if err := decodeJSON(r, &req); err != nil {
			return "", "", err
		}
		if req.Filename == "" {
			return "", "", fmt.Errorf("%w: filename is required", errBadRequest)
		}
		return req.Filename, req.Content, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		return "", "", fmt.Errorf("%w: file exceeds %d bytes", errBadRequest, maxUploadBytes)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", errBadRequest, err)
	}

	name := filepath.Base(header.Filename)
	text, ok := s.extractor.Extract(r.Context(), name, data)
	if !ok {
		return "", "", errNoText
	}
	return name, text, nil
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	writeRemoval(w, s.knowledge.RemoveDocument(r.Context(), r.PathValue("filename")))
}

func (s *Server) handleRemoveByHash(w http.ResponseWriter, r *http.Request) {
	writeRemoval(w, s.knowledge.RemoveDocumentByHash(r.Context(), r.PathValue("hash")))
}

func writeRemoval(w http.ResponseWriter, res entities.RemoveResult) {
	if res.Success {
		writeJSON(w, http.StatusOK, res)
		return
	}
	err := res.Err
	if err == nil {
		err = errors.New(res.Error)
	}
	writeJSON(w, statusFor(err), res)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.knowledge.Summary())
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if err := s.knowledge.Rebuild(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.knowledge.Summary())
}

// handleKnowledgeQuery always answers 200; failures are reported in the
// result body with empty collections.
func (s *Server) handleKnowledgeQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.knowledge.Query(r.Context(), req.Requirement, req.Mode))
}
