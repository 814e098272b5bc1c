package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/pipeline"
	"github.com/jonathan/resume-optimizer/internal/rendering"
	"github.com/jonathan/resume-optimizer/internal/server/middleware"
	"github.com/jonathan/resume-optimizer/internal/storage"
)

const (
	multipartMemory = 32 << 20
	// formOverhead allows for the text fields and multipart framing around the PDF
	formOverhead = 1 << 20
	maxListLimit = 100

	msgRequiredFields = "PDF resume, company name, and role are required"
	msgPDFOnly        = "Only PDF files are accepted"
)

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTemplates lists the available resume templates
func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"templates": rendering.Templates()})
}

// handleOptimize runs the whole optimization and returns the result
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	req, err := s.optimizeRequest(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result := s.optimizer.Run(r.Context(), req)
	if !result.Success {
		s.jsonResponse(w, HTTPStatus(result.Err), result)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleOptimizeStream runs the optimization in the background and streams its
// progress as SSE, ending with a complete or error event
func (s *Server) handleOptimizeStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.optimizeRequest(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx := r.Context()
	events := make(chan pipeline.ProgressEvent, 16)
	results := make(chan *pipeline.Result, 1)
	req.OnProgress = func(event pipeline.ProgressEvent) {
		select {
		case events <- event:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(events)
		results <- s.optimizer.Run(ctx, req)
	}()

	writeFailed := false
	for event := range events {
		if err := sse.WriteEvent(eventProgress, event); err != nil && !writeFailed {
			writeFailed = true
			log.Printf("[server] client left the stream for %s / %s: %v", req.Company, req.Role, err)
		}
	}

	result := <-results
	if writeFailed {
		return
	}
	if !result.Success {
		if err := sse.WriteError(result.Error); err != nil {
			log.Printf("[server] error writing SSE error event: %v", err)
		}
		return
	}
	if err := sse.WriteEvent(eventComplete, result); err != nil {
		log.Printf("[server] error writing SSE complete event: %v", err)
	}
}

// optimizeRequest reads the multipart upload into a pipeline request
func (s *Server) optimizeRequest(w http.ResponseWriter, r *http.Request) (*pipeline.Request, error) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		return nil, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, s.errTooLarge()
		}
		return nil, &ErrValidation{Field: "body", Message: "Expected a multipart form upload"}
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	company := strings.TrimSpace(r.FormValue("companyName"))
	role := strings.TrimSpace(r.FormValue("role"))
	file, header, err := r.FormFile("resume")
	if err != nil || company == "" || role == "" {
		return nil, &ErrValidation{Field: "resume", Message: msgRequiredFields}
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return nil, &ErrValidation{Field: "resume", Message: msgPDFOnly}
	}
	if header.Size > s.maxUpload {
		return nil, s.errTooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		return nil, &ErrValidation{Field: "resume", Message: "Failed to read the uploaded file"}
	}
	if int64(len(data)) > s.maxUpload {
		return nil, s.errTooLarge()
	}

	return &pipeline.Request{
		UserID:           userID.String(),
		Document:         data,
		OriginalFilename: header.Filename,
		Company:          company,
		Role:             role,
		CompanyDetails:   strings.TrimSpace(r.FormValue("companyDetails")),
		Template:         r.FormValue("template"),
	}, nil
}

func (s *Server) errTooLarge() error {
	return &ErrValidation{Field: "resume", Message: fmt.Sprintf("PDF must be %dMB or smaller", s.maxUpload>>20)}
}

// resumeResponse is a stored resume with a download link resolved for this request
type resumeResponse struct {
	*db.OptimizedResume
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// handleListResumes returns the caller's resumes, newest first
func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	if s.resumes == nil {
		s.writeError(w, &ErrUnavailable{Feature: "Resume history"})
		return
	}
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	limit := db.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			s.writeError(w, &ErrValidation{Field: "limit", Message: fmt.Sprintf("limit must be between 1 and %d", maxListLimit)})
			return
		}
	}

	list, err := s.resumes.ListResumes(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, fmt.Errorf("failed to list resumes: %w", err))
		return
	}
	if list == nil {
		list = []db.ResumeSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"resumes": list})
}

// handleGetResume returns one of the caller's resumes
func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	resume, err := s.ownedResume(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resumeResponse{
		OptimizedResume: resume,
		DownloadURL:     s.downloadURL(r.Context(), resume),
	})
}

// handleDeleteResume removes one of the caller's resumes and its stored PDF
func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	resume, err := s.ownedResume(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	deleted, err := s.resumes.DeleteResume(r.Context(), resume.ID, resume.UserID)
	if err != nil {
		s.writeError(w, fmt.Errorf("failed to delete resume: %w", err))
		return
	}
	if !deleted {
		s.writeError(w, &ErrNotFound{Resource: "resume", ID: resume.ID.String()})
		return
	}
	if s.store != nil && resume.FileKey != "" {
		if err := s.store.Delete(r.Context(), resume.FileKey); err != nil {
			log.Printf("[server] failed to delete %s: %v", resume.FileKey, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResumePDF redirects to the stored PDF, or streams it when the store has
// no URLs of its own
func (s *Server) handleResumePDF(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, &ErrUnavailable{Feature: "PDF download"})
		return
	}
	resume, err := s.ownedResume(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if resume.FileKey == "" {
		s.writeError(w, &ErrNotFound{Resource: "resume PDF", ID: resume.ID.String()})
		return
	}

	url, err := s.store.URL(r.Context(), resume.FileKey)
	if err != nil {
		s.writeError(w, fmt.Errorf("failed to resolve download URL: %w", err))
		return
	}
	if url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	body, err := s.store.Open(r.Context(), resume.FileKey)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, &ErrNotFound{Resource: "resume PDF", ID: resume.ID.String()})
		return
	}
	if err != nil {
		s.writeError(w, fmt.Errorf("failed to open resume PDF: %w", err))
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", storage.ContentTypePDF)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": path.Base(resume.FileKey),
	}))
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("[server] error streaming %s: %v", resume.FileKey, err)
	}
}

// ownedResume loads the resume named in the path if the caller owns it
func (s *Server) ownedResume(r *http.Request) (*db.OptimizedResume, error) {
	if s.resumes == nil {
		return nil, &ErrUnavailable{Feature: "Resume history"}
	}
	userID, id, err := resumeIDs(r)
	if err != nil {
		return nil, err
	}

	resume, err := s.resumes.GetResume(r.Context(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume: %w", err)
	}
	if resume == nil {
		return nil, &ErrNotFound{Resource: "resume", ID: id.String()}
	}
	return resume, nil
}

func resumeIDs(r *http.Request) (userID, id uuid.UUID, err error) {
	userID, err = middleware.GetUserID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err = uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, &ErrValidation{Field: "id", Message: "Invalid resume id"}
	}
	return userID, id, nil
}

// downloadURL is the store's URL for the resume, or the API's own download route
func (s *Server) downloadURL(ctx context.Context, resume *db.OptimizedResume) string {
	if resume.FileKey == "" {
		return resume.FileURL
	}
	if s.store != nil {
		url, err := s.store.URL(ctx, resume.FileKey)
		if err != nil {
			log.Printf("[server] failed to resolve URL for %s: %v", resume.FileKey, err)
		} else if url != "" {
			return url
		}
	}
	return "/resumes/" + resume.ID.String() + "/pdf"
}
