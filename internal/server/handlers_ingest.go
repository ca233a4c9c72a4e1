package server

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"waingest/internal/api"
	"waingest/internal/ingest"
)

// handleUpload accepts a WhatsApp export .zip, unpacks it into a per-run
// working directory and starts the ingestion run in the background. The
// response is 202 with the task ID; outcome is reported via the task status
// endpoint.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.acquireLimiter(s.uploadLimiter, w, "upload") {
		return
	}
	defer s.releaseLimiter(s.uploadLimiter)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBody)
	if err := r.ParseMultipartForm(s.multipartMem); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart body: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".zip") {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid file type, only .zip is accepted"))
		return
	}

	workDir, err := s.stageSubmission(file, filename)
	if err != nil {
		// A malformed archive is the client's fault; staging I/O is ours.
		if errors.Is(err, zip.ErrFormat) {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	taskID := ingest.NewTaskID()
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		// The request context dies with the response; the run does not.
		_ = s.orchestrator.RunTask(context.Background(), taskID, workDir, filename)
	}()

	s.writeJSON(w, http.StatusAccepted, api.UploadAccepted{
		Message:  "file received, processing started in background",
		Filename: filename,
		TaskID:   taskID,
	})
}

// stageSubmission writes the uploaded archive to disk, unpacks it into a
// fresh working directory and discards the archive. On failure nothing is
// left behind.
func (s *Server) stageSubmission(file io.Reader, filename string) (string, error) {
	workDir, err := os.MkdirTemp(s.tmpRoot, "waingest-*")
	if err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}

	zipPath := workDir + ".zip"
	cleanup := func() {
		_ = os.Remove(zipPath)
		_ = os.RemoveAll(workDir)
	}

	dst, err := os.Create(zipPath)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("stage archive: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		cleanup()
		return "", fmt.Errorf("stage archive: %w", err)
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", err
	}

	if err := ingest.Unpack(zipPath, workDir); err != nil {
		cleanup()
		return "", fmt.Errorf("unpack %s: %w", filename, err)
	}
	_ = os.Remove(zipPath)
	return workDir, nil
}
