package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/RyanBlaney/sonido-embed/embedding"
	"github.com/RyanBlaney/sonido-embed/logging"
)

// uploadField is the multipart field holding the audio file
const uploadField = "file"

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// EmbeddingResponse is the body of a successful POST /process-audio/
type EmbeddingResponse struct {
	Embedding embedding.Vector `json:"embedding"`
}

// RootResponse is the body of GET /
type RootResponse struct {
	Message            string `json:"message"`
	EmbeddingDimension int    `json:"embedding_dimension"`
	EmbeddingVersion   string `json:"embedding_version"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message:            RootMessage,
		EmbeddingDimension: s.embedder.Dimension(),
		EmbeddingVersion:   s.embedder.Version(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context()).WithFields(logging.Fields{
		"component": "http_server",
		"function":  "handleProcessAudio",
	})

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	data, contentType, filename, err := readUpload(r)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", maxBytesErr.Limit))
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if !acceptedContentType(contentType) {
		writeError(w, http.StatusBadRequest, "Unsupported file type")
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	var vector embedding.Vector
	err = s.pool.Submit(ctx, func(ctx context.Context) error {
		var extractErr error
		vector, extractErr = s.embedder.Extract(ctx, data, contentType)
		return extractErr
	})
	if err != nil {
		status := http.StatusInternalServerError
		if embedding.IsValidation(err) {
			status = http.StatusBadRequest
		}
		logger.Error(err, "Embedding extraction failed", logging.Fields{
			"filename":   filename,
			"size":       len(data),
			"status":     status,
			"error_kind": embedding.KindOf(err).String(),
		})
		writeError(w, status, err.Error())
		return
	}

	logger.Info("Embedding extracted", logging.Fields{
		"filename":  filename,
		"size":      len(data),
		"dimension": len(vector),
	})

	writeJSON(w, http.StatusOK, EmbeddingResponse{Embedding: vector})
}

// readUpload streams the multipart body and returns the contents of the file
// field. Parts are never written to disk.
func readUpload(r *http.Request) ([]byte, string, string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", "", fmt.Errorf("expected multipart/form-data body: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, "", "", fmt.Errorf("field required: %s", uploadField)
		}
		if err != nil {
			return nil, "", "", fmt.Errorf("malformed multipart body: %w", err)
		}

		if part.FormName() != uploadField {
			// drain so a size limit hit here is still reported
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, "", "", err
			}
			continue
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return nil, "", "", err
		}
		return data, part.Header.Get("Content-Type"), part.FileName(), nil
	}
}

// acceptedContentType rejects parts that declare a non-audio type. Missing
// and generic binary types are accepted because multipart writers commonly
// default to application/octet-stream; the decoder sniffs the real format.
func acceptedContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "audio/") || mediaType == "application/octet-stream"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error(err, "Failed to encode response", logging.Fields{
			"component": "http_server",
		})
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
