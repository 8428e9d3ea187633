package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"mediaconv/internal/application/convert"
	"mediaconv/internal/domain/job"

	"github.com/gorilla/mux"
)

type converterUseCases interface {
	SaveUpload(name string, r io.Reader) (string, error)
	CreateLocal(uploadID string, target job.Target, opts job.Options) (job.Job, error)
	CreateRemote(ctx context.Context, url string, target job.Target, opts job.Options) (job.Job, job.SourceInfo, error)
	Status(id string) (job.Job, bool)
	Retrieve(id string) (*convert.Result, error)
}

type Handler struct {
	converter     converterUseCases
	maxUploadSize int64
}

// NewHandler wires HTTP handlers with the conversion use cases.
func NewHandler(converter converterUseCases, maxUploadSize int64) *Handler {
	return &Handler{converter: converter, maxUploadSize: maxUploadSize}
}

type createJobRequest struct {
	URL      string `json:"url"`
	UploadID string `json:"uploadId"`
	Target   string `json:"target"`
	Preset   string `json:"preset"`
	Bitrate  string `json:"bitrate"`
}

// Upload handles POST /api/upload.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "upload too large or malformed", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field missing", http.StatusBadRequest)
		return
	}
	defer file.Close()

	uploadID, err := h.converter.SaveUpload(header.Filename, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"uploadId": uploadID,
		"filename": header.Filename,
	})
}

// CreateJob handles POST /api/jobs.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	target := job.Target(req.Target)
	opts := job.Options{Preset: req.Preset, Bitrate: req.Bitrate}

	resp := map[string]interface{}{}
	var created job.Job
	var err error

	switch {
	case req.URL != "":
		var info job.SourceInfo
		created, info, err = h.converter.CreateRemote(r.Context(), req.URL, target, opts)
		if err == nil {
			if info.Title != "" {
				resp["title"] = info.Title
			}
			if info.Duration > 0 {
				resp["duration"] = info.Duration
			}
			if info.ThumbnailURL != "" {
				resp["thumbnail"] = info.ThumbnailURL
			}
		}
	case req.UploadID != "":
		created, err = h.converter.CreateLocal(req.UploadID, target, opts)
	default:
		http.Error(w, "url or uploadId required", http.StatusBadRequest)
		return
	}

	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, convert.ErrUnknownTarget) && !errors.Is(err, convert.ErrUploadNotFound) {
			status = http.StatusInternalServerError
		}
		http.Error(w, err.Error(), status)
		return
	}

	resp["jobId"] = created.ID
	writeJSON(w, http.StatusAccepted, resp)
}

// JobStatus handles GET /api/jobs/{id}.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	j, ok := h.converter.Status(id)
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	resp := map[string]interface{}{
		"status":   j.Status,
		"progress": j.Progress,
	}
	if j.Status == job.StatusDone {
		resp["downloadUrl"] = "/api/download/" + j.ID
	}
	if j.Status == job.StatusError {
		resp["error"] = j.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

// Download handles GET /api/download/{id}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result, err := h.converter.Retrieve(id)
	if err != nil {
		if errors.Is(err, convert.ErrNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "job not ready", http.StatusConflict)
		return
	}
	defer result.Reader.Close()

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(result.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	_, _ = io.Copy(w, result.Reader)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
