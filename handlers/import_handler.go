package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/photovaultbackend/importer"
	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/services"
)

type ImportHandler struct {
	Imports *services.ImportService
}

func NewImportHandler(imports *services.ImportService) *ImportHandler {
	return &ImportHandler{Imports: imports}
}

type CreateImportPayload struct {
	RoomID            string `json:"room_id"`
	FolderID          string `json:"folder_id"`
	FolderName        string `json:"folder_name"`
	CapturedAt        string `json:"captured_at,omitempty"` // RFC 3339, applied to every imported photo
	IncludeSubfolders bool   `json:"include_subfolders"`
}

// CreateImport starts a new import job. Discovery runs in the background;
// the response carries the job to poll.
func (h *ImportHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, "missing_user", "User not found in context")
		return
	}

	var payload CreateImportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload")
		return
	}
	if payload.RoomID == "" || payload.FolderID == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_fields", "room_id and folder_id are required")
		return
	}

	var capturedAt *time.Time
	if payload.CapturedAt != "" {
		t, err := time.Parse(time.RFC3339, payload.CapturedAt)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_captured_at", "captured_at must be RFC 3339")
			return
		}
		capturedAt = &t
	}

	job, err := h.Imports.CreateImport(user, services.CreateImportInput{
		RoomID:            payload.RoomID,
		FolderID:          payload.FolderID,
		FolderName:        payload.FolderName,
		CapturedAt:        capturedAt,
		IncludeSubfolders: payload.IncludeSubfolders,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			WriteAPIError(w, http.StatusForbidden, "forbidden", "You are not allowed to start imports")
		case errors.Is(err, services.ErrRoomNotFound):
			WriteAPIError(w, http.StatusNotFound, "room_not_found", "Room not found")
		default:
			WriteAPIError(w, http.StatusInternalServerError, "import_creation_failed", "Failed to create import job")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

type JobStatusResponse struct {
	Job   *models.ImportJob      `json:"job"`
	Files []models.ImportJobFile `json:"files"`
}

// GetJob returns a job's reconciled status plus its most recent file records
func (h *ImportHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, "missing_user", "User not found in context")
		return
	}

	jobID := chi.URLParam(r, "job_id")
	job, files, err := h.Imports.GetJob(jobID, user.ID)
	if err != nil {
		if errors.Is(err, importer.ErrJobNotFound) {
			WriteAPIError(w, http.StatusNotFound, "job_not_found", "Import job not found")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "job_lookup_failed", "Failed to load import job")
		return
	}

	writeJSON(w, http.StatusOK, JobStatusResponse{Job: job, Files: files})
}

// ListJobs returns the caller's import jobs, newest first
func (h *ImportHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, "missing_user", "User not found in context")
		return
	}

	jobs, err := h.Imports.ListJobs(user.ID)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "job_list_failed", "Failed to list import jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// ListRooms returns the rooms an import can target
func (h *ImportHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Imports.ListRooms()
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "room_list_failed", "Failed to list rooms")
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

type CancelResponse struct {
	DeletedPhotos int64 `json:"deleted_photos"`
}

// CancelJob cancels an import and removes its photos
func (h *ImportHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, "missing_user", "User not found in context")
		return
	}

	jobID := chi.URLParam(r, "job_id")
	deleted, err := h.Imports.CancelImport(user, jobID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			WriteAPIError(w, http.StatusForbidden, "forbidden", "You are not allowed to cancel imports")
		case errors.Is(err, importer.ErrJobNotFound):
			WriteAPIError(w, http.StatusNotFound, "job_not_found", "Import job not found")
		case errors.Is(err, importer.ErrAlreadyCancelled):
			WriteAPIError(w, http.StatusConflict, "already_cancelled", "Import job is already cancelled")
		case errors.Is(err, importer.ErrJobFinished):
			WriteAPIError(w, http.StatusConflict, "job_finished", "Import job has already finished")
		default:
			WriteAPIError(w, http.StatusInternalServerError, "cancel_failed", "Failed to cancel import job")
		}
		return
	}

	writeJSON(w, http.StatusOK, CancelResponse{DeletedPhotos: deleted})
}
