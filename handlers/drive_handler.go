package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/facette/natsort"

	"github.com/camden-git/photovaultbackend/gdrive"
)

type DriveHandler struct {
	Drive  gdrive.Provider
	Broker *gdrive.TokenBroker
}

func NewDriveHandler(drive gdrive.Provider, broker *gdrive.TokenBroker) *DriveHandler {
	return &DriveHandler{Drive: drive, Broker: broker}
}

type FolderResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListFolders returns browsable provider folders for the folder picker. An
// empty parent_id lists the user's root folders. Folders are returned in
// natural sort order so "Event 2" precedes "Event 10".
func (h *DriveHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, "missing_user", "User not found in context")
		return
	}

	parentID := r.URL.Query().Get("parent_id")
	folders, err := h.Drive.ListFolders(r.Context(), user.ID, parentID)
	if err != nil {
		if errors.Is(err, gdrive.ErrNotConnected) {
			WriteAPIError(w, http.StatusConflict, "drive_not_connected", "No folder provider connected for this account")
			return
		}
		WriteAPIError(w, http.StatusBadGateway, "drive_list_failed", "Failed to list provider folders")
		return
	}

	sort.Slice(folders, func(i, j int) bool {
		return natsort.Compare(folders[i].Name, folders[j].Name)
	})

	out := make([]FolderResponse, len(folders))
	for i, f := range folders {
		out[i] = FolderResponse{ID: f.ID, Name: f.Name}
	}
	writeJSON(w, http.StatusOK, out)
}

type ConnectPayload struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Connect stores the caller's delegated provider credentials. Tokens are
// obtained by the frontend's OAuth flow; this endpoint only persists them.
func (h *DriveHandler) Connect(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, "missing_user", "User not found in context")
		return
	}

	var payload ConnectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload")
		return
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_tokens", "access_token and refresh_token are required")
		return
	}

	if err := h.Broker.Connect(user.ID, payload.AccessToken, payload.RefreshToken, payload.ExpiresAt); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "connect_failed", "Failed to store provider credentials")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
