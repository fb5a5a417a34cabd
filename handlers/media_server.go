package handlers

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/photovaultbackend/media"
)

const (
	uploadURLTTL   = 15 * time.Minute
	maxUploadBytes = 100 << 20
)

// MediaHandler serves stored objects over signed, expiring URLs and accepts
// direct uploads against pre-signed keys.
type MediaHandler struct {
	Store *media.LocalObjectStore
}

func NewMediaHandler(store *media.LocalObjectStore) *MediaHandler {
	return &MediaHandler{Store: store}
}

// Serve streams an object addressed as /media/{key...}. Requests must carry
// a valid expires/sig pair; everything else is rejected before any disk
// access.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	expires := r.URL.Query().Get("expires")
	sig := r.URL.Query().Get("sig")

	if !h.Store.VerifySignature(key, expires, sig) {
		WriteAPIError(w, http.StatusForbidden, "invalid_signature", "URL signature is missing, invalid or expired")
		return
	}

	f, info, err := h.Store.Open(key)
	if err != nil {
		WriteAPIError(w, http.StatusNotFound, "object_not_found", "Object not found")
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.Copy(w, f)
}

// Upload writes an object body to a pre-signed key issued by CreateUploadURL
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	expires := r.URL.Query().Get("expires")
	sig := r.URL.Query().Get("sig")

	if !h.Store.VerifySignature(key, expires, sig) {
		WriteAPIError(w, http.StatusForbidden, "invalid_signature", "URL signature is missing, invalid or expired")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "read_failed", "Failed to read upload body")
		return
	}

	storageURL, err := h.Store.Put(key, data, r.Header.Get("Content-Type"))
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "upload_failed", "Failed to store object")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"storage_url": storageURL})
}

type UploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
}

// CreateUploadURL issues a pre-signed upload URL for the direct upload path
func (h *MediaHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r)
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, "missing_user", "User not found in context")
		return
	}
	if !user.CanImport() {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "You are not allowed to upload media")
		return
	}

	uploadURL, key, err := h.Store.SignedUploadURL(uploadURLTTL)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "sign_failed", "Failed to create upload URL")
		return
	}
	writeJSON(w, http.StatusOK, UploadURLResponse{UploadURL: uploadURL, Key: key})
}
