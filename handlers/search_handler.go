package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/camden-git/photovaultbackend/services"
	"github.com/camden-git/photovaultbackend/utils"
)

const maxQueryImageBytes = 20 << 20

type SearchHandler struct {
	FaceSearch *services.FaceSearchService
}

func NewSearchHandler(faceSearch *services.FaceSearchService) *SearchHandler {
	return &SearchHandler{FaceSearch: faceSearch}
}

// SearchFaces accepts a query image as multipart form field "file" and
// returns stored photos ranked by face similarity
func (h *SearchHandler) SearchFaces(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserFromContext(r); !ok {
		WriteAPIError(w, http.StatusInternalServerError, "missing_user", "User not found in context")
		return
	}

	if err := r.ParseMultipartForm(maxQueryImageBytes); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_multipart", "Expected a multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "missing_file", "Form field 'file' is required")
		return
	}
	defer file.Close()

	if !utils.IsImageMime(header.Header.Get("Content-Type")) {
		WriteAPIError(w, http.StatusBadRequest, "not_an_image", "Uploaded file must be an image")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxQueryImageBytes))
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "read_failed", "Failed to read uploaded file")
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	matches, err := h.FaceSearch.Search(r.Context(), data, header.Filename, limit, offset)
	if err != nil {
		if errors.Is(err, services.ErrNoFacesFound) {
			WriteAPIError(w, http.StatusUnprocessableEntity, "no_faces_found", "No faces detected in the query image")
			return
		}
		WriteAPIError(w, http.StatusBadGateway, "search_failed", "Face search failed")
		return
	}

	writeJSON(w, http.StatusOK, matches)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
