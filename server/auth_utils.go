package server

import (
	"net/http"

	"github.com/go-chi/render"
)

// redirectTo helper for htmx-aware redirects
func redirectTo(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeJSONError(w http.ResponseWriter, r *http.Request, errorCode, description string, statusCode int) {
	writeJSON(w, r, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// decodeJSON reads a JSON request body into v, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, 1<<20), v); err != nil {
		writeJSONError(w, r, "invalid_request", "Request body must be JSON.", http.StatusBadRequest)
		return false
	}
	return true
}
