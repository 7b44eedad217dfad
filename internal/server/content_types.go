package server

import (
	"mime"
	"net/http"
)

const jsonContentType = "application/json; charset=utf-8"

// isJSONRequest reports whether the request body is declared as JSON.
func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
