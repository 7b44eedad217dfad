package server

import "net/http"

func setCORSHeaders(w http.ResponseWriter, enabled bool) {
	if !enabled {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
}
