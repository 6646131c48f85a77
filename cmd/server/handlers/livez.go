package handlers

import (
	"fmt"
	"net/http"
)

// Livez answers liveness probes.
func Livez(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ok")
}
