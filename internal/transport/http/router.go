package http

import (
	"github.com/gorilla/mux"
)

// NewRouter configures HTTP routes.
func NewRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/upload", handler.Upload).Methods("POST")
	r.HandleFunc("/api/jobs", handler.CreateJob).Methods("POST")
	r.HandleFunc("/api/jobs/{id}", handler.JobStatus).Methods("GET")
	r.HandleFunc("/api/download/{id}", handler.Download).Methods("GET")
	return r
}
