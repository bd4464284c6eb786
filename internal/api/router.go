package api

import (
	"net/http"
)

func NewRouter(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("POST /v1/turn", handler.Turn)
	mux.HandleFunc("POST /v1/sessions/{id}/reset", handler.Reset)
	mux.HandleFunc("GET /v1/sessions/{id}/transcript", handler.GetTranscript)
	mux.HandleFunc("GET /v1/records/{id}", handler.GetRecord)
	mux.HandleFunc("GET /v1/records", handler.ListRecords)

	return mux
}
