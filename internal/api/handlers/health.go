package handlers

import (
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
)

const MessageRunning = "RAG Assistant API is running"

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health reports liveness; it touches no dependency.
func Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, MessageRunning, HealthResponse{Status: "ok", Message: MessageRunning})
}
