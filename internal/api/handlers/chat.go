package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/api/middleware"
	"github.com/cloo-solutions/ragchat/internal/domain"
)

const MessageChatProcessed = "Chat processed successfully"

// ChatService answers one user message on the default conversation thread.
type ChatService interface {
	Chat(ctx context.Context, userInput string) (string, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// ChatRequest accepts both userInput and user_input.
type ChatRequest struct {
	UserInput      string `json:"userInput"`
	UserInputSnake string `json:"user_input"`
}

func (r ChatRequest) input() string {
	if r.UserInput != "" {
		return r.UserInput
	}
	return r.UserInputSnake
}

type ChatResponse struct {
	Response string `json:"response"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, middleware.MessageBodyTooLarge, "request body exceeds the size limit")
			return
		}
		detail := "invalid request body"
		if errors.Is(err, io.EOF) {
			detail = "request body is required"
		}
		api.Error(w, http.StatusUnprocessableEntity, api.MessageValidationError, detail)
		return
	}

	userInput := req.input()
	if strings.TrimSpace(userInput) == "" {
		api.HandleError(w, domain.ErrEmptyUserInput)
		return
	}

	reply, err := h.svc.Chat(r.Context(), userInput)
	if err != nil {
		if api.DomainErrorToHTTP(err) >= http.StatusInternalServerError {
			slog.Error("chat failed", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, MessageChatProcessed, ChatResponse{Response: reply})
}
