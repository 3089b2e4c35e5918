// Package server exposes the chat orchestrator over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elee1766/chatrelay/src/chat"
	"github.com/elee1766/chatrelay/src/storage"
	"github.com/go-playground/validator/v10"
)

const (
	readyMessage       = "AI Chat Backend Ready 🚀"
	unavailableMessage = "AI service unavailable"
	maxBodyBytes       = 1 << 20
)

// Chatter is the part of chat.Orchestrator the handlers use.
type Chatter interface {
	HandleMessage(ctx context.Context, text, conversationID string) (*chat.Result, error)
	Recent(ctx context.Context) ([]*storage.Conversation, error)
}

type Options struct {
	// CORSOrigin is sent as Access-Control-Allow-Origin; empty disables CORS headers
	CORSOrigin string
	Logger     *slog.Logger
}

type Server struct {
	chat     Chatter
	validate *validator.Validate
	logger   *slog.Logger
	handler  http.Handler
}

func New(chatter Chatter, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	s := &Server{
		chat:     chatter,
		validate: v,
		logger:   logger.With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /conversations", s.handleConversations)
	mux.HandleFunc("POST /chat", s.handleChat)

	s.handler = withRequestLogging(s.logger, withCORS(opts.CORSOrigin, mux))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, StatusResponse{Message: readyMessage})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.chat.Recent(r.Context())
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err)
		writeError(w, s.logger, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	writeJSON(w, s.logger, http.StatusOK, convs)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "message is required")
		return
	}

	// A client that hangs up does not cancel the provider call; the reply is
	// still stored.
	ctx := context.WithoutCancel(r.Context())

	res, err := s.chat.HandleMessage(ctx, req.Message, req.ConversationID)
	if err != nil {
		var perr *chat.ProviderError
		switch {
		case errors.As(err, &perr):
			writeJSON(w, s.logger, http.StatusInternalServerError, ErrorResponse{
				Error:    unavailableMessage,
				Messages: []storage.Message{perr.Message},
			})
		case errors.Is(err, chat.ErrEmptyMessage):
			writeError(w, s.logger, http.StatusBadRequest, "message is required")
		default:
			s.logger.Error("chat request failed", "error", err)
			writeError(w, s.logger, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, s.logger, http.StatusOK, ChatResponse{
		ConversationID: res.ConversationID,
		Messages:       res.Messages,
		Conversations:  res.Conversations,
	})
}
