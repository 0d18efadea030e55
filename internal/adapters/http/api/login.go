package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/scorekeep/internal/app"
	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/logger"
)

// LoginDependencies defines the interface for credential checks.
type LoginDependencies interface {
	Login(ctx context.Context, email, password string) (model.Session, error)
}

// LoginHandler handles sign-in.
type LoginHandler struct {
	deps   LoginDependencies
	apiKey string
	logger logger.Logger
}

// NewLoginHandler creates a new login handler.
func NewLoginHandler(deps LoginDependencies, apiKey string, l logger.Logger) *LoginHandler {
	return &LoginHandler{deps: deps, apiKey: apiKey, logger: l}
}

// HandlePostLogin handles POST /login requests.
func (h *LoginHandler) HandlePostLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_login"

	p, err := decodePayload(w, r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrBodyTooBig) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, msgInvalidPayload)
		return
	}
	if !p.keyMatches(h.apiKey) {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	email, okEmail := p.str("email")
	pass, okPass := p.str("password")
	if !okEmail || !okPass {
		writeError(w, http.StatusBadRequest, msgCredentials)
		return
	}

	sess, err := h.deps.Login(r.Context(), email, pass)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, successResponse{
			Success: true,
			UID:     sess.UID,
			Pseudo:  sess.Pseudo,
			Token:   sess.Token,
		})
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, msgCredentials)
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, msgUserNotFound)
	case errors.Is(err, service.ErrIncorrectPassword):
		writeError(w, http.StatusUnauthorized, msgIncorrectPass)
	default:
		h.logger.Error(r.Context(), "login failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}
