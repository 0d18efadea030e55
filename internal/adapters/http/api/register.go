package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/scorekeep/internal/app"
	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/logger"
)

// RegisterDependencies defines the interface for account creation.
type RegisterDependencies interface {
	Register(ctx context.Context, email, password, pseudo string) (model.Session, error)
}

// RegisterHandler handles account creation.
type RegisterHandler struct {
	deps   RegisterDependencies
	logger logger.Logger
}

// NewRegisterHandler creates a new register handler.
func NewRegisterHandler(deps RegisterDependencies, l logger.Logger) *RegisterHandler {
	return &RegisterHandler{deps: deps, logger: l}
}

// HandlePostRegister handles POST /register requests. No api key is
// required here.
func (h *RegisterHandler) HandlePostRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_register"

	p, err := decodePayload(w, r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrBodyTooBig) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, msgInvalidPayload)
		return
	}

	email, okEmail := p.str("email")
	pass, okPass := p.str("password")
	pseudo, okPseudo := p.str("pseudo")
	if !okEmail || !okPass || !okPseudo {
		writeError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	sess, err := h.deps.Register(r.Context(), email, pass, pseudo)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, successResponse{Success: true, UID: sess.UID, Token: sess.Token})
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, msgMissingFields)
	case errors.Is(err, service.ErrInvalidPseudo):
		writeError(w, http.StatusBadRequest, msgInvalidPseudo)
	case errors.Is(err, service.ErrPasswordTooLong):
		writeError(w, http.StatusBadRequest, msgPasswordTooLong)
	case errors.Is(err, service.ErrPseudoTaken):
		writeError(w, http.StatusConflict, msgPseudoTaken)
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, msgEmailTaken)
	default:
		h.logger.Error(r.Context(), "registration failed",
			logger.String("op", op),
			logger.String("pseudo", pseudo),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}
