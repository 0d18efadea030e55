package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/scorekeep/pkg/logger"
)

// ScoreDependencies defines the interface for score submission.
type ScoreDependencies interface {
	SubmitScore(ctx context.Context, pseudo string, score float64) error
}

// ScoreHandler handles score submissions.
type ScoreHandler struct {
	deps   ScoreDependencies
	apiKey string
	logger logger.Logger
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies, apiKey string, l logger.Logger) *ScoreHandler {
	return &ScoreHandler{deps: deps, apiKey: apiKey, logger: l}
}

// HandlePostScore handles POST /score requests.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"

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

	pseudo, ok := p.str("pseudo")
	score, isNumber := p.number("score")
	if !ok || !isNumber {
		writeError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	if err := h.deps.SubmitScore(r.Context(), pseudo, score); err != nil {
		h.logger.Error(r.Context(), "score submission failed",
			logger.String("op", op),
			logger.String("pseudo", pseudo),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
