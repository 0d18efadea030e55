package api

import (
	"context"
	"net/http"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/logger"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) ([]model.Score, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps   LeaderboardDependencies
	logger logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, l logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, logger: l}
}

// HandleGetLeaderboard handles GET /leaderboard requests
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"

	scores, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "leaderboard query failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if scores == nil {
		scores = []model.Score{}
	}
	writeJSON(w, http.StatusOK, scores)
}
