package simulator

import (
	"fmt"
)

// Verify checks that board is ordered by descending score. When complete is
// true every submission was accepted, so the first row must carry at least the
// highest submitted score. Rows left by earlier runs may rank higher.
func Verify(board []Entry, submitted []float64, complete bool) error {
	for i := 1; i < len(board); i++ {
		if board[i].Score > board[i-1].Score {
			return fmt.Errorf("%w: row %d (%.2f) ranks below row %d (%.2f)",
				ErrVerification, i-1, board[i-1].Score, i, board[i].Score)
		}
	}
	if !complete || len(submitted) == 0 {
		return nil
	}
	if len(board) == 0 {
		return fmt.Errorf("%w: empty leaderboard after %d submissions", ErrVerification, len(submitted))
	}

	best := submitted[0]
	for _, s := range submitted[1:] {
		best = max(best, s)
	}
	if board[0].Score < best {
		return fmt.Errorf("%w: top score %.2f is below the best submitted %.2f",
			ErrVerification, board[0].Score, best)
	}
	return nil
}
