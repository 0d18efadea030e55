// Package model contains domain models passed between layers.
package model

import "time"

// Score is one leaderboard submission. Submissions are append-only, a pseudo
// may own any number of them.
type Score struct {
	Pseudo    string    `json:"pseudo" firestore:"pseudo" bson:"pseudo"`
	Score     float64   `json:"score" firestore:"score" bson:"score"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
}
