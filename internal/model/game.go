package model

import "time"

// GameAttempt is an append-only record of one mini-game play.
type GameAttempt struct {
	ID              int64     `json:"id"`
	KidID           int64     `json:"kid_id"`
	GameID          string    `json:"game_id"`
	Score           int       `json:"score"`
	DurationSeconds *int      `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// GameSummary aggregates all attempts for one (kid, game) pair.
type GameSummary struct {
	BestScore    int           `json:"best_score"`
	AttemptCount int           `json:"attempt_count"`
	Recent       []GameAttempt `json:"recent"`
}
