package store

import (
	"database/sql"
	"fmt"

	"github.com/AstroPony/KlusQuest/internal/model"
)

const recentAttemptLimit = 5

// GameStore records mini-game attempts. Attempts are append-only; aggregates
// are derived, never stored.
type GameStore struct {
	db *sql.DB
}

func NewGameStore(db *sql.DB) *GameStore {
	return &GameStore{db: db}
}

const attemptCols = `id, kid_id, game_id, score, duration_seconds, created_at`

func scanAttempt(scanner interface{ Scan(...any) error }) (*model.GameAttempt, error) {
	var a model.GameAttempt
	var duration sql.NullInt64
	err := scanner.Scan(&a.ID, &a.KidID, &a.GameID, &a.Score, &duration, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if duration.Valid {
		d := int(duration.Int64)
		a.DurationSeconds = &d
	}
	return &a, nil
}

func (s *GameStore) RecordAttempt(kidID int64, gameID string, score int, durationSeconds *int) (*model.GameAttempt, error) {
	var dur sql.NullInt64
	if durationSeconds != nil {
		dur = sql.NullInt64{Int64: int64(*durationSeconds), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO game_attempts (kid_id, game_id, score, duration_seconds) VALUES (?, ?, ?, ?)`,
		kidID, gameID, score, dur,
	)
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+attemptCols+` FROM game_attempts WHERE id = ?`, id)
	a, err := scanAttempt(row)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// BestFor returns the best score, total attempt count, and the most recent
// attempts (newest first) for the pair. A pair with no attempts yields zero
// values, not an error.
func (s *GameStore) BestFor(kidID int64, gameID string) (*model.GameSummary, error) {
	var sum model.GameSummary
	err := s.db.QueryRow(
		`SELECT COALESCE(MAX(score), 0), COUNT(*) FROM game_attempts WHERE kid_id = ? AND game_id = ?`,
		kidID, gameID,
	).Scan(&sum.BestScore, &sum.AttemptCount)
	if err != nil {
		return nil, fmt.Errorf("aggregate attempts: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT `+attemptCols+` FROM game_attempts WHERE kid_id = ? AND game_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		kidID, gameID, recentAttemptLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		sum.Recent = append(sum.Recent, *a)
	}
	return &sum, rows.Err()
}
