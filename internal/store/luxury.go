package store

import (
	"database/sql"
	"fmt"

	"github.com/AstroPony/KlusQuest/internal/model"
)

// LuxuryStore owns luxury definitions and their grants. Grants are
// append-only and permanent; the unique index on luxury_id guarantees a
// definition is granted at most once, ever.
type LuxuryStore struct {
	db *sql.DB
}

func NewLuxuryStore(db *sql.DB) *LuxuryStore {
	return &LuxuryStore{db: db}
}

const luxuryCols = `id, household_id, kid_id, title, kind, minutes, rank, assigned_game, active, created_at, updated_at`

func scanLuxury(scanner interface{ Scan(...any) error }) (*model.Luxury, error) {
	var l model.Luxury
	var minutes sql.NullInt64
	err := scanner.Scan(
		&l.ID, &l.HouseholdID, &l.KidID, &l.Title, &l.Kind, &minutes,
		&l.Rank, &l.AssignedGame, &l.Active, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if minutes.Valid {
		m := int(minutes.Int64)
		l.Minutes = &m
	}
	return &l, nil
}

// LuxuryInput is one definition in a Define call, keyed by rank.
type LuxuryInput struct {
	Title        string `json:"title"`
	Kind         string `json:"kind"`
	Minutes      *int   `json:"minutes"`
	Rank         int    `json:"rank"`
	AssignedGame string `json:"assigned_game"`
	Active       bool   `json:"active"`
}

// Define upserts up to four rank-keyed definitions for a kid in one
// transaction. Existing grants are untouched; redefining a rank never
// re-opens an already-granted luxury.
func (s *LuxuryStore) Define(householdID, kidID int64, defs []LuxuryInput) ([]model.Luxury, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var ids []int64
	for _, d := range defs {
		var minutes sql.NullInt64
		if d.Minutes != nil {
			minutes = sql.NullInt64{Int64: int64(*d.Minutes), Valid: true}
		}

		var existingID int64
		err := tx.QueryRow(`SELECT id FROM luxuries WHERE kid_id = ? AND rank = ?`, kidID, d.Rank).Scan(&existingID)
		switch {
		case err == sql.ErrNoRows:
			result, err := tx.Exec(
				`INSERT INTO luxuries (household_id, kid_id, title, kind, minutes, rank, assigned_game, active) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				householdID, kidID, d.Title, d.Kind, minutes, d.Rank, d.AssignedGame, d.Active,
			)
			if err != nil {
				return nil, fmt.Errorf("insert luxury rank %d: %w", d.Rank, err)
			}
			existingID, err = result.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("last insert id: %w", err)
			}
		case err != nil:
			return nil, fmt.Errorf("find luxury rank %d: %w", d.Rank, err)
		default:
			_, err := tx.Exec(
				`UPDATE luxuries SET title = ?, kind = ?, minutes = ?, assigned_game = ?, active = ?, updated_at = datetime('now') WHERE id = ?`,
				d.Title, d.Kind, minutes, d.AssignedGame, d.Active, existingID,
			)
			if err != nil {
				return nil, fmt.Errorf("update luxury rank %d: %w", d.Rank, err)
			}
		}
		ids = append(ids, existingID)
	}

	var out []model.Luxury
	for _, id := range ids {
		l, err := scanLuxury(tx.QueryRow(`SELECT `+luxuryCols+` FROM luxuries WHERE id = ?`, id))
		if err != nil {
			return nil, fmt.Errorf("get luxury: %w", err)
		}
		out = append(out, *l)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit define: %w", err)
	}
	return out, nil
}

// ListActive returns the kid's active definitions in ascending rank order.
func (s *LuxuryStore) ListActive(kidID int64) ([]model.Luxury, error) {
	rows, err := s.db.Query(
		`SELECT `+luxuryCols+` FROM luxuries WHERE kid_id = ? AND active = 1 ORDER BY rank ASC, created_at ASC`,
		kidID,
	)
	if err != nil {
		return nil, fmt.Errorf("list luxuries: %w", err)
	}
	defer rows.Close()

	var luxuries []model.Luxury
	for rows.Next() {
		l, err := scanLuxury(rows)
		if err != nil {
			return nil, fmt.Errorf("scan luxury: %w", err)
		}
		luxuries = append(luxuries, *l)
	}
	return luxuries, rows.Err()
}

const grantCols = `id, luxury_id, kid_id, status, created_at`

func scanGrant(scanner interface{ Scan(...any) error }) (*model.LuxuryGrant, error) {
	var g model.LuxuryGrant
	err := scanner.Scan(&g.ID, &g.LuxuryID, &g.KidID, &g.Status, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UnlockForWin scans the kid's active definitions assigned to the game in
// ascending rank order and grants the first one without an existing grant.
// When every matching definition is already granted, or none match, it
// returns (nil, nil). The scan and the insert run in one transaction and the
// unique index on luxury_id absorbs concurrent wins, so a definition can
// never be granted twice.
func (s *LuxuryStore) UnlockForWin(kidID int64, gameID string) (*model.LuxuryGrant, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var luxuryID int64
	err = tx.QueryRow(
		`SELECT l.id FROM luxuries l
		 WHERE l.kid_id = ? AND l.assigned_game = ? AND l.active = 1
		   AND NOT EXISTS (SELECT 1 FROM luxury_grants g WHERE g.luxury_id = l.id)
		 ORDER BY l.rank ASC
		 LIMIT 1`,
		kidID, gameID,
	).Scan(&luxuryID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ungranted luxury: %w", err)
	}

	result, err := tx.Exec(
		`INSERT INTO luxury_grants (luxury_id, kid_id, status) VALUES (?, ?, ?) ON CONFLICT (luxury_id) DO NOTHING`,
		luxuryID, kidID, model.GrantStatusGranted,
	)
	if err != nil {
		return nil, fmt.Errorf("insert grant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// A concurrent win granted this rank first.
		return nil, nil
	}

	grant, err := scanGrant(tx.QueryRow(`SELECT `+grantCols+` FROM luxury_grants WHERE luxury_id = ?`, luxuryID))
	if err != nil {
		return nil, fmt.Errorf("get grant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit unlock: %w", err)
	}
	return grant, nil
}

// ListGrants returns the kid's grants, newest first.
func (s *LuxuryStore) ListGrants(kidID int64) ([]model.LuxuryGrant, error) {
	rows, err := s.db.Query(
		`SELECT `+grantCols+` FROM luxury_grants WHERE kid_id = ? ORDER BY created_at DESC, id DESC`,
		kidID,
	)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var grants []model.LuxuryGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, *g)
	}
	return grants, rows.Err()
}
