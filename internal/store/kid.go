package store

import (
	"database/sql"
	"fmt"

	"github.com/AstroPony/KlusQuest/internal/model"
)

// KidStore is the progress ledger: the only code that mutates a kid's XP,
// coin balance, and derived level.
type KidStore struct {
	db *sql.DB
}

func NewKidStore(db *sql.DB) *KidStore {
	return &KidStore{db: db}
}

const kidCols = `id, household_id, display_name, xp, coins, level, created_at, updated_at`

func scanKid(scanner interface{ Scan(...any) error }) (*model.Kid, error) {
	var k model.Kid
	err := scanner.Scan(&k.ID, &k.HouseholdID, &k.DisplayName, &k.XP, &k.Coins, &k.Level, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *KidStore) Create(householdID int64, displayName string) (*model.Kid, error) {
	result, err := s.db.Exec(
		`INSERT INTO kids (household_id, display_name) VALUES (?, ?)`,
		householdID, displayName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert kid: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *KidStore) GetByID(id int64) (*model.Kid, error) {
	row := s.db.QueryRow(`SELECT `+kidCols+` FROM kids WHERE id = ?`, id)
	k, err := scanKid(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get kid: %w", err)
	}
	return k, nil
}

// GetInHousehold returns the kid only if it belongs to the given household.
// Kids outside the caller's household are indistinguishable from absent ones.
func (s *KidStore) GetInHousehold(id, householdID int64) (*model.Kid, error) {
	row := s.db.QueryRow(`SELECT `+kidCols+` FROM kids WHERE id = ? AND household_id = ?`, id, householdID)
	k, err := scanKid(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get kid in household: %w", err)
	}
	return k, nil
}

func (s *KidStore) ListByHousehold(householdID int64) ([]model.Kid, error) {
	rows, err := s.db.Query(`SELECT `+kidCols+` FROM kids WHERE household_id = ? ORDER BY display_name ASC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list kids: %w", err)
	}
	defer rows.Close()

	var kids []model.Kid
	for rows.Next() {
		k, err := scanKid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan kid: %w", err)
		}
		kids = append(kids, *k)
	}
	return kids, rows.Err()
}

// Credit atomically adds xp and coins to the kid and recomputes the level
// from the new authoritative total. The level never decreases. Returns the
// updated totals and whether this credit crossed a level boundary.
func (s *KidStore) Credit(kidID int64, xp, coins int) (*model.Progress, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := creditKid(tx, kidID, xp, coins)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit credit: %w", err)
	}
	return p, nil
}

// Snapshot returns the kid's current ledger totals.
func (s *KidStore) Snapshot(kidID int64) (*model.Progress, error) {
	var p model.Progress
	p.KidID = kidID
	err := s.db.QueryRow(`SELECT xp, coins, level FROM kids WHERE id = ?`, kidID).
		Scan(&p.XP, &p.Coins, &p.Level)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot kid: %w", err)
	}
	return &p, nil
}

// execQuerier is satisfied by both *sql.DB and *sql.Tx so the ledger update
// can run inside a caller-owned transaction.
type execQuerier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// creditKid applies the increment and level recomputation in a single UPDATE
// so concurrent credits for the same kid cannot clobber each other. The level
// expression reads the post-increment total; it never re-adds the delta.
func creditKid(q execQuerier, kidID int64, xp, coins int) (*model.Progress, error) {
	var before int
	err := q.QueryRow(`SELECT level FROM kids WHERE id = ?`, kidID).Scan(&before)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read kid level: %w", err)
	}

	_, err = q.Exec(
		`UPDATE kids
		 SET xp = xp + ?,
		     coins = coins + ?,
		     level = max(level, (xp + ?) / 100 + 1),
		     updated_at = datetime('now')
		 WHERE id = ?`,
		xp, coins, xp, kidID,
	)
	if err != nil {
		return nil, fmt.Errorf("credit kid: %w", err)
	}

	p := model.Progress{KidID: kidID}
	err = q.QueryRow(`SELECT xp, coins, level FROM kids WHERE id = ?`, kidID).
		Scan(&p.XP, &p.Coins, &p.Level)
	if err != nil {
		return nil, fmt.Errorf("read kid after credit: %w", err)
	}
	p.LeveledUp = p.Level > before
	return &p, nil
}
