package store

import (
	"database/sql"
	"fmt"

	"github.com/AstroPony/KlusQuest/internal/model"
)

// ChoreStore owns chore rows. Chore lifecycle belongs to the CRUD layer; the
// workflow only reads them, so this store carries just what provisioning and
// the completion path need.
type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

const choreCols = `id, household_id, title, description, frequency, kid_id, base_xp, base_coins, active, created_at, updated_at`

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var kidID sql.NullInt64
	err := scanner.Scan(
		&c.ID, &c.HouseholdID, &c.Title, &c.Description, &c.Frequency,
		&kidID, &c.BaseXP, &c.BaseCoins, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if kidID.Valid {
		c.KidID = &kidID.Int64
	}
	return &c, nil
}

func (s *ChoreStore) Create(householdID int64, title, description, frequency string, kidID *int64, baseXP, baseCoins int) (*model.Chore, error) {
	var kID sql.NullInt64
	if kidID != nil {
		kID = sql.NullInt64{Int64: *kidID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO chores (household_id, title, description, frequency, kid_id, base_xp, base_coins) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		householdID, title, description, frequency, kID, baseXP, baseCoins,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// GetInHousehold returns the chore only if it belongs to the given household.
func (s *ChoreStore) GetInHousehold(id, householdID int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ? AND household_id = ?`, id, householdID)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore in household: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByHousehold(householdID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(`SELECT `+choreCols+` FROM chores WHERE household_id = ? ORDER BY title ASC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// UpdateRewards changes the chore's reward schedule. Completion rows snapshot
// rewards at submission, so this never changes already-earned amounts.
func (s *ChoreStore) UpdateRewards(id int64, baseXP, baseCoins int) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores SET base_xp = ?, base_coins = ?, updated_at = datetime('now') WHERE id = ?`,
		baseXP, baseCoins, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore rewards: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(`UPDATE chores SET active = ?, updated_at = datetime('now') WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set chore active: %w", err)
	}
	return nil
}
