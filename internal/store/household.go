package store

import (
	"database/sql"
	"fmt"

	"github.com/AstroPony/KlusQuest/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

const householdCols = `id, name, locale, created_at, updated_at`

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Name, &h.Locale, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Create provisions a household explicitly. Nothing in this package creates
// households as a side effect of a read; missing rows surface as not found.
func (s *HouseholdStore) Create(name, locale string) (*model.Household, error) {
	if locale == "" {
		locale = "nl"
	}
	result, err := s.db.Exec(`INSERT INTO households (name, locale) VALUES (?, ?)`, name, locale)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id int64) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// Stats returns one row per kid in the household with ledger totals and the
// number of completions still pending a decision.
func (s *HouseholdStore) Stats(householdID int64) ([]model.KidStats, error) {
	rows, err := s.db.Query(
		`SELECT k.id, k.display_name, k.xp, k.coins, k.level,
		        (SELECT COUNT(*) FROM completions c
		         JOIN chores ch ON ch.id = c.chore_id
		         WHERE c.kid_id = k.id AND ch.household_id = ? AND c.state = 'pending')
		 FROM kids k
		 WHERE k.household_id = ?
		 ORDER BY k.display_name ASC`,
		householdID, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("household stats: %w", err)
	}
	defer rows.Close()

	var stats []model.KidStats
	for rows.Next() {
		var st model.KidStats
		if err := rows.Scan(&st.KidID, &st.DisplayName, &st.XP, &st.Coins, &st.Level, &st.PendingCount); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
