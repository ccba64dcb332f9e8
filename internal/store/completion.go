package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AstroPony/KlusQuest/internal/model"
)

// CreditPolicy decides when a completion credits the ledger. Exactly one
// point in the lifecycle applies credit; the other is a pure state change.
type CreditPolicy string

const (
	// PolicyImmediate credits at submission; the pending row is audit-only
	// and a later decision has no ledger effect.
	PolicyImmediate CreditPolicy = "immediate"
	// PolicyApproval records the submission without credit; approval credits
	// the captured amounts exactly once, denial credits nothing.
	PolicyApproval CreditPolicy = "approval"
)

// ParseCreditPolicy validates a configured policy string.
func ParseCreditPolicy(s string) (CreditPolicy, error) {
	switch CreditPolicy(s) {
	case PolicyImmediate, PolicyApproval:
		return CreditPolicy(s), nil
	case "":
		return PolicyApproval, nil
	}
	return "", fmt.Errorf("unknown credit policy %q", s)
}

// CompletionStore runs the completion workflow: submission with the
// once-per-day rule and decision with one-shot state transitions. Every
// ledger effect happens in the same transaction as the row change.
type CompletionStore struct {
	db     *sql.DB
	policy CreditPolicy
}

func NewCompletionStore(db *sql.DB, policy CreditPolicy) *CompletionStore {
	return &CompletionStore{db: db, policy: policy}
}

func (s *CompletionStore) Policy() CreditPolicy {
	return s.policy
}

const completionCols = `id, chore_id, kid_id, xp_earned, coins_earned, state, completed_on, decided_at, created_at`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.Completion, error) {
	var c model.Completion
	var decidedAt sql.NullTime
	err := scanner.Scan(
		&c.ID, &c.ChoreID, &c.KidID, &c.XPEarned, &c.CoinsEarned,
		&c.State, &c.CompletedOn, &decidedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		c.DecidedAt = &decidedAt.Time
	}
	return &c, nil
}

// Submit records one performance of a chore by a kid. Preconditions: the
// chore is visible in the household and active, and either unassigned or
// assigned to the submitting kid. At most one completion per (chore, kid,
// local calendar day); the day comes from now's location. Under the
// immediate policy the ledger is credited in the same transaction and the
// resulting progress is returned; under the approval policy progress is nil.
func (s *CompletionStore) Submit(householdID, choreID, kidID int64, now time.Time) (*model.Completion, *model.Progress, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	chore, err := scanChore(tx.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ? AND household_id = ?`, choreID, householdID))
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get chore: %w", err)
	}
	if !chore.Active {
		return nil, nil, ErrChoreNotAssignable
	}
	if chore.KidID != nil && *chore.KidID != kidID {
		return nil, nil, ErrChoreNotAssignable
	}

	var kidExists bool
	err = tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM kids WHERE id = ? AND household_id = ?)`, kidID, householdID).Scan(&kidExists)
	if err != nil {
		return nil, nil, fmt.Errorf("check kid: %w", err)
	}
	if !kidExists {
		return nil, nil, ErrNotFound
	}

	day := now.Format("2006-01-02")
	var dup bool
	err = tx.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM completions WHERE chore_id = ? AND kid_id = ? AND completed_on = ?)`,
		choreID, kidID, day,
	).Scan(&dup)
	if err != nil {
		return nil, nil, fmt.Errorf("check daily completion: %w", err)
	}
	if dup {
		return nil, nil, ErrAlreadyCompletedToday
	}

	result, err := tx.Exec(
		`INSERT INTO completions (chore_id, kid_id, xp_earned, coins_earned, completed_on) VALUES (?, ?, ?, ?, ?)`,
		choreID, kidID, chore.BaseXP, chore.BaseCoins, day,
	)
	if err != nil {
		// Unique index backstop for submissions racing past the check above.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, nil, ErrAlreadyCompletedToday
		}
		return nil, nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	var progress *model.Progress
	if s.policy == PolicyImmediate {
		progress, err = creditKid(tx, kidID, chore.BaseXP, chore.BaseCoins)
		if err != nil {
			return nil, nil, err
		}
	}

	completion, err := scanCompletion(tx.QueryRow(`SELECT `+completionCols+` FROM completions WHERE id = ?`, id))
	if err != nil {
		return nil, nil, fmt.Errorf("get completion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit submit: %w", err)
	}
	return completion, progress, nil
}

// Decide transitions a pending completion to approved or denied. The
// transition is one-shot; a second decision fails with ErrAlreadyDecided.
// Under the approval policy an approval credits the captured amounts in the
// same transaction; denial and the immediate policy leave the ledger alone.
func (s *CompletionStore) Decide(completionID, householdID int64, approved bool, now time.Time) (*model.Completion, *model.Progress, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	completion, err := scanCompletion(tx.QueryRow(
		`SELECT c.id, c.chore_id, c.kid_id, c.xp_earned, c.coins_earned, c.state, c.completed_on, c.decided_at, c.created_at
		 FROM completions c
		 JOIN chores ch ON ch.id = c.chore_id
		 WHERE c.id = ? AND ch.household_id = ?`,
		completionID, householdID,
	))
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get completion: %w", err)
	}
	if completion.State != model.StatePending {
		return nil, nil, ErrAlreadyDecided
	}

	state := model.StateDenied
	if approved {
		state = model.StateApproved
	}

	result, err := tx.Exec(
		`UPDATE completions SET state = ?, decided_at = ? WHERE id = ? AND state = 'pending'`,
		state, now.UTC(), completionID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update completion state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil, ErrAlreadyDecided
	}

	var progress *model.Progress
	if approved && s.policy == PolicyApproval {
		progress, err = creditKid(tx, completion.KidID, completion.XPEarned, completion.CoinsEarned)
		if err != nil {
			return nil, nil, err
		}
	}

	updated, err := scanCompletion(tx.QueryRow(`SELECT `+completionCols+` FROM completions WHERE id = ?`, completionID))
	if err != nil {
		return nil, nil, fmt.Errorf("get updated completion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit decide: %w", err)
	}
	return updated, progress, nil
}

// GetInHousehold returns the completion only if its chore belongs to the
// given household.
func (s *CompletionStore) GetInHousehold(id, householdID int64) (*model.Completion, error) {
	row := s.db.QueryRow(
		`SELECT c.id, c.chore_id, c.kid_id, c.xp_earned, c.coins_earned, c.state, c.completed_on, c.decided_at, c.created_at
		 FROM completions c
		 JOIN chores ch ON ch.id = c.chore_id
		 WHERE c.id = ? AND ch.household_id = ?`,
		id, householdID,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion in household: %w", err)
	}
	return c, nil
}

// ListByHousehold returns the household's completions, newest first,
// optionally filtered by state.
func (s *CompletionStore) ListByHousehold(householdID int64, state string) ([]model.Completion, error) {
	query := `SELECT c.id, c.chore_id, c.kid_id, c.xp_earned, c.coins_earned, c.state, c.completed_on, c.decided_at, c.created_at
	          FROM completions c
	          JOIN chores ch ON ch.id = c.chore_id
	          WHERE ch.household_id = ?`
	args := []any{householdID}
	if state != "" {
		query += ` AND c.state = ?`
		args = append(args, state)
	}
	query += ` ORDER BY c.created_at DESC, c.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}
