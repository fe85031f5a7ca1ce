package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/events"
)

// CycleStore handles cycle persistence operations.
type CycleStore struct {
	store *Store
}

// CycleCreateParams contains parameters for creating a new cycle.
type CycleCreateParams struct {
	ChapterID   string
	CycleNumber int               // 0 assigns the next number in the chapter
	State       domain.CycleState // defaults to goal_selection
}

const cycleColumns = `id, chapter_id, cycle_number, state, started_at, created_at`

// Create creates a new cycle in a chapter.
func (cs *CycleStore) Create(ctx context.Context, params CycleCreateParams) (*domain.Cycle, error) {
	state := params.State
	if state == "" {
		state = domain.CycleStateGoalSelection
	}
	if err := domain.ValidateCycleState(string(state)); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	err := cs.store.withTx(ctx, func(tx *sql.Tx, _ *events.Writer) error {
		number := params.CycleNumber
		if number == 0 {
			if err := tx.QueryRowContext(ctx,
				"SELECT COALESCE(MAX(cycle_number), 0) + 1 FROM cycles WHERE chapter_id = ?",
				params.ChapterID,
			).Scan(&number); err != nil {
				return fmt.Errorf("failed to compute next cycle number: %w", err)
			}
		}
		if err := domain.ValidateCycleNumber(number); err != nil {
			return err
		}

		var startedAt *string
		if state != domain.CycleStateGoalSelection {
			ts := now()
			startedAt = &ts
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO cycles (id, chapter_id, cycle_number, state, started_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, params.ChapterID, number, string(state), startedAt, now())
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("cycle %d already exists in chapter %s", number, params.ChapterID)
			}
			return fmt.Errorf("failed to create cycle: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cs.GetByID(ctx, id)
}

// GetByID returns a cycle by id. Returns nil, nil when nothing matches.
func (cs *CycleStore) GetByID(ctx context.Context, id string) (*domain.Cycle, error) {
	row := cs.store.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE id = ?`, id)
	cycle, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle %s: %w", id, err)
	}
	return cycle, nil
}

// GetForChapter resolves a cycle within a chapter.
//
// An empty identifier selects the chapter's latest cycle. A numeric identifier
// is a cycle number scoped to the chapter. Anything else is treated as a cycle
// id and looked up globally, so a cycle belonging to another chapter is
// returned as-is and left for the caller to reject.
func (cs *CycleStore) GetForChapter(ctx context.Context, chapterID, identifier string) (*domain.Cycle, error) {
	identifier = strings.TrimSpace(identifier)

	var row *sql.Row
	switch number, convErr := strconv.Atoi(identifier); {
	case identifier == "":
		row = cs.store.db.QueryRowContext(ctx, `
			SELECT `+cycleColumns+` FROM cycles
			WHERE chapter_id = ?
			ORDER BY cycle_number DESC
			LIMIT 1
		`, chapterID)
	case convErr == nil:
		row = cs.store.db.QueryRowContext(ctx, `
			SELECT `+cycleColumns+` FROM cycles
			WHERE chapter_id = ? AND cycle_number = ?
		`, chapterID, number)
	default:
		return cs.GetByID(ctx, identifier)
	}

	cycle, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle %q for chapter %s: %w", identifier, chapterID, err)
	}
	return cycle, nil
}

// ListForChapter returns a chapter's cycles, newest first.
func (cs *CycleStore) ListForChapter(ctx context.Context, chapterID string) ([]domain.Cycle, error) {
	rows, err := cs.store.db.QueryContext(ctx, `
		SELECT `+cycleColumns+` FROM cycles
		WHERE chapter_id = ?
		ORDER BY cycle_number DESC
	`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []domain.Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, *cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cycles: %w", err)
	}
	return cycles, nil
}

func scanCycle(row rowScanner) (*domain.Cycle, error) {
	var c domain.Cycle
	var state string
	var startedAt sql.NullString
	var createdAt string
	if err := row.Scan(&c.ID, &c.ChapterID, &c.CycleNumber, &state, &startedAt, &createdAt); err != nil {
		return nil, err
	}

	var err error
	c.State = domain.CycleState(state)
	if c.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}
