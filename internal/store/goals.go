package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lherron/guildq/internal/domain"
)

// GoalStore is the local goal catalog.
type GoalStore struct {
	store *Store
}

// Upsert inserts or replaces a goal by number.
func (gs *GoalStore) Upsert(ctx context.Context, goal domain.Goal) error {
	if goal.Number < 1 {
		return fmt.Errorf("invalid goal number %d: must be positive", goal.Number)
	}
	if strings.TrimSpace(goal.Title) == "" {
		return fmt.Errorf("goal %d: title cannot be empty", goal.Number)
	}

	var url *string
	if goal.URL != "" {
		url = &goal.URL
	}

	_, err := gs.store.db.ExecContext(ctx, `
		INSERT INTO goals (number, title, url, team_size, level, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			team_size = excluded.team_size,
			level = excluded.level
	`, goal.Number, goal.Title, url, goal.TeamSize, goal.Level, now())
	if err != nil {
		return fmt.Errorf("failed to upsert goal %d: %w", goal.Number, err)
	}
	return nil
}

// Get returns a goal by number. Returns nil, nil when nothing matches.
func (gs *GoalStore) Get(ctx context.Context, number int) (*domain.Goal, error) {
	row := gs.store.db.QueryRowContext(ctx, `
		SELECT number, title, url, team_size, level FROM goals WHERE number = ?
	`, number)

	goal, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal %d: %w", number, err)
	}
	return goal, nil
}

// List returns the catalog ordered by number.
func (gs *GoalStore) List(ctx context.Context) ([]domain.Goal, error) {
	rows, err := gs.store.db.QueryContext(ctx, `
		SELECT number, title, url, team_size, level FROM goals ORDER BY number
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, *goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var g domain.Goal
	var url sql.NullString
	if err := row.Scan(&g.Number, &g.Title, &url, &g.TeamSize, &g.Level); err != nil {
		return nil, err
	}
	g.URL = url.String
	return &g, nil
}
