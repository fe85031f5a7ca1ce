package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lherron/guildq/internal/cursor"
	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/events"
)

// ProjectStore handles project persistence operations.
type ProjectStore struct {
	store *Store
}

// ProjectFilter narrows List results. Empty fields match everything.
type ProjectFilter struct {
	ChapterID string
	CycleID   string

	// After resumes listing past a cursor built with ProjectSortFields.
	After *cursor.Cursor
	// Limit caps the number of rows; 0 means no limit.
	Limit int
}

// ProjectSortFields is the ordering List pages by
var ProjectSortFields = []string{"name"}

const projectColumns = `id, chapter_id, cycle_id, name, goal, player_ids, coach_id, etag, created_at, updated_at`

// Create inserts a new project and logs a project.created event.
func (ps *ProjectStore) Create(ctx context.Context, name string, fields domain.ProjectFields) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}

	goalJSON, err := encodeGoal(fields.Goal)
	if err != nil {
		return nil, err
	}
	playersJSON, err := json.Marshal(normalizeIDs(fields.PlayerIDs.OrElse(nil)))
	if err != nil {
		return nil, fmt.Errorf("failed to encode player ids: %w", err)
	}
	var coachID *string
	if v, ok := fields.CoachID.Get(); ok && v != "" {
		coachID = &v
	}

	id := uuid.NewString()
	var project *domain.Project

	err = ps.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		ts := now()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, chapter_id, cycle_id, name, goal, player_ids, coach_id, etag, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`, id, fields.ChapterID, fields.CycleID, name, goalJSON, string(playersJSON), coachID, ts, ts)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("project name %q is already taken", name)
			}
			return fmt.Errorf("failed to create project: %w", err)
		}

		project, err = getProjectTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := ew.LogProjectCreated(ctx, tx, project); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return project, nil
}

// Update merges fields into an existing project and logs a project.updated
// event. Optional fields that are not set keep their stored values.
func (ps *ProjectStore) Update(ctx context.Context, id string, fields domain.ProjectFields) (*domain.Project, error) {
	setClauses := []string{"chapter_id = ?", "cycle_id = ?"}
	args := []interface{}{fields.ChapterID, fields.CycleID}

	if fields.Goal.IsSet() {
		goalJSON, err := encodeGoal(fields.Goal)
		if err != nil {
			return nil, err
		}
		setClauses = append(setClauses, "goal = ?")
		args = append(args, goalJSON)
	}
	if playerIDs, ok := fields.PlayerIDs.Get(); ok {
		playersJSON, err := json.Marshal(normalizeIDs(playerIDs))
		if err != nil {
			return nil, fmt.Errorf("failed to encode player ids: %w", err)
		}
		setClauses = append(setClauses, "player_ids = ?")
		args = append(args, string(playersJSON))
	}
	if coachID, ok := fields.CoachID.Get(); ok {
		var value *string
		if coachID != "" {
			value = &coachID
		}
		setClauses = append(setClauses, "coach_id = ?")
		args = append(args, value)
	}

	setClauses = append(setClauses, "etag = etag + 1", "updated_at = ?")
	args = append(args, now(), id)

	var project *domain.Project
	err := ps.store.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		query := fmt.Sprintf("UPDATE projects SET %s WHERE id = ?", strings.Join(setClauses, ", "))
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("project not found: %s", id)
		}

		project, err = getProjectTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := ew.LogProjectUpdated(ctx, tx, id, project.ETag, fields.Changes()); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return project, nil
}

// Get resolves a project by id or name. Returns nil, nil when nothing matches.
func (ps *ProjectStore) Get(ctx context.Context, identifier string) (*domain.Project, error) {
	if identifier == "" {
		return nil, nil
	}

	row := ps.store.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE id = ? OR name = ?
		ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END
		LIMIT 1
	`, identifier, identifier, identifier)

	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %s: %w", identifier, err)
	}
	return project, nil
}

// NameExists reports whether a project already uses name.
func (ps *ProjectStore) NameExists(ctx context.Context, name string) (bool, error) {
	var count int
	if err := ps.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects WHERE name = ?", name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check project name: %w", err)
	}
	return count > 0, nil
}

// List returns projects matching filter ordered by name.
func (ps *ProjectStore) List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE 1 = 1`
	var args []interface{}
	if filter.ChapterID != "" {
		query += ` AND chapter_id = ?`
		args = append(args, filter.ChapterID)
	}
	if filter.CycleID != "" {
		query += ` AND cycle_id = ?`
		args = append(args, filter.CycleID)
	}
	if filter.After != nil {
		if !filter.After.Matches(ProjectSortFields...) {
			return nil, fmt.Errorf("cursor was not issued for project listing")
		}
		where, params := filter.After.Where()
		query += ` AND ` + where
		args = append(args, params...)
	}
	query += ` ORDER BY name, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := ps.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func getProjectTx(ctx context.Context, tx *sql.Tx, id string) (*domain.Project, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("failed to read project %s: %w", id, err)
	}
	return project, nil
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var goal, coachID sql.NullString
	var playerIDs string
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.ChapterID, &p.CycleID, &p.Name, &goal, &playerIDs, &coachID, &p.ETag, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if goal.Valid && goal.String != "" {
		var g domain.Goal
		if err := json.Unmarshal([]byte(goal.String), &g); err != nil {
			return nil, fmt.Errorf("invalid goal document on project %s: %w", p.ID, err)
		}
		p.Goal = &g
	}

	p.PlayerIDs = []string{}
	if playerIDs != "" {
		if err := json.Unmarshal([]byte(playerIDs), &p.PlayerIDs); err != nil {
			return nil, fmt.Errorf("invalid player ids on project %s: %w", p.ID, err)
		}
	}

	var err error
	p.CoachID = nullString(coachID)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func encodeGoal(goal domain.Optional[domain.Goal]) (*string, error) {
	g, ok := goal.Get()
	if !ok {
		return nil, nil
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to encode goal: %w", err)
	}
	s := string(data)
	return &s, nil
}

func normalizeIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
