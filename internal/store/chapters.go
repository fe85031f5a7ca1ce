package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lherron/guildq/internal/domain"
)

// ChapterStore handles chapter persistence operations.
type ChapterStore struct {
	store *Store
}

// ChapterCreateParams contains parameters for creating a new chapter.
type ChapterCreateParams struct {
	Name        string
	ChannelName string // optional
}

const chapterColumns = `id, name, channel_name, created_at, updated_at`

// Create creates a new chapter.
func (cs *ChapterStore) Create(ctx context.Context, params ChapterCreateParams) (*domain.Chapter, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("chapter name cannot be empty")
	}

	var channel *string
	if params.ChannelName != "" {
		channel = &params.ChannelName
	}

	id := uuid.NewString()
	ts := now()
	_, err := cs.store.db.ExecContext(ctx, `
		INSERT INTO chapters (id, name, channel_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, name, channel, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("chapter %q already exists", name)
		}
		return nil, fmt.Errorf("failed to create chapter: %w", err)
	}

	return cs.Get(ctx, id)
}

// Get resolves a chapter by id or name. Returns nil, nil when nothing matches.
func (cs *ChapterStore) Get(ctx context.Context, identifier string) (*domain.Chapter, error) {
	if identifier == "" {
		return nil, nil
	}

	row := cs.store.db.QueryRowContext(ctx, `
		SELECT `+chapterColumns+`
		FROM chapters
		WHERE id = ? OR name = ?
		ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END
		LIMIT 1
	`, identifier, identifier, identifier)

	chapter, err := scanChapter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter %s: %w", identifier, err)
	}
	return chapter, nil
}

// List returns all chapters ordered by name.
func (cs *ChapterStore) List(ctx context.Context) ([]domain.Chapter, error) {
	rows, err := cs.store.db.QueryContext(ctx, `SELECT `+chapterColumns+` FROM chapters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	var chapters []domain.Chapter
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		chapters = append(chapters, *chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chapters: %w", err)
	}
	return chapters, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChapter(row rowScanner) (*domain.Chapter, error) {
	var c domain.Chapter
	var channel sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.Name, &channel, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	c.ChannelName = nullString(channel)
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
