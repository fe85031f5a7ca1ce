package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lherron/guildq/internal/domain"
)

// UserStore handles player and coach persistence operations.
type UserStore struct {
	store *Store
}

// UserCreateParams contains parameters for creating a new user.
type UserCreateParams struct {
	Handle string
	Name   string // optional
	Email  string // optional
}

const userColumns = `id, handle, name, email, created_at`

// Create creates a new user. The handle is normalized first.
func (us *UserStore) Create(ctx context.Context, params UserCreateParams) (*domain.User, error) {
	handle, err := domain.NormalizeHandle(params.Handle)
	if err != nil {
		return nil, fmt.Errorf("invalid handle: %w", err)
	}

	var name, email *string
	if params.Name != "" {
		name = &params.Name
	}
	if params.Email != "" {
		email = &params.Email
	}

	id := uuid.NewString()
	_, err = us.store.db.ExecContext(ctx, `
		INSERT INTO users (id, handle, name, email, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, handle, name, email, now())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user with handle %q already exists", handle)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	row := us.store.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to read created user: %w", err)
	}
	return user, nil
}

// FindMany returns every user whose id or handle is in identifiers.
// Only matches are returned; callers diff the result against their request
// to detect misses. Order of the result is unspecified.
func (us *UserStore) FindMany(ctx context.Context, identifiers []string) ([]domain.User, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}

	args := make([]interface{}, 0, len(identifiers)*2)
	for _, identifier := range identifiers {
		args = append(args, identifier)
	}
	for _, identifier := range identifiers {
		args = append(args, identifier)
	}

	in := placeholders(len(identifiers))
	rows, err := us.store.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id IN (`+in+`) OR handle IN (`+in+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// GetByID returns a single user by id. Returns nil, nil when nothing matches.
func (us *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := us.store.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// List returns all users ordered by handle.
func (us *UserStore) List(ctx context.Context) ([]domain.User, error) {
	rows, err := us.store.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY handle`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var name, email sql.NullString
	var createdAt string
	if err := row.Scan(&u.ID, &u.Handle, &name, &email, &createdAt); err != nil {
		return nil, err
	}

	var err error
	u.Name = nullString(name)
	u.Email = nullString(email)
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}
