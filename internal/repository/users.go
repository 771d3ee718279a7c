package repository

import (
	"context"
	"database/sql"

	"rsvp/internal/database"
	"rsvp/internal/models"
)

// UserRepository handles user data access.
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (user_id, name)
		VALUES ($1, $2)
		RETURNING user_id, name, created_at, updated_at`

	var created models.User
	err := r.db.QueryRowContext(ctx, query, u.UserID, u.Name).Scan(
		&created.UserID, &created.Name, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, wrapStoreErr("create user", err)
	}
	return &created, nil
}

// GetByID returns the user or (nil, nil) when absent.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT user_id, name, created_at, updated_at FROM users WHERE user_id = $1`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&u.UserID, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("get user", err)
	}
	return &u, nil
}

// Update changes the user's name, returning (nil, nil) when absent.
func (r *UserRepository) Update(ctx context.Context, userID, name string) (*models.User, error) {
	query := `
		UPDATE users SET name = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, name, created_at, updated_at`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, userID, name).Scan(
		&u.UserID, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr("update user", err)
	}
	return &u, nil
}

// Delete removes the user; registration rows follow via ON DELETE CASCADE.
// Returns false when no such user exists.
func (r *UserRepository) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return false, wrapStoreErr("delete user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapStoreErr("delete user", err)
	}
	return n > 0, nil
}

// List returns all users ordered by creation time.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	query := `
		SELECT user_id, name, created_at, updated_at
		FROM users
		ORDER BY created_at, user_id
		LIMIT $1 OFFSET $2`

	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, wrapStoreErr("list users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.UserID, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, wrapStoreErr("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list users", err)
	}
	return users, nil
}
