package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PostgresUserRepository 账号存储（PostgreSQL）
type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// 确保实现了接口
var _ UserRepository = (*PostgresUserRepository)(nil)

const userColumns = `user_id::text, username, display_name, email, password_hash, is_verified, created_at, updated_at`

func (r *PostgresUserRepository) Create(ctx context.Context, u *User) error {
	if u.ID == "" || u.Username == "" || u.Email == "" {
		return fmt.Errorf("user_id, username and email are required")
	}
	query := `
		INSERT INTO users (user_id, username, display_name, email, password_hash, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		u.ID, u.Username, u.DisplayName, u.Email, u.PasswordHash, u.IsVerified,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, userID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresUserRepository) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1 LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) scanOne(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.DisplayName,
		&u.Email,
		&u.PasswordHash,
		&u.IsVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
