package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

//go:embed schema.sql
var Schema string

// Migrate 执行建表语句（幂等）
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// User 账号
type User struct {
	ID           string
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Contact 紧急联系人
type Contact struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserRepository 账号存储
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, userID string) (*User, error)
	// GetByIdentifier 按用户名或邮箱查找
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// ContactRepository 紧急联系人存储
type ContactRepository interface {
	List(ctx context.Context, userID string) ([]Contact, error)
	Create(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, userID, contactID string) error
	// Replace 用一组联系人替换该用户的全部联系人
	Replace(ctx context.Context, userID string, contacts []Contact) error
	Count(ctx context.Context, userID string) (int, error)
}

// isUniqueViolation PostgreSQL 23505
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
