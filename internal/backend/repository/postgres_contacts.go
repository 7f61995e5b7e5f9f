package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresContactRepository 紧急联系人存储（PostgreSQL）
type PostgresContactRepository struct {
	db *sql.DB
}

func NewPostgresContactRepository(db *sql.DB) *PostgresContactRepository {
	return &PostgresContactRepository{db: db}
}

var _ ContactRepository = (*PostgresContactRepository)(nil)

func (r *PostgresContactRepository) List(ctx context.Context, userID string) ([]Contact, error) {
	query := `
		SELECT contact_id::text, user_id::text, name, email, phone, relationship, created_at
		  FROM emergency_contacts
		 WHERE user_id = $1
		 ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]Contact, 0)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Relationship, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}

func (r *PostgresContactRepository) Create(ctx context.Context, c *Contact) error {
	query := `
		INSERT INTO emergency_contacts (contact_id, user_id, name, email, phone, relationship)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Relationship).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (r *PostgresContactRepository) Delete(ctx context.Context, userID, contactID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE user_id = $1 AND contact_id = $2`, userID, contactID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresContactRepository) Replace(ctx context.Context, userID string, contacts []Contact) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear contacts: %w", err)
	}
	for i := range contacts {
		c := &contacts[i]
		c.UserID = userID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO emergency_contacts (contact_id, user_id, name, email, phone, relationship)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Relationship)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to insert contact: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit contacts: %w", err)
	}
	return nil
}

func (r *PostgresContactRepository) Count(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emergency_contacts WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return n, nil
}
