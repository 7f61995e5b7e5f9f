package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var userRowColumns = []string{
	"user_id", "username", "display_name", "email", "password_hash", "is_verified", "created_at", "updated_at",
}

// ============================================
// users
// ============================================

func TestUserCreate_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUserRepository(db)
	now := time.Now()

	u := &User{ID: uuid.NewString(), Username: "bear", DisplayName: "Bear", Email: "bear@example.com", PasswordHash: "hash", IsVerified: true}
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(u.ID, "bear", "Bear", "bear@example.com", "hash", true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, now, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate_Duplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &User{ID: uuid.NewString(), Username: "bear", Email: "bear@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate_MissingFields(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUserRepository(db)

	err := repo.Create(context.Background(), &User{Username: "bear"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByIdentifier(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUserRepository(db)
	id := uuid.NewString()
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM users WHERE username = \$1 OR email = \$1`).
		WithArgs("bear@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(id, "bear", "Bear", "bear@example.com", "hash", true, now, now))

	u, err := repo.GetByIdentifier(context.Background(), "  Bear@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "bear", u.Username)
	assert.Equal(t, "hash", u.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUserRepository(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE user_id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	u, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, u)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmail_DBError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUserRepository(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByEmail(context.Background(), "bear@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdatePassword(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUserRepository(db)

	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs("u1", "newhash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs("u2", "newhash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdatePassword(context.Background(), "u1", "newhash"))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), "u2", "newhash"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// emergency_contacts
// ============================================

func TestContactList(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresContactRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM emergency_contacts`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"contact_id", "user_id", "name", "email", "phone", "relationship", "created_at"}).
			AddRow("c1", "u1", "Mom", "mom@example.com", "", "parent", now).
			AddRow("c2", "u1", "", "friend@example.com", "555", "", now))

	contacts, err := repo.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "mom@example.com", contacts[0].Email)
	assert.Equal(t, "555", contacts[1].Phone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactList_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresContactRepository(db)

	mock.ExpectQuery(`SELECT .* FROM emergency_contacts`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"contact_id", "user_id", "name", "email", "phone", "relationship", "created_at"}))

	contacts, err := repo.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)
}

func TestContactCreateAndDelete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresContactRepository(db)
	now := time.Now()

	c := &Contact{ID: "c1", UserID: "u1", Name: "Mom", Email: "mom@example.com"}
	mock.ExpectQuery(`INSERT INTO emergency_contacts`).
		WithArgs("c1", "u1", "Mom", "mom@example.com", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectQuery(`INSERT INTO emergency_contacts`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectExec(`DELETE FROM emergency_contacts WHERE user_id = \$1 AND contact_id = \$2`).
		WithArgs("u1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM emergency_contacts WHERE user_id = \$1 AND contact_id = \$2`).
		WithArgs("u1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, now, c.CreatedAt)
	assert.ErrorIs(t, repo.Create(ctx, &Contact{ID: "c2", UserID: "u1", Email: "mom@example.com"}), ErrDuplicate)
	require.NoError(t, repo.Delete(ctx, "u1", "c1"))
	assert.ErrorIs(t, repo.Delete(ctx, "u1", "c1"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactReplace(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresContactRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM emergency_contacts WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO emergency_contacts`).
		WithArgs("c9", "u1", "", "new@example.com", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), "u1", []Contact{{ID: "c9", Email: "new@example.com"}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactReplace_RollsBackOnError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresContactRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM emergency_contacts WHERE user_id = \$1`).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), "u1", nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactCount(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresContactRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM emergency_contacts`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.Count(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.Contains(t, Schema, "emergency_contacts")
	require.NoError(t, mock.ExpectationsWereMet())
}
