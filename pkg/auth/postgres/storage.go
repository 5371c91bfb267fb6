// Package postgres provides the pgx-backed implementation of the auth
// storage interfaces.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/pkg/auth"
)

// Storage implements auth.UserStorage and auth.AccountStorage on a pgx
// connection pool.
type Storage struct {
	pool *pgxpool.Pool
}

// NewStorage creates a Postgres-backed auth storage.
func NewStorage(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// uniqueViolation is the Postgres error code for unique constraint breaks.
const uniqueViolation = "23505"

func wrapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &auth.ConstraintViolationError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}

func (s *Storage) CreateUser(ctx context.Context, user *auth.User) error {
	const q = `
		INSERT INTO users (username, email, password_hash, role_id, verified, two_factor_enabled, auth_method, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := s.pool.QueryRow(ctx, q,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role.ID,
		user.Verified,
		user.TwoFactorEnabled,
		user.AuthMethod,
		user.AvatarURL,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return wrapConstraint(err)
	}
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	const q = userSelect + ` WHERE u.id = $1`
	return s.queryUser(ctx, q, id)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	const q = userSelect + ` WHERE u.email = $1`
	return s.queryUser(ctx, q, email)
}

const userSelect = `
	SELECT u.id, u.username, u.email, u.password_hash, r.id, r.name,
	       u.verified, u.two_factor_enabled, u.auth_method, u.avatar_url,
	       u.created_at, u.updated_at
	FROM users u
	JOIN roles r ON r.id = u.role_id`

func (s *Storage) queryUser(ctx context.Context, q string, arg any) (*auth.User, error) {
	var user auth.User
	err := s.pool.QueryRow(ctx, q, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role.ID,
		&user.Role.Name,
		&user.Verified,
		&user.TwoFactorEnabled,
		&user.AuthMethod,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	accounts, err := s.accountsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Accounts = accounts

	return &user, nil
}

func (s *Storage) UpdateUserVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	const q = `UPDATE users SET verified = $2, updated_at = now() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, id, verified)
	if err != nil {
		return fmt.Errorf("failed to update verified flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Storage) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *Storage) GetDefaultRole(ctx context.Context) (*auth.Role, error) {
	const q = `SELECT id, name FROM roles WHERE name = $1`

	var role auth.Role
	err := s.pool.QueryRow(ctx, q, auth.DefaultRoleName).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("role %q not found", auth.DefaultRoleName)
		}
		return nil, fmt.Errorf("failed to query default role: %w", err)
	}
	return &role, nil
}

func (s *Storage) GetAccount(ctx context.Context, id, provider string) (*auth.ExternalAccount, error) {
	const q = `
		SELECT id, provider, access_token, refresh_token, expires_at, user_id, created_at, updated_at
		FROM external_accounts
		WHERE id = $1 AND provider = $2`

	var account auth.ExternalAccount
	err := s.pool.QueryRow(ctx, q, id, provider).Scan(
		&account.ID,
		&account.Provider,
		&account.AccessToken,
		&account.RefreshToken,
		&account.ExpiresAt,
		&account.UserID,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to query external account: %w", err)
	}
	return &account, nil
}

func (s *Storage) CreateAccount(ctx context.Context, account *auth.ExternalAccount) error {
	const q = `
		INSERT INTO external_accounts (id, provider, access_token, refresh_token, expires_at, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, q,
		account.ID,
		account.Provider,
		account.AccessToken,
		account.RefreshToken,
		account.ExpiresAt,
		account.UserID,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return wrapConstraint(err)
	}
	return nil
}

func (s *Storage) LinkAccount(ctx context.Context, id, provider string, userID uuid.UUID) error {
	const q = `
		UPDATE external_accounts
		SET user_id = $3, updated_at = now()
		WHERE id = $1 AND provider = $2 AND user_id IS NULL`

	tag, err := s.pool.Exec(ctx, q, id, provider, userID)
	if err != nil {
		return fmt.Errorf("failed to link external account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func (s *Storage) UpdateAccountTokens(ctx context.Context, account *auth.ExternalAccount) error {
	const q = `
		UPDATE external_accounts
		SET access_token = $3, refresh_token = $4, expires_at = $5, updated_at = now()
		WHERE id = $1 AND provider = $2`

	tag, err := s.pool.Exec(ctx, q,
		account.ID,
		account.Provider,
		account.AccessToken,
		account.RefreshToken,
		account.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func (s *Storage) accountsByUser(ctx context.Context, userID uuid.UUID) ([]auth.ExternalAccount, error) {
	const q = `
		SELECT id, provider, access_token, refresh_token, expires_at, user_id, created_at, updated_at
		FROM external_accounts
		WHERE user_id = $1
		ORDER BY provider`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query external accounts: %w", err)
	}
	defer rows.Close()

	var accounts []auth.ExternalAccount
	for rows.Next() {
		var a auth.ExternalAccount
		if err := rows.Scan(
			&a.ID,
			&a.Provider,
			&a.AccessToken,
			&a.RefreshToken,
			&a.ExpiresAt,
			&a.UserID,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan external account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate external accounts: %w", err)
	}

	return accounts, nil
}

// Compile-time interface assertions
var (
	_ auth.UserStorage    = (*Storage)(nil)
	_ auth.AccountStorage = (*Storage)(nil)
)
