package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/auth_service/internal/apperrors"
	"github.com/SscSPs/auth_service/internal/core/domain"
	portsrepo "github.com/SscSPs/auth_service/internal/core/ports/repositories"
	"github.com/SscSPs/auth_service/internal/models"
	"github.com/SscSPs/auth_service/internal/utils/mapping"
)

const userColumns = `user_id, email, password_hash, first_name, last_name, avatar_url, role, status, is_verified,
	google_id, facebook_id, verification_token_hash, verification_token_expires_at,
	reset_token_hash, reset_token_expires_at, last_login_at, created_at, updated_at`

// Listing sort fields mapped to their columns.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"email":     "email",
	"firstName": "first_name",
	"lastName":  "last_name",
	"role":      "role",
	"status":    "status",
}

// providerColumns maps a provider to its nullable unique column.
var providerColumns = map[domain.AuthProvider]string{
	domain.ProviderGoogle:   "google_id",
	domain.ProviderFacebook: "facebook_id",
}

type PgUserRepository struct {
	BaseRepository
}

// NewUserRepository creates the Postgres user store. Every call is bounded by timeout.
func NewUserRepository(db *sql.DB, timeout time.Duration) *PgUserRepository {
	return &PgUserRepository{BaseRepository{DB: db, Timeout: timeout}}
}

// Ensure PgUserRepository implements the repository ports
var (
	_ portsrepo.UserRepositoryFacade = (*PgUserRepository)(nil)
	_ portsrepo.StoreHealthChecker   = (*PgUserRepository)(nil)
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var m models.User
	err := row.Scan(
		&m.UserID,
		&m.Email,
		&m.PasswordHash,
		&m.FirstName,
		&m.LastName,
		&m.AvatarURL,
		&m.Role,
		&m.Status,
		&m.IsVerified,
		&m.GoogleID,
		&m.FacebookID,
		&m.VerificationTokenHash,
		&m.VerificationTokenExpiresAt,
		&m.ResetTokenHash,
		&m.ResetTokenExpiresAt,
		&m.LastLoginAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func (r *PgUserRepository) findOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` = $1`
	m, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by %s: %w", where, err)
	}
	user := mapping.ToDomainUser(m)
	return &user, nil
}

func (r *PgUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.findOne(ctx, "user_id", userID)
}

func (r *PgUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *PgUserRepository) FindUserByProviderID(ctx context.Context, provider domain.AuthProvider, externalID string) (*domain.User, error) {
	column, ok := providerColumns[provider]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.findOne(ctx, column, externalID)
}

func (r *PgUserRepository) FindUserByVerificationTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	return r.findOne(ctx, "verification_token_hash", tokenHash)
}

func (r *PgUserRepository) FindUserByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	return r.findOne(ctx, "reset_token_hash", tokenHash)
}

// buildUserFilter renders the WHERE clause of a listing and its arguments.
func buildUserFilter(filter domain.UserFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Role != nil {
		add("role = $%d", string(*filter.Role))
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.Verified != nil {
		add("is_verified = $%d", *filter.Verified)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *PgUserRepository) FindUsers(ctx context.Context, filter domain.UserFilter, opts domain.UserListOptions) ([]domain.User, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	where, args := buildUserFilter(filter)

	var total int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if opts.SortOrder == domain.SortAsc {
		direction = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s, user_id LIMIT $%d OFFSET $%d`,
		userColumns, where, column, direction, len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	modelUsers := []models.User{}
	for rows.Next() {
		m, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user row: %w", err)
		}
		modelUsers = append(modelUsers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating user rows: %w", err)
	}
	return mapping.ToDomainUserSlice(modelUsers), total, nil
}

func (r *PgUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	m := mapping.ToModelUser(user)
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.DB.ExecContext(ctx, query,
		m.UserID,
		m.Email,
		m.PasswordHash,
		m.FirstName,
		m.LastName,
		m.AvatarURL,
		m.Role,
		m.Status,
		m.IsVerified,
		m.GoogleID,
		m.FacebookID,
		m.VerificationTokenHash,
		m.VerificationTokenExpiresAt,
		m.ResetTokenHash,
		m.ResetTokenExpiresAt,
		m.LastLoginAt,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "failed to save user")
	}
	return nil
}

func (r *PgUserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	m := mapping.ToModelUser(user)
	query := `
		UPDATE users SET
			password_hash = $2,
			first_name = $3,
			last_name = $4,
			avatar_url = $5,
			role = $6,
			status = $7,
			is_verified = $8,
			verification_token_hash = $9,
			verification_token_expires_at = $10,
			reset_token_hash = $11,
			reset_token_expires_at = $12,
			updated_at = $13
		WHERE user_id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		m.UserID,
		m.PasswordHash,
		m.FirstName,
		m.LastName,
		m.AvatarURL,
		m.Role,
		m.Status,
		m.IsVerified,
		m.VerificationTokenHash,
		m.VerificationTokenExpiresAt,
		m.ResetTokenHash,
		m.ResetTokenExpiresAt,
		m.UpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "failed to update user")
	}
	return requireRow(res, "failed to update user")
}

func (r *PgUserRepository) LinkProvider(ctx context.Context, userID string, provider domain.AuthProvider, externalID string, markVerified bool, avatarURL *string) (bool, error) {
	column, ok := providerColumns[provider]
	if !ok {
		return false, fmt.Errorf("unsupported provider %q", provider)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE users SET
			%[1]s = $2,
			is_verified = is_verified OR $3,
			avatar_url = COALESCE(avatar_url, $4),
			updated_at = $5
		WHERE user_id = $1 AND (%[1]s IS NULL OR %[1]s = $2)`, column)
	res, err := r.DB.ExecContext(ctx, query, userID, externalID, markVerified, avatarURL, time.Now().UTC())
	if err != nil {
		return false, mapPgError(err, "failed to link provider")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to link provider: %w", err)
	}
	return n == 1, nil
}

func (r *PgUserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.DB.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE user_id = $1`, userID, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return requireRow(res, "failed to update last login")
}

func (r *PgUserRepository) AddRefreshToken(ctx context.Context, userID string, tokenHash string, expiresAt time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1 AND expires_at <= $2`, userID, now); err != nil {
			return fmt.Errorf("failed to prune refresh tokens: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
			tokenHash, userID, expiresAt, now)
		if err != nil {
			return mapPgError(err, "failed to store refresh token")
		}
		return nil
	})
}

func (r *PgUserRepository) ConsumeRefreshToken(ctx context.Context, userID string, tokenHash string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.DB.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1 AND token_hash = $2`, userID, tokenHash)
	if err != nil {
		return false, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	return n == 1, nil
}

func (r *PgUserRepository) ClearRefreshTokens(ctx context.Context, userID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	// One round trip that also tells a missing user apart from an empty registry.
	query := `
		WITH u AS (SELECT user_id FROM users WHERE user_id = $1),
		     d AS (DELETE FROM refresh_tokens WHERE user_id IN (SELECT user_id FROM u))
		SELECT COUNT(*) FROM u`
	var found int
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&found); err != nil {
		return fmt.Errorf("failed to clear refresh tokens: %w", err)
	}
	if found == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteUser removes the user; refresh tokens go with it through ON DELETE CASCADE.
func (r *PgUserRepository) DeleteUser(ctx context.Context, userID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRow(res, "failed to delete user")
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
