package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldops_backend/internal/users/domain"
	"fieldops_backend/platform/apperr"
)

const userNotFoundMessage = "user not found"

const userColumns = "id, email, password_hash, full_name, phone, role, is_active, created_at, updated_at"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new users repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a user by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMessage)
		}
		return User{}, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMessage)
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

// List retrieves users with optional role and search filters, paginated.
func (r *Repo) List(ctx context.Context, params ListParams) ([]User, int, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}
	var roleParam interface{}
	if params.Role != nil {
		roleParam = strings.ToUpper(*params.Role)
	}

	countQuery := `
		SELECT COUNT(*)
		FROM users
		WHERE ($1::text IS NULL OR role = $1)
			AND ($2::text IS NULL OR full_name ILIKE $2 OR email ILIKE $2)`

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, roleParam, searchParam).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1::text IS NULL OR role = $1)
			AND ($2::text IS NULL OR full_name ILIKE $2 OR email ILIKE $2)
		ORDER BY full_name ASC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, roleParam, searchParam, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ListTechnicians retrieves all active technician accounts, oldest first.
// Creation order doubles as the tie-breaker for automatic assignment.
func (r *Repo) ListTechnicians(ctx context.Context) ([]User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1 AND is_active = true
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, domain.RoleTech)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

// Create inserts a new user. Duplicate emails map to a conflict error.
func (r *Repo) Create(ctx context.Context, params CreateParams) (User, error) {
	query := `
		INSERT INTO users (email, password_hash, full_name, phone, role)
		VALUES (lower($1), $2, $3, $4, $5)
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query,
		params.Email, params.PasswordHash, params.FullName, params.Phone, params.Role,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, apperr.Conflict("email already in use")
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Update modifies mutable user fields.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (User, error) {
	query := `
		UPDATE users SET
			full_name = COALESCE($2, full_name),
			phone = COALESCE($3, phone),
			role = COALESCE($4, role),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, params.ID, params.FullName, params.Phone, params.Role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound(userNotFoundMessage)
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// SetActive sets the is_active flag for a user.
func (r *Repo) SetActive(ctx context.Context, id uuid.UUID, isActive bool) error {
	query := `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, isActive)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(userNotFoundMessage)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Role,
		&u.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return User{}, err
	}

	u.CreatedAt = createdAt.Format(time.RFC3339)
	u.UpdatedAt = updatedAt.Format(time.RFC3339)

	return u, nil
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	var results []User

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		results = append(results, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return results, nil
}
