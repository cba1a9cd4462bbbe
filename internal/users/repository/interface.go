package repository

import (
	"context"

	"github.com/google/uuid"
)

// User represents an account that can sign in to the platform.
type User struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FullName     string    `db:"full_name"`
	Phone        *string   `db:"phone"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    string    `db:"created_at"`
	UpdatedAt    string    `db:"updated_at"`
}

// CreateParams contains parameters for creating a user.
type CreateParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        *string
	Role         string
}

// UpdateParams contains parameters for updating a user.
type UpdateParams struct {
	ID       uuid.UUID
	FullName *string
	Phone    *string
	Role     *string
}

// ListParams contains filters for listing users.
type ListParams struct {
	Role   *string
	Search string
	Limit  int
	Offset int
}

// UserReader provides read operations for users.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, params ListParams) ([]User, int, error)
	ListTechnicians(ctx context.Context) ([]User, error)
}

// UserWriter provides write operations for users.
type UserWriter interface {
	Create(ctx context.Context, params CreateParams) (User, error)
	Update(ctx context.Context, params UpdateParams) (User, error)
	SetActive(ctx context.Context, id uuid.UUID, isActive bool) error
}

// Repository combines all user repository operations.
type Repository interface {
	UserReader
	UserWriter
}
