package transport

import "github.com/google/uuid"

// CreateUserRequest contains data for provisioning a new account.
type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	FullName string  `json:"fullName" validate:"required,min=1,max=150"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Role     string  `json:"role" validate:"required"`
}

// UpdateUserRequest contains data for updating an existing account.
type UpdateUserRequest struct {
	FullName *string `json:"fullName,omitempty" validate:"omitempty,min=1,max=150"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Role     *string `json:"role,omitempty"`
}

// ListUsersRequest contains filters for the user list.
type ListUsersRequest struct {
	Role     *string `form:"role"`
	Search   string  `form:"search"`
	Page     int     `form:"page"`
	PageSize int     `form:"pageSize"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Phone     *string   `json:"phone,omitempty"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

// UserListResponse wraps a paginated list of users.
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
}
