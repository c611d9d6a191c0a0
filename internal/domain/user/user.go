package user

import (
	"errors"
	"time"
)

// Storage level signals. Repos translate their engine's failure codes into
// these; the service layer turns them into the public error taxonomy.
var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already in use")
	ErrUsernameTaken = errors.New("username already in use")
)

// User is the projected record returned to callers. The password hash is not
// a field here at all: repos select it only through GetPasswordHash, so a
// response can never leak it.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName *string   `json:"firstName,omitempty"`
	LastName  *string   `json:"lastName,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateUserRequest struct {
	Email     string  `json:"email" binding:"required,email" validate:"required,email"`
	Username  string  `json:"username" binding:"required,min=3" validate:"required,min=3"`
	FirstName string  `json:"firstName" binding:"required,min=1" validate:"required,min=1"`
	LastName  string  `json:"lastName" binding:"required,min=1" validate:"required,min=1"`
	Password  string  `json:"password" binding:"required,min=6" validate:"required,min=6"`
	Avatar    *string `json:"avatar,omitempty" binding:"omitempty,url" validate:"omitempty,url"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

// UpdateUserRequest is a partial patch: nil means "leave untouched".
type UpdateUserRequest struct {
	Email     *string `json:"email,omitempty" binding:"omitempty,email" validate:"omitempty,email"`
	Username  *string `json:"username,omitempty" binding:"omitempty,min=3" validate:"omitempty,min=3"`
	FirstName *string `json:"firstName,omitempty" binding:"omitempty,min=1" validate:"omitempty,min=1"`
	LastName  *string `json:"lastName,omitempty" binding:"omitempty,min=1" validate:"omitempty,min=1"`
	Password  *string `json:"password,omitempty" binding:"omitempty,min=6" validate:"omitempty,min=6"`
	Avatar    *string `json:"avatar,omitempty" binding:"omitempty,url" validate:"omitempty,url"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required,min=1" validate:"required,min=1"`
	NewPassword string `json:"newPassword" binding:"required,min=6" validate:"required,min=6"`
}

// Patch is the persistence-level partial update built by the service after
// validation and hashing. Every field is accounted for at compile time.
type Patch struct {
	Email        *string
	Username     *string
	FirstName    *string
	LastName     *string
	Avatar       *string
	IsActive     *bool
	PasswordHash *string
}

func (p Patch) IsZero() bool {
	return p.Email == nil && p.Username == nil && p.FirstName == nil &&
		p.LastName == nil && p.Avatar == nil && p.IsActive == nil && p.PasswordHash == nil
}

const (
	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"

	DefaultSortBy = "createdAt"
	DefaultPage   = 1
	DefaultLimit  = 10
	MaxLimit      = 100
)

// sortable fields; anything else silently falls back to DefaultSortBy.
var sortableFields = map[string]struct{}{
	"id":        {},
	"email":     {},
	"username":  {},
	"firstName": {},
	"lastName":  {},
	"createdAt": {},
	"updatedAt": {},
}

func IsSortable(field string) bool {
	_, ok := sortableFields[field]
	return ok
}

// ListParams is a normalized paging/filter/sort request. Build it with
// validation.NormalizeListQuery; zero values are not safe to pass to repos.
type ListParams struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type Page struct {
	Data       []User     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination computes the paging metadata for a total count.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
