package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/fault"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/geocoder89/userhub/internal/validation"
)

// Store is the persistence capability set the service orchestrates. Both the
// postgres and the in-memory repo satisfy it.
type Store interface {
	Create(ctx context.Context, u user.User, passwordHash string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetPasswordHash(ctx context.Context, id int64) (string, error)
	List(ctx context.Context, p user.ListParams) ([]user.User, int, error)
	Update(ctx context.Context, id int64, patch user.Patch) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

type Hasher interface {
	Hash(plain string) (string, error)
	Check(hash, plain string) error
}

// BcryptHasher is the production Hasher.
type BcryptHasher struct{}

func (BcryptHasher) Hash(plain string) (string, error) { return security.HashPassword(plain) }
func (BcryptHasher) Check(hash, plain string) error    { return security.CheckPassword(hash, plain) }

// UserService enforces the account invariants: field validation before any
// write, email/username uniqueness, bcrypt-only credential storage, and the
// closed error taxonomy. It holds no state of its own.
type UserService struct {
	store  Store
	hasher Hasher
	log    *slog.Logger
}

func NewUserService(store Store, hasher Hasher, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}

	return &UserService{
		store:  store,
		hasher: hasher,
		log:    log,
	}
}

// storeFault maps a storage failure onto the taxonomy; internal causes are
// logged here with full detail and surfaced only as the generic message.
func (s *UserService) storeFault(op string, err error, msg string) *fault.Error {
	f := fault.FromStore(err, msg)

	if f.Kind == fault.KindInternal {
		s.log.Error(op, "err", err)
	}

	return f
}

// Create validates the input, pre-checks uniqueness for earlier feedback,
// hashes the password and inserts. A late unique violation from the store is
// still mapped to the same Conflict kind; the pre-check is only advisory.
func (s *UserService) Create(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	if violations := validation.Check(&req); violations != nil {
		return user.User{}, fault.Validation(violations)
	}

	email := validation.NormalizeEmail(req.Email)

	_, err := s.store.GetByEmail(ctx, email)

	if err == nil {
		return user.User{}, fault.Conflict("Email already in use")
	}

	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, s.storeFault("users.create.email_check", err, "Failed to create user")
	}

	_, err = s.store.GetByUsername(ctx, req.Username)

	if err == nil {
		return user.User{}, fault.Conflict("Username already in use")
	}

	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, s.storeFault("users.create.username_check", err, "Failed to create user")
	}

	hash, err := s.hasher.Hash(req.Password)

	if err != nil {
		s.log.Error("users.create.hash", "err", err)
		return user.User{}, fault.Internal("Failed to create user", err)
	}

	isActive := true

	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := time.Now().UTC()

	u := user.User{
		Email:     email,
		Username:  req.Username,
		FirstName: &req.FirstName,
		LastName:  &req.LastName,
		Avatar:    req.Avatar,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.store.Create(ctx, u, hash)

	if err != nil {
		return user.User{}, s.storeFault("users.create", err, "Failed to create user")
	}

	return created, nil
}

// FindAll returns one page of users with paging metadata. An unrecognized
// sort field behaves exactly like the default one, never an error.
func (s *UserService) FindAll(ctx context.Context, p user.ListParams) (user.Page, error) {
	if p.Page < 1 {
		p.Page = user.DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = user.DefaultLimit
	}
	if p.Limit > user.MaxLimit {
		p.Limit = user.MaxLimit
	}
	if !user.IsSortable(p.SortBy) {
		p.SortBy = user.DefaultSortBy
	}
	if p.SortOrder != user.SortOrderAsc && p.SortOrder != user.SortOrderDesc {
		p.SortOrder = user.SortOrderDesc
	}

	items, total, err := s.store.List(ctx, p)

	if err != nil {
		return user.Page{}, s.storeFault("users.list", err, "Failed to fetch users")
	}

	return user.Page{
		Data:       items,
		Pagination: user.NewPagination(p.Page, p.Limit, total),
	}, nil
}

// FindByID returns nil without error when the id does not exist; callers
// decide whether absence is a NotFound.
func (s *UserService) FindByID(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.store.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}

		return nil, s.storeFault("users.get_by_id", err, "Failed to fetch user")
	}

	return &u, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	if email == "" {
		return nil, nil
	}

	u, err := s.store.GetByEmail(ctx, validation.NormalizeEmail(email))

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}

		return nil, s.storeFault("users.get_by_email", err, "Failed to fetch user")
	}

	return &u, nil
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	if username == "" {
		return nil, nil
	}

	u, err := s.store.GetByUsername(ctx, username)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}

		return nil, s.storeFault("users.get_by_username", err, "Failed to fetch user")
	}

	return &u, nil
}

// Update applies a partial patch. Uniqueness is re-checked only for fields
// that are present and actually change; updatedAt is refreshed even for an
// empty patch.
func (s *UserService) Update(ctx context.Context, id int64, req user.UpdateUserRequest) (user.User, error) {
	if violations := validation.Check(&req); violations != nil {
		return user.User{}, fault.Validation(violations)
	}

	current, err := s.store.GetByID(ctx, id)

	if err != nil {
		return user.User{}, s.storeFault("users.update.load", err, "Failed to update user")
	}

	patch := user.Patch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
		IsActive:  req.IsActive,
	}

	if req.Email != nil {
		email := validation.NormalizeEmail(*req.Email)

		if email != current.Email {
			_, err := s.store.GetByEmail(ctx, email)

			if err == nil {
				return user.User{}, fault.Conflict("Email already in use")
			}

			if !errors.Is(err, user.ErrNotFound) {
				return user.User{}, s.storeFault("users.update.email_check", err, "Failed to update user")
			}

			patch.Email = &email
		}
	}

	if req.Username != nil && *req.Username != current.Username {
		_, err := s.store.GetByUsername(ctx, *req.Username)

		if err == nil {
			return user.User{}, fault.Conflict("Username already in use")
		}

		if !errors.Is(err, user.ErrNotFound) {
			return user.User{}, s.storeFault("users.update.username_check", err, "Failed to update user")
		}

		patch.Username = req.Username
	}

	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)

		if err != nil {
			s.log.Error("users.update.hash", "err", err)
			return user.User{}, fault.Internal("Failed to update user", err)
		}

		patch.PasswordHash = &hash
	}

	updated, err := s.store.Update(ctx, id, patch)

	if err != nil {
		return user.User{}, s.storeFault("users.update", err, "Failed to update user")
	}

	return updated, nil
}

// Delete removes the record permanently; there is no recovery path.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.store.Delete(ctx, id)

	if err != nil {
		return s.storeFault("users.delete", err, "Failed to delete user")
	}

	return nil
}

func (s *UserService) UpdateStatus(ctx context.Context, id int64, req user.UpdateStatusRequest) (user.User, error) {
	if violations := validation.Check(&req); violations != nil {
		return user.User{}, fault.Validation(violations)
	}

	updated, err := s.store.Update(ctx, id, user.Patch{IsActive: req.IsActive})

	if err != nil {
		return user.User{}, s.storeFault("users.update_status", err, "Failed to update user status")
	}

	return updated, nil
}

// ChangePassword verifies the old password before storing a new hash. A
// mismatch is Unauthorized; a corrupted stored hash is an internal fault.
func (s *UserService) ChangePassword(ctx context.Context, id int64, req user.ChangePasswordRequest) error {
	if violations := validation.Check(&req); violations != nil {
		return fault.Validation(violations)
	}

	hash, err := s.store.GetPasswordHash(ctx, id)

	if err != nil {
		return s.storeFault("users.change_password.load", err, "Failed to change password")
	}

	err = s.hasher.Check(hash, req.OldPassword)

	if err != nil {
		if errors.Is(err, security.ErrMismatch) {
			return fault.Unauthorized("invalid old password")
		}

		s.log.Error("users.change_password.verify", "err", err)
		return fault.Internal("Failed to change password", err)
	}

	newHash, err := s.hasher.Hash(req.NewPassword)

	if err != nil {
		s.log.Error("users.change_password.hash", "err", err)
		return fault.Internal("Failed to change password", err)
	}

	_, err = s.store.Update(ctx, id, user.Patch{PasswordHash: &newHash})

	if err != nil {
		return s.storeFault("users.change_password", err, "Failed to change password")
	}

	return nil
}

// VerifyPassword checks credentials by email and returns the projected user
// on success, nil on unknown email or mismatch. No hash ever leaves here.
func (s *UserService) VerifyPassword(ctx context.Context, email, password string) (*user.User, error) {
	if email == "" || password == "" {
		return nil, nil
	}

	u, err := s.FindByEmail(ctx, email)

	if err != nil || u == nil {
		return nil, err
	}

	hash, err := s.store.GetPasswordHash(ctx, u.ID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}

		return nil, s.storeFault("users.verify_password.load", err, "Failed to verify password")
	}

	err = s.hasher.Check(hash, password)

	if err != nil {
		if errors.Is(err, security.ErrMismatch) {
			return nil, nil
		}

		s.log.Error("users.verify_password", "err", err)
		return nil, fault.Internal("Failed to verify password", err)
	}

	return u, nil
}
