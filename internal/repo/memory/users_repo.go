package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
)

type record struct {
	user user.User
	hash string
}

// UsersRepo is an in-memory mirror of the postgres store contract, used by
// tests and local development. Uniqueness is enforced atomically under the
// same lock as the write, matching the database constraint semantics.
type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*record
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		nextID: 1,
		users:  make(map[int64]*record),
	}
}

func (r *UsersRepo) Create(_ context.Context, u user.User, passwordHash string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(u.Email, u.Username, 0); err != nil {
		return user.User{}, err
	}

	u.ID = r.nextID
	r.nextID++

	r.users[u.ID] = &record{user: u, hash: passwordHash}

	return u, nil
}

func (r *UsersRepo) checkUnique(email, username string, selfID int64) error {
	for id, rec := range r.users {
		if id == selfID {
			continue
		}
		if email != "" && strings.EqualFold(rec.user.Email, email) {
			return user.ErrEmailTaken
		}
		if username != "" && rec.user.Username == username {
			return user.ErrUsernameTaken
		}
	}

	return nil
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return rec.user, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.users {
		if strings.EqualFold(rec.user.Email, email) {
			return rec.user, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.users {
		if rec.user.Username == username {
			return rec.user, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetPasswordHash(_ context.Context, id int64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users[id]

	if !ok {
		return "", user.ErrNotFound
	}

	return rec.hash, nil
}

func (r *UsersRepo) List(_ context.Context, p user.ListParams) ([]user.User, int, error) {
	r.mu.RLock()

	matched := make([]user.User, 0, len(r.users))

	for _, rec := range r.users {
		if matchesSearch(rec.user, p.Search) {
			matched = append(matched, rec.user)
		}
	}

	r.mu.RUnlock()

	sortUsers(matched, p.SortBy, p.SortOrder)

	total := len(matched)
	start := p.Offset()

	if start >= total {
		return []user.User{}, total, nil
	}

	end := start + p.Limit

	if end > total {
		end = total
	}

	return matched[start:end], total, nil
}

func matchesSearch(u user.User, search string) bool {
	if search == "" {
		return true
	}

	needle := strings.ToLower(search)

	fields := []string{u.Email, u.Username}

	if u.FirstName != nil {
		fields = append(fields, *u.FirstName)
	}
	if u.LastName != nil {
		fields = append(fields, *u.LastName)
	}

	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}

	return false
}

func sortUsers(users []user.User, sortBy, sortOrder string) {
	less := func(a, b user.User) bool {
		switch sortBy {
		case "id":
			return a.ID < b.ID
		case "email":
			return a.Email < b.Email
		case "username":
			return a.Username < b.Username
		case "firstName":
			return deref(a.FirstName) < deref(b.FirstName)
		case "lastName":
			return deref(a.LastName) < deref(b.LastName)
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]

		if sortOrder == user.SortOrderDesc {
			a, b = b, a
		}

		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}

		// id tiebreak, always ascending, like the SQL ORDER BY
		return users[i].ID < users[j].ID
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *UsersRepo) Update(_ context.Context, id int64, patch user.Patch) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	email, username := "", ""

	if patch.Email != nil {
		email = *patch.Email
	}
	if patch.Username != nil {
		username = *patch.Username
	}

	if err := r.checkUnique(email, username, id); err != nil {
		return user.User{}, err
	}

	u := rec.user

	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.FirstName != nil {
		u.FirstName = patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = patch.LastName
	}
	if patch.Avatar != nil {
		u.Avatar = patch.Avatar
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.PasswordHash != nil {
		rec.hash = *patch.PasswordHash
	}

	u.UpdatedAt = time.Now().UTC()
	rec.user = u

	return u, nil
}

func (r *UsersRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return user.ErrNotFound
	}

	delete(r.users, id)

	return nil
}
