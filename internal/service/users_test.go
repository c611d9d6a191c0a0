package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/fault"
	"github.com/geocoder89/userhub/internal/repo/memory"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/geocoder89/userhub/internal/service"
)

// fakeHasher keeps the tests fast; the real bcrypt path is covered in the
// security package tests.
type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

func (fakeHasher) Check(hash, plain string) error {
	if !strings.HasPrefix(hash, "hashed:") {
		return errors.New("malformed hash")
	}

	if hash != "hashed:"+plain {
		return security.ErrMismatch
	}

	return nil
}

func newService() (*service.UserService, *memory.UsersRepo) {
	repo := memory.NewUsersRepo()

	return service.NewUserService(repo, fakeHasher{}, nil), repo
}

func validCreate(n int) user.CreateUserRequest {
	return user.CreateUserRequest{
		Email:     fmt.Sprintf("user%d@example.com", n),
		Username:  fmt.Sprintf("user%d", n),
		FirstName: "First",
		LastName:  "Last",
		Password:  "secret1",
	}
}

func wantKind(t *testing.T, err error, kind fault.Kind) {
	t.Helper()

	got, ok := fault.KindOf(err)

	if !ok {
		t.Fatalf("want %s error, got %v", kind, err)
	}

	if got != kind {
		t.Fatalf("got kind %s, want %s", got, kind)
	}
}

func TestCreateReturnsNoPasswordField(t *testing.T) {
	svc, _ := newService()

	created, err := svc.Create(context.Background(), validCreate(1))

	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if created.ID == 0 {
		t.Fatalf("expected assigned id")
	}

	if !created.IsActive {
		t.Fatalf("isActive should default to true")
	}

	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not stamped: %+v", created)
	}

	raw, err := json.Marshal(created)

	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if strings.Contains(strings.ToLower(string(raw)), "password") {
		t.Fatalf("response leaks password material: %s", raw)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Create(context.Background(), user.CreateUserRequest{Email: "nope"})

	wantKind(t, err, fault.KindValidation)

	var fe *fault.Error

	if !errors.As(err, &fe) || len(fe.Fields) == 0 {
		t.Fatalf("expected field violations, got %v", err)
	}
}

func TestCreateConflicts(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, validCreate(1)); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}

	dupEmail := validCreate(2)
	dupEmail.Email = "user1@example.com"

	_, err := svc.Create(ctx, dupEmail)
	wantKind(t, err, fault.KindConflict)

	dupUsername := validCreate(3)
	dupUsername.Username = "user1"

	_, err = svc.Create(ctx, dupUsername)
	wantKind(t, err, fault.KindConflict)

	// email conflicts are case-insensitive
	dupCased := validCreate(4)
	dupCased.Email = "USER1@Example.COM"

	_, err = svc.Create(ctx, dupCased)
	wantKind(t, err, fault.KindConflict)

	// no duplicate was stored
	page, err := svc.FindAll(ctx, user.ListParams{Page: 1, Limit: 10})

	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if page.Pagination.Total != 1 {
		t.Fatalf("want 1 stored user, got %d", page.Pagination.Total)
	}
}

func TestFindAllPaginationMetadata(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := svc.Create(ctx, validCreate(i)); err != nil {
			t.Fatalf("seed %d failed: %v", i, err)
		}
	}

	page3, err := svc.FindAll(ctx, user.ListParams{Page: 3, Limit: 10, SortBy: "id", SortOrder: "asc"})

	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	meta := page3.Pagination

	if len(page3.Data) != 5 {
		t.Fatalf("page 3 of 25 should hold 5 items, got %d", len(page3.Data))
	}

	if meta.Total != 25 || meta.TotalPages != 3 || meta.HasNext || !meta.HasPrev {
		t.Fatalf("bad metadata: %+v", meta)
	}
}

func TestFindAllSinglePageMetadata(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := svc.Create(ctx, validCreate(i)); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	page, err := svc.FindAll(ctx, user.ListParams{Page: 1, Limit: 10})

	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	meta := page.Pagination

	if meta.TotalPages != 1 || meta.HasNext || meta.HasPrev {
		t.Fatalf("bad metadata for single page: %+v", meta)
	}
}

func TestFindAllUnknownSortByFallsBack(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, validCreate(i)); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	withDefault, err := svc.FindAll(ctx, user.ListParams{Page: 1, Limit: 10, SortBy: "createdAt", SortOrder: "asc"})

	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	withGarbage, err := svc.FindAll(ctx, user.ListParams{Page: 1, Limit: 10, SortBy: "no-such-field", SortOrder: "asc"})

	if err != nil {
		t.Fatalf("list with unknown sortBy must not fail: %v", err)
	}

	if len(withDefault.Data) != len(withGarbage.Data) {
		t.Fatalf("result size differs: %d vs %d", len(withDefault.Data), len(withGarbage.Data))
	}

	for i := range withDefault.Data {
		if withDefault.Data[i].ID != withGarbage.Data[i].ID {
			t.Fatalf("order differs at %d: %d vs %d", i, withDefault.Data[i].ID, withGarbage.Data[i].ID)
		}
	}
}

func TestFindAllSearchFilter(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	alice := validCreate(1)
	alice.Email = "alice@example.com"
	alice.Username = "alice"
	alice.FirstName = "Alice"

	bob := validCreate(2)
	bob.Email = "bob@example.com"
	bob.Username = "bob"
	bob.FirstName = "Bob"

	for _, req := range []user.CreateUserRequest{alice, bob} {
		if _, err := svc.Create(ctx, req); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	page, err := svc.FindAll(ctx, user.ListParams{Page: 1, Limit: 10, Search: "ALI"})

	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if page.Pagination.Total != 1 || len(page.Data) != 1 || page.Data[0].Username != "alice" {
		t.Fatalf("search should match alice only: %+v", page)
	}
}

func TestFindByIDAbsentIsNoneNotError(t *testing.T) {
	svc, _ := newService()

	u, err := svc.FindByID(context.Background(), 999)

	if err != nil {
		t.Fatalf("absent id must not error: %v", err)
	}

	if u != nil {
		t.Fatalf("expected no user, got %+v", u)
	}
}

func TestUpdateEmptyPatchRefreshesUpdatedAt(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate(1))

	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	updated, err := svc.Update(ctx, created.ID, user.UpdateUserRequest{})

	if err != nil {
		t.Fatalf("empty update failed: %v", err)
	}

	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updatedAt not refreshed: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}

	if updated.Email != created.Email || updated.Username != created.Username || updated.IsActive != created.IsActive {
		t.Fatalf("empty patch changed fields: %+v vs %+v", created, updated)
	}
}

func TestUpdateUniquenessChecks(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	first, err := svc.Create(ctx, validCreate(1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	second, err := svc.Create(ctx, validCreate(2))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// changing to a colliding email fails
	taken := first.Email
	_, err = svc.Update(ctx, second.ID, user.UpdateUserRequest{Email: &taken})
	wantKind(t, err, fault.KindConflict)

	// re-submitting your own email is not a conflict
	own := second.Email
	if _, err := svc.Update(ctx, second.ID, user.UpdateUserRequest{Email: &own}); err != nil {
		t.Fatalf("unchanged email must not conflict: %v", err)
	}

	takenName := first.Username
	_, err = svc.Update(ctx, second.ID, user.UpdateUserRequest{Username: &takenName})
	wantKind(t, err, fault.KindConflict)
}

func TestUpdateNotFound(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Update(context.Background(), 12345, user.UpdateUserRequest{})

	wantKind(t, err, fault.KindNotFound)
}

func TestUpdateStatus(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate(1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	inactive := false

	updated, err := svc.UpdateStatus(ctx, created.ID, user.UpdateStatusRequest{IsActive: &inactive})

	if err != nil {
		t.Fatalf("status update failed: %v", err)
	}

	if updated.IsActive {
		t.Fatalf("user should be inactive")
	}

	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("updatedAt went backwards")
	}

	_, err = svc.UpdateStatus(ctx, 999, user.UpdateStatusRequest{IsActive: &inactive})
	wantKind(t, err, fault.KindNotFound)
}

func TestChangePassword(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate(1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// wrong old password: unauthorized, stored hash untouched
	err = svc.ChangePassword(ctx, created.ID, user.ChangePasswordRequest{
		OldPassword: "wrong-old",
		NewPassword: "brand-new-pass",
	})
	wantKind(t, err, fault.KindUnauthorized)

	hash, err := repo.GetPasswordHash(ctx, created.ID)
	if err != nil {
		t.Fatalf("hash lookup failed: %v", err)
	}

	if hash != "hashed:secret1" {
		t.Fatalf("hash changed after rejected attempt: %q", hash)
	}

	// correct old password succeeds and rotates the hash
	err = svc.ChangePassword(ctx, created.ID, user.ChangePasswordRequest{
		OldPassword: "secret1",
		NewPassword: "brand-new-pass",
	})

	if err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	hash, _ = repo.GetPasswordHash(ctx, created.ID)

	if hash != "hashed:brand-new-pass" {
		t.Fatalf("new hash not stored: %q", hash)
	}

	// unknown user
	err = svc.ChangePassword(ctx, 999, user.ChangePasswordRequest{
		OldPassword: "secret1",
		NewPassword: "brand-new-pass",
	})
	wantKind(t, err, fault.KindNotFound)
}

func TestDelete(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	err := svc.Delete(ctx, 404)
	wantKind(t, err, fault.KindNotFound)

	created, err := svc.Create(ctx, validCreate(1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	u, err := svc.FindByID(ctx, created.ID)

	if err != nil || u != nil {
		t.Fatalf("deleted user should be gone, got %+v, %v", u, err)
	}
}

func TestVerifyPassword(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate(1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	u, err := svc.VerifyPassword(ctx, created.Email, "secret1")

	if err != nil || u == nil || u.ID != created.ID {
		t.Fatalf("expected verified user, got %+v, %v", u, err)
	}

	u, err = svc.VerifyPassword(ctx, created.Email, "wrong")

	if err != nil || u != nil {
		t.Fatalf("mismatch should yield no user and no error, got %+v, %v", u, err)
	}

	u, err = svc.VerifyPassword(ctx, "ghost@example.com", "secret1")

	if err != nil || u != nil {
		t.Fatalf("unknown email should yield no user and no error, got %+v, %v", u, err)
	}
}
