package validation_test

import (
	"testing"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/validation"
)

func strPtr(s string) *string { return &s }

func TestCheckCreateRuleSet(t *testing.T) {
	tests := []struct {
		name       string
		req        user.CreateUserRequest
		wantFields []string
	}{
		{
			name: "valid",
			req: user.CreateUserRequest{
				Email:     "jane@example.com",
				Username:  "jane",
				FirstName: "Jane",
				LastName:  "Doe",
				Password:  "secret1",
			},
			wantFields: nil,
		},
		{
			name:       "all_required_missing",
			req:        user.CreateUserRequest{},
			wantFields: []string{"email", "username", "firstName", "lastName", "password"},
		},
		{
			name: "bad_email_and_short_password",
			req: user.CreateUserRequest{
				Email:     "not-an-email",
				Username:  "jane",
				FirstName: "Jane",
				LastName:  "Doe",
				Password:  "12345",
			},
			wantFields: []string{"email", "password"},
		},
		{
			name: "short_username",
			req: user.CreateUserRequest{
				Email:     "jane@example.com",
				Username:  "ja",
				FirstName: "Jane",
				LastName:  "Doe",
				Password:  "secret1",
			},
			wantFields: []string{"username"},
		},
		{
			name: "bad_avatar_url",
			req: user.CreateUserRequest{
				Email:     "jane@example.com",
				Username:  "jane",
				FirstName: "Jane",
				LastName:  "Doe",
				Password:  "secret1",
				Avatar:    strPtr("not a url"),
			},
			wantFields: []string{"avatar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			got := validation.Check(&req)

			if len(got) != len(tt.wantFields) {
				t.Fatalf("got %d violations %v, want fields %v", len(got), got, tt.wantFields)
			}

			for i, f := range tt.wantFields {
				if got[i].Field != f {
					t.Fatalf("violation %d: got field %q, want %q", i, got[i].Field, f)
				}
			}
		})
	}
}

func TestCheckUpdateRuleSetOptionalFields(t *testing.T) {
	// an empty patch is valid; present fields follow the create rules
	empty := user.UpdateUserRequest{}

	if got := validation.Check(&empty); got != nil {
		t.Fatalf("empty patch should be valid, got %v", got)
	}

	bad := user.UpdateUserRequest{
		Email:    strPtr("nope"),
		Password: strPtr("123"),
	}

	got := validation.Check(&bad)

	if len(got) != 2 || got[0].Field != "email" || got[1].Field != "password" {
		t.Fatalf("unexpected violations: %v", got)
	}
}

func TestCheckChangePasswordRuleSet(t *testing.T) {
	bad := user.ChangePasswordRequest{OldPassword: "", NewPassword: "123"}
	got := validation.Check(&bad)

	if len(got) != 2 || got[0].Field != "oldPassword" || got[1].Field != "newPassword" {
		t.Fatalf("unexpected violations: %v", got)
	}

	ok := user.ChangePasswordRequest{OldPassword: "old", NewPassword: "longenough"}

	if got := validation.Check(&ok); got != nil {
		t.Fatalf("expected no violations, got %v", got)
	}
}

func TestCheckUnknownRuleSetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown rule set")
		}
	}()

	type notARuleSet struct{}
	validation.Check(&notARuleSet{})
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw    string
		wantID int64
		wantOK bool
	}{
		{"1", 1, true},
		{"42", 42, true},
		{"0", 0, false},
		{"-7", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"1.5", 0, false},
	}

	for _, tt := range tests {
		id, violations := validation.ParseID(tt.raw)

		if tt.wantOK && (violations != nil || id != tt.wantID) {
			t.Fatalf("ParseID(%q) = %d, %v; want %d, no violations", tt.raw, id, violations, tt.wantID)
		}

		if !tt.wantOK && violations == nil {
			t.Fatalf("ParseID(%q) should fail validation", tt.raw)
		}
	}
}

func TestNormalizeListQuery(t *testing.T) {
	tests := []struct {
		name    string
		raw     validation.ListQueryRaw
		want    user.ListParams
		wantErr bool
	}{
		{
			name: "defaults",
			raw:  validation.ListQueryRaw{},
			want: user.ListParams{Page: 1, Limit: 10, SortBy: "createdAt", SortOrder: "desc"},
		},
		{
			name: "explicit_values",
			raw:  validation.ListQueryRaw{Page: "3", Limit: "25", SortBy: "email", SortOrder: "asc", Search: " jane "},
			want: user.ListParams{Page: 3, Limit: 25, SortBy: "email", SortOrder: "asc", Search: "jane"},
		},
		{
			name: "limit_capped",
			raw:  validation.ListQueryRaw{Limit: "500"},
			want: user.ListParams{Page: 1, Limit: 100, SortBy: "createdAt", SortOrder: "desc"},
		},
		{
			name: "unknown_sort_field_falls_back",
			raw:  validation.ListQueryRaw{SortBy: "passwordHash"},
			want: user.ListParams{Page: 1, Limit: 10, SortBy: "createdAt", SortOrder: "desc"},
		},
		{
			name:    "bad_page",
			raw:     validation.ListQueryRaw{Page: "zero"},
			wantErr: true,
		},
		{
			name:    "negative_limit",
			raw:     validation.ListQueryRaw{Limit: "-1"},
			wantErr: true,
		},
		{
			name:    "bad_sort_order",
			raw:     validation.ListQueryRaw{SortOrder: "sideways"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, violations := validation.NormalizeListQuery(tt.raw)

			if tt.wantErr {
				if violations == nil {
					t.Fatalf("expected violations, got params %+v", got)
				}
				return
			}

			if violations != nil {
				t.Fatalf("unexpected violations: %v", violations)
			}

			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	p := user.ListParams{Page: 3, Limit: 10}

	if p.Offset() != 20 {
		t.Fatalf("got offset %d, want 20", p.Offset())
	}
}
