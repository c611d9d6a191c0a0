package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/fault"
	"github.com/go-playground/validator/v10"
)

// The rule sets are the DTO structs in the domain package; their validate
// tags are the single source of per-field rules.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report violations against json field names, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")

		if name == "" || name == "-" {
			return fld.Name
		}

		return name
	})

	return v
}

// Check validates one of the known rule sets and returns field violations in
// declaration order. Passing any other type is programmer error.
func Check(v any) []fault.FieldViolation {
	switch v.(type) {
	case *user.CreateUserRequest, *user.UpdateUserRequest,
		*user.UpdateStatusRequest, *user.ChangePasswordRequest:
	default:
		panic(fmt.Sprintf("validation: unknown rule set %T", v))
	}

	err := validate.Struct(v)

	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors

	if !errors.As(err, &verrs) {
		// validator only returns InvalidValidationError for non-struct input,
		// which the type switch above already rules out
		panic(fmt.Sprintf("validation: %v", err))
	}

	out := make([]fault.FieldViolation, 0, len(verrs))

	for _, fe := range verrs {
		out = append(out, fault.FieldViolation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: Message(fe.Tag(), fe.Param()),
		})
	}

	return out
}

// Message renders a human readable message for a rule, matching the wording
// used in API error details.
func Message(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}

// ParseID coerces a path parameter into a positive integer id. A non-numeric
// or non-positive id is a validation failure, never a not-found.
func ParseID(raw string) (int64, []fault.FieldViolation) {
	id, err := strconv.ParseInt(raw, 10, 64)

	if err != nil || id <= 0 {
		return 0, []fault.FieldViolation{{
			Field:   "id",
			Rule:    "positive_int",
			Message: "must be a positive integer",
		}}
	}

	return id, nil
}

// ListQueryRaw carries the list query params as received on the wire.
type ListQueryRaw struct {
	Page      string `form:"page"`
	Limit     string `form:"limit"`
	Search    string `form:"search"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// NormalizeListQuery coerces the raw query into ListParams. Unknown sortBy
// values fall back to the default field silently; a limit above the cap is
// clamped rather than rejected.
func NormalizeListQuery(raw ListQueryRaw) (user.ListParams, []fault.FieldViolation) {
	var violations []fault.FieldViolation

	page := user.DefaultPage

	if raw.Page != "" {
		n, err := strconv.Atoi(raw.Page)

		if err != nil || n < 1 {
			violations = append(violations, fault.FieldViolation{
				Field: "page", Rule: "positive_int", Message: "must be a positive integer",
			})
		} else {
			page = n
		}
	}

	limit := user.DefaultLimit

	if raw.Limit != "" {
		n, err := strconv.Atoi(raw.Limit)

		switch {
		case err != nil || n < 1:
			violations = append(violations, fault.FieldViolation{
				Field: "limit", Rule: "positive_int", Message: "must be a positive integer",
			})
		case n > user.MaxLimit:
			limit = user.MaxLimit
		default:
			limit = n
		}
	}

	sortBy := raw.SortBy

	if !user.IsSortable(sortBy) {
		sortBy = user.DefaultSortBy
	}

	sortOrder := raw.SortOrder

	switch sortOrder {
	case "":
		sortOrder = user.SortOrderDesc
	case user.SortOrderAsc, user.SortOrderDesc:
	default:
		violations = append(violations, fault.FieldViolation{
			Field: "sortOrder", Rule: "oneof", Param: "asc desc",
			Message: Message("oneof", "asc desc"),
		})
	}

	if violations != nil {
		return user.ListParams{}, violations
	}

	return user.ListParams{
		Page:      page,
		Limit:     limit,
		SortBy:    sortBy,
		SortOrder: sortOrder,
		Search:    strings.TrimSpace(raw.Search),
	}, nil
}

// NormalizeEmail lowercases an address so uniqueness checks are
// case-insensitive at the storage layer.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
