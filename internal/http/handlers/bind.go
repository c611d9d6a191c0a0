package handlers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/geocoder89/userhub/internal/fault"
	"github.com/geocoder89/userhub/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// UseJSONFieldNames teaches gin's binding validator to report violations
// against json tag names. Called once from the router.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)

	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")

		if name == "" || name == "-" {
			return fld.Name
		}

		return name
	})
}

// BindJSON decodes and shape-validates the body, answering 400 with field
// details itself on failure.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", parseBindError(err))

		return false
	}

	return true
}

func parseBindError(err error) interface{} {
	// binding tag violations
	var verrs validator.ValidationErrors

	if errors.As(err, &verrs) {
		fields := make([]fault.FieldViolation, 0, len(verrs))

		for _, fe := range verrs {
			fields = append(fields, fault.FieldViolation{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validation.Message(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	// malformed json
	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	// wrong json type for a field
	var typeError *json.UnmarshalTypeError

	if errors.As(err, &typeError) {
		return gin.H{
			"json":  "invalid_json_type",
			"field": typeError.Field,
		}
	}

	// final fallback if the error could not be deciphered
	return gin.H{"reason": err.Error()}
}
