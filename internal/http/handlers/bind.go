package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON decodes and validates a JSON payload. Field validation failures
// answer 400 with per-field details; a body that cannot be read as the
// schema at all (empty, bad JSON, wrong types) answers 422.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err == nil {
		return true
	}

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		RespondBadRequest(ctx, "Invalid request body", fieldDetails(validatorError, out))

		return false
	}

	RespondUnprocessable(ctx, "Malformed request body", parseDecodeError(err, out))

	return false
}

func fieldDetails(validatorError validator.ValidationErrors, out interface{}) interface{} {
	rootType := baseStructType(out)

	fields := make([]FieldError, 0, len(validatorError))

	for _, fieldError := range validatorError {
		rule := fieldError.Tag()
		param := fieldError.Param()

		fields = append(fields, FieldError{
			Field:   jsonFieldName(rootType, fieldError.StructField()),
			Rule:    rule,
			Param:   param,
			Message: validationMessage(rule, param),
		})
	}
	return gin.H{"fields": fields}
}

func parseDecodeError(err error, out interface{}) interface{} {
	// empty body

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "empty_or_truncated_body"}
	}

	// in the event of bad json

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return gin.H{
			"json": "invalid_json_syntax",
		}
	}

	// in the event of a type mismatch

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := jsonFieldName(baseStructType(out), unmatchedTypeError.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
				},
			},
		}
	}

	// final fallback if the error could not be deciphered
	return gin.H{"reason": err.Error()}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// jsonFieldName resolves a struct field to its wire name. All request
// payloads here are flat structs; decode errors already carry the wire name
// and pass through untouched.
func jsonFieldName(rootType reflect.Type, field string) string {
	field = strings.TrimSpace(field)
	if rootType == nil || field == "" {
		return field
	}

	if sf, ok := rootType.FieldByName(field); ok {
		return jsonNameFromStructField(sf)
	}

	return field
}

func jsonNameFromStructField(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" {
		return sf.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
