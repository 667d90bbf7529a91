package core

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"zeusbolt/internal/types"
)

// Validator wraps go-playground/validator for request payload validation.
// Handlers call ValidateStruct after DecodeJSON to enforce field-level rules
// declared via `validate` struct tags.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// ValidationError describes a single field-level validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewValidator creates a new Validator.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		validate: validator.New(),
		logger:   logger,
	}
}

// ValidateStruct validates the struct's `validate` tags and returns a
// *types.AppError carrying all field failures in Details["validation_errors"],
// or nil if the struct is valid. The AppError's code reflects the first
// failure encountered.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	valErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// Non-validation error (e.g., passing a non-struct). Treat as internal.
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation could not be performed", err)
	}

	fieldErrors := make([]ValidationError, 0, len(valErrs))
	for _, fe := range valErrs {
		code := tagToCode(fe.Tag())
		fieldErrors = append(fieldErrors, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Code:    string(code),
			Message: validationMessage(fe),
		})
	}

	return types.NewAppErrorWithDetails(
		types.ErrorCode(fieldErrors[0].Code),
		"request validation failed",
		err,
		map[string]any{"validation_errors": fieldErrors},
	)
}

// tagToCode maps a validator tag to the corresponding error code.
func tagToCode(tag string) types.ErrorCode {
	switch tag {
	case "required":
		return types.ErrCodeValidationMissingField
	case "max":
		return types.ErrCodeValidationContentLength
	default:
		return types.ErrCodeValidationInvalidJSON
	}
}

// validationMessage builds a human-readable message for a field error.
func validationMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "min":
		return field + " must be at least " + fe.Param()
	default:
		return field + " is invalid"
	}
}
