package b2c2

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/gaborage/b2c2-cli/httpclient"
)

// MaxQuantityDecimals is the finest quantity precision the API accepts.
const MaxQuantityDecimals = 4

var (
	errInvalidQuantityFormat = errors.New("invalid format")
	errQuantityPrecision     = fmt.Errorf("quantity parameter can have a maximum of %d decimals", MaxQuantityDecimals)
)

// ParseQuantity parses a base-currency quantity with at most MaxQuantityDecimals
// fractional digits. Trailing zeros count towards the limit.
func ParseQuantity(s string) (decimal.Decimal, error) {
	q, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errInvalidQuantityFormat
	}
	if -q.Exponent() > MaxQuantityDecimals {
		return decimal.Zero, errQuantityPrecision
	}
	return q, nil
}

// Validator wraps go-playground/validator with the decimal rules used by API records.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the quantity and positive rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("quantity", validateQuantity)
	_ = v.RegisterValidation("positive", validatePositive)

	return &Validator{validate: v}
}

// Validate checks a record, returning a *ValidationError describing every failed field.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return newValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError lists the fields of a record that failed validation.
// It is an httpclient.ValidationError so callers can treat it like any other
// request that was rejected before being sent.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

var _ httpclient.ClientError = (*ValidationError)(nil)

// FieldError is a validation failure for one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func newValidationError(errs validator.ValidationErrors) *ValidationError {
	fieldErrors := make([]FieldError, 0, len(errs))
	for _, err := range errs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   err.Field(),
			Message: fieldErrorMessage(err),
			Value:   fmt.Sprintf("%v", err.Value()),
		})
	}
	return &ValidationError{Errors: fieldErrors}
}

func (ve *ValidationError) Error() string {
	switch len(ve.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s", ve.Errors[0].Message)
	default:
		msgs := make([]string, len(ve.Errors))
		for i, fe := range ve.Errors {
			msgs[i] = fe.Message
		}
		return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
	}
}

// Type reports httpclient.ValidationError.
func (ve *ValidationError) Type() httpclient.ErrorType { return httpclient.ValidationError }

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "quantity":
		if _, err := ParseQuantity(fmt.Sprint(fe.Value())); err != nil {
			return fmt.Sprintf("%s: %v", fe.Field(), err)
		}
		return fmt.Sprintf("%s must be greater than zero", fe.Field())
	case "positive":
		return fmt.Sprintf("%s must be greater than zero", fe.Field())
	default:
		return fmt.Sprintf("%s failed validation", fe.Field())
	}
}

func validateQuantity(fl validator.FieldLevel) bool {
	q, err := ParseQuantity(fl.Field().String())
	return err == nil && q.IsPositive()
}

func validatePositive(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && d.IsPositive()
}
