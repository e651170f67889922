package manager

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

const (
	msgValidationFailed = "validation failed"
	msgNilObject        = "object cannot be null"
)

var phoneNumberRegex = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)

// emailChecker отдельный от Validator: IsValidEmail вызывается без конструктора.
var emailChecker = validator.New()

// IsValidEmail проверяет, что строка является корректным email-адресом.
func IsValidEmail(email string) bool {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(email) != email {
		return false
	}
	return emailChecker.Var(email, "email") == nil
}

// IsValidPhoneNumber принимает номер из 1-16 цифр с необязательным "+", без ведущего нуля.
func IsValidPhoneNumber(phone string) bool {
	return phoneNumberRegex.MatchString(phone)
}

// Validator проверяет DTO по тегам validate и переводит ошибки в domain.ValidationError.
type Validator struct {
	v *validator.Validate
}

// NewValidator создаёт валидатор с правилами каталога.
func NewValidator() (*Validator, error) {
	v := validator.New()

	// Имена полей в ошибках совпадают с JSON-представлением.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// decimal.Decimal сравнивается с границами gte/lte как число.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register emailaddr validator: %w", err)
	}
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsValidPhoneNumber(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register phone validator: %w", err)
	}

	return &Validator{v: v}, nil
}

// MustNewValidator - NewValidator, паникующий при ошибке регистрации правил.
func MustNewValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate проверяет структуру. nil-указатель даёт ошибку "object cannot be null".
func (v *Validator) Validate(s any) error {
	if s == nil {
		return domain.NewValidationError(msgNilObject, nil)
	}
	if rv := reflect.ValueOf(s); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return domain.NewValidationError(msgNilObject, nil)
	}

	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		fields[fieldPath(fe)] = ValidationErrorMessage(fe)
	}
	return domain.NewValidationError(msgValidationFailed, fields)
}

// fieldPath отбрасывает имя корневой структуры: "ProductDTO.name" -> "name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

// ValidationErrorMessage возвращает человекочитаемое описание нарушенного правила.
func ValidationErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "emailaddr", "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "dive":
		return "contains an invalid element"
	default:
		return "is invalid"
	}
}
