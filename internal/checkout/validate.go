package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/go-playground/validator/v10"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var fieldLabels = map[string]string{
	"fullName": "full name",
	"phone":    "phone",
	"email":    "email",
	"address":  "address",
	"city":     "city",
	"state":    "state",
	"zipCode":  "zip code",
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		phone := fl.Field().String()
		return len(phone) == 10 && domain.DigitsOnly(phone) == phone
	})
	_ = v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Address normalizes addr and checks every field. It returns the normalized
// address or a *ValidationError.
func (v *Validator) Address(addr domain.ShippingAddress) (domain.ShippingAddress, error) {
	addr = addr.Normalize()

	err := v.validate.Struct(addr)
	if err == nil {
		return addr, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return addr, err
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = message(fe)
	}
	return addr, out
}

func message(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "phone10":
		return "phone must contain exactly 10 digits"
	case "emailshape":
		return "email must look like name@example.com"
	default:
		return label + " is invalid"
	}
}
