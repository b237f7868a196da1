package validator

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/health-enrollment/pkg/errors"
)

// Validator checks request structs and reports every failing field at once.
type Validator interface {
	Validate(obj interface{}) error
}

type structValidator struct {
	v   *validator.Validate
	now func() time.Time
}

// New builds a validator that names fields by their json tag.
func New() Validator {
	return NewWithClock(time.Now)
}

// NewWithClock is New with an injectable clock for date rules.
func NewWithClock(now func() time.Time) Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	sv := &structValidator{v: v, now: now}
	// date strings must not be after today
	_ = v.RegisterValidation("notfuture", sv.notFuture)
	return sv
}

// Validate returns nil or an *errors.AppError with per-field messages.
func (s *structValidator) Validate(obj interface{}) error {
	err := s.v.Struct(obj)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.BadRequest("invalid request", err)
	}

	fields := make(map[string][]string)
	for _, fe := range verrs {
		name := fieldName(fe)
		fields[name] = append(fields[name], message(fe))
	}
	return errors.NewValidation(fields)
}

func (s *structValidator) notFuture(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		// the datetime rule reports malformed dates
		return true
	}
	today := s.now()
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return !d.After(todayDate)
}

// fieldName strips the struct prefix and the element index from dive errors
// so that program_ids[2] is reported as program_ids.
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "datetime":
		return "Enter a valid date (YYYY-MM-DD)."
	case "notfuture":
		return "Date cannot be in the future."
	case "oneof":
		return fmt.Sprintf("Select a valid choice. Allowed values: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid", "uuid4":
		return fmt.Sprintf("%q is not a valid identifier.", fe.Value())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Select at least %s item(s).", fe.Param())
	}
	return fmt.Sprintf("Failed on the %s rule.", fe.Tag())
}
