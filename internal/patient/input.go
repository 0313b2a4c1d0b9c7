package patient

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var validate = validator.New()

// ErrInvalidInput is wrapped by every error returned from Input.Validate and
// InputFromValues.
var ErrInvalidInput = errors.New("invalid patient input")

// Input is the create/update payload. Nil fields are left out of the request,
// which lets an update replace only what the form carried.
type Input struct {
	Name           *string `json:"name,omitempty" validate:"omitnil,min=1,max=120"`
	Age            *int    `json:"age,omitempty" validate:"omitnil,gte=0,lte=150"`
	MedicalHistory *string `json:"medical_history,omitempty" validate:"omitnil,max=10000"`
}

// UnmarshalJSON decodes with DecodeInput.
func (in *Input) UnmarshalJSON(b []byte) error {
	v, err := DecodeInput(b)
	if err != nil {
		return err
	}
	*in = v
	return nil
}

// DecodeInput reads a JSON create/update body. Age may be a number or a
// numeric string; "" and null leave it unset. Anything else, including a
// fractional age, is rejected with ErrInvalidInput.
func DecodeInput(b []byte) (Input, error) {
	var wire struct {
		Name           *string         `json:"name"`
		Age            json.RawMessage `json:"age"`
		MedicalHistory *string         `json:"medical_history"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return Input{}, err
	}

	n, ok, err := readAge(wire.Age)
	if err != nil || (ok && n != math.Trunc(n)) {
		return Input{}, fmt.Errorf("%w: age must be a whole number", ErrInvalidInput)
	}

	in := Input{Name: wire.Name, MedicalHistory: wire.MedicalHistory}
	if ok {
		v := int(n)
		in.Age = &v
	}
	return in, nil
}

// ValidationMessage strips the ErrInvalidInput prefix for display.
func ValidationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
}

// Validate checks field constraints and that every name in required is set.
func (in Input) Validate(required ...string) error {
	for _, f := range required {
		if !in.has(f) {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, f)
		}
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidInput, describe(verrs[0]))
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (in Input) has(field string) bool {
	switch field {
	case FieldName:
		return in.Name != nil && strings.TrimSpace(*in.Name) != ""
	case FieldAge:
		return in.Age != nil
	case FieldMedicalHistory:
		return in.MedicalHistory != nil
	}
	return false
}

func describe(fe validator.FieldError) string {
	name := fieldName(fe.StructField())
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must not be empty", name)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", name)
}

func fieldName(structField string) string {
	switch structField {
	case "Name":
		return FieldName
	case "Age":
		return FieldAge
	case "MedicalHistory":
		return FieldMedicalHistory
	}
	return structField
}

// InputFromValues collects the listed form fields into an Input. Fields not
// present in values stay nil; an empty age is treated as absent.
func InputFromValues(values url.Values, fields []string) (Input, error) {
	var in Input
	for _, f := range fields {
		if _, ok := values[f]; !ok {
			continue
		}
		v := values.Get(f)
		switch f {
		case FieldName:
			s := strings.TrimSpace(v)
			in.Name = &s
		case FieldAge:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				return Input{}, fmt.Errorf("%w: age must be a whole number", ErrInvalidInput)
			}
			in.Age = &n
		case FieldMedicalHistory:
			s := v
			in.MedicalHistory = &s
		default:
			return Input{}, fmt.Errorf("%w: unknown field %q", ErrInvalidInput, f)
		}
	}
	return in, nil
}
