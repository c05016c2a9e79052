package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"SensorStream/internal/domain/models"

	"github.com/go-playground/validator/v10"
)

// SampleValidator turns a raw ingest payload into a Reading.
type SampleValidator struct {
	validate *validator.Validate
}

// NewSampleValidator creates a validator that reports JSON field names.
func NewSampleValidator() *SampleValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &SampleValidator{validate: v}
}

// Validate parses payload as {x, y, z, timestamp}. All four fields must be
// present JSON numbers; unknown fields are ignored. Failures are returned as
// *models.ValidationError.
func (s *SampleValidator) Validate(payload []byte) (models.Reading, error) {
	var raw models.RawReading
	if err := json.Unmarshal(payload, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return models.Reading{}, &models.ValidationError{
				Field: typeErr.Field,
				Err:   fmt.Errorf("expected number, got %s", typeErr.Value),
			}
		}
		return models.Reading{}, &models.ValidationError{Err: err}
	}

	if err := s.validate.Struct(&raw); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return models.Reading{}, &models.ValidationError{
				Field: fieldErrs[0].Field(),
				Err:   fmt.Errorf("failed on %s", fieldErrs[0].Tag()),
			}
		}
		return models.Reading{}, &models.ValidationError{Err: err}
	}

	return raw.Reading(), nil
}
