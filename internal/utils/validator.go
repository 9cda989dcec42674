package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/smartfit/smartfit-backend/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("season", validateSeason)
	validate.RegisterValidation("occasion", validateOccasion)
	validate.RegisterValidation("category", validateCategory)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// Empty values pass; presence is enforced with required.
func validateSeason(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if strings.TrimSpace(v) == "" {
		return true
	}
	_, ok := models.ParseSeason(v)
	return ok
}

func validateOccasion(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if strings.TrimSpace(v) == "" {
		return true
	}
	_, ok := models.ParseOccasion(v)
	return ok
}

func validateCategory(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if strings.TrimSpace(v) == "" {
		return true
	}
	return models.Category(strings.ToLower(strings.TrimSpace(v))).IsValid()
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "season":
		return "Season must be one of spring, summer, fall, winter, all"
	case "occasion":
		return "Occasion must be one of casual, work, formal, sport, party"
	case "category":
		return "Category must be one of top, bottom, footwear, accessory, outerwear, others"
	default:
		return e.Field() + " is invalid"
	}
}
