package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type enumForm struct {
	Season   string `validate:"season"`
	Occasion string `validate:"occasion"`
	Category string `validate:"category"`
	Name     string `validate:"max=10"`
}

func TestEnumValidators(t *testing.T) {
	assert.NoError(t, ValidateStruct(&enumForm{}))
	assert.NoError(t, ValidateStruct(&enumForm{Season: "Winter", Occasion: "PARTY", Category: "top"}))

	err := ValidateStruct(&enumForm{Season: "monsoon", Occasion: "wedding", Category: "shirt", Name: "far too long a name"})
	errs := GetValidationErrors(err)
	assert.Len(t, errs, 4)

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Tag
	}
	assert.Equal(t, map[string]string{"season": "season", "occasion": "occasion", "category": "category", "name": "max"}, fields)
}

func TestGetValidationErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Empty(t, GetValidationErrors(nil))
	assert.Empty(t, GetValidationErrors(assert.AnError))
}
