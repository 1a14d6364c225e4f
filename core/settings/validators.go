package settings

import (
	"math"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
)

var (
	weightSumTag       = "weightsum"
	weightSumText      = "weights must add up to 1.0"
	weightSumTolerance = 0.01

	canonicalFieldTag  = "canonicalfield"
	canonicalFieldText = "unknown gradebook column"
)

// InitValidators registers the settings validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(weightSetStructValidation, NewWeightSet{})
	core.RegisterCustomTranslation(validate, translator, weightSumTag, weightSumText)

	_ = validate.RegisterValidation(canonicalFieldTag, canonicalFieldValidation)
	core.RegisterCustomTranslation(validate, translator, canonicalFieldTag, canonicalFieldText)
}

// WeightsAddUp reports whether the weights sum to 1.0 within tolerance.
func WeightsAddUp(previousClass, teacher, quarters float64) bool {
	return math.Abs(previousClass+teacher+quarters-1) <= weightSumTolerance
}

func weightSetStructValidation(sl validator.StructLevel) {
	nws, ok := sl.Current().Interface().(NewWeightSet)
	if !ok {
		return
	}
	if !WeightsAddUp(nws.PreviousClass, nws.Teacher, nws.Quarters) {
		sl.ReportError(nws.Quarters, "weights", "Weights", weightSumTag, "")
	}
}

func canonicalFieldValidation(fl validator.FieldLevel) bool {
	return gradebook.Field(fl.Field().String()).Valid()
}
