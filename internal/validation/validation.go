// Package validation binds and validates JSON request bodies, grounded
// on the teacher's common/net/http/withBody.go newValidator/ValidateStruct
// pair, upgraded from the teacher's vendored validator.v9 to the
// already-declared go-playground/validator/v10.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/brackwater/payrail/internal/merrors"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	locale := en.New()
	uni := ut.New(locale, locale)
	translator, _ = uni.GetTranslator("en")

	validate = validator.New()
	if err := entranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// Struct validates s against its `validate` tags, returning a
// merrors.ValidationError naming the first failing field in the
// request's own JSON vocabulary.
func Struct(s any) error {
	if err := validate.Struct(s); err != nil {
		fieldErrors, ok := err.(validator.ValidationErrors)
		if !ok || len(fieldErrors) == 0 {
			return merrors.ValidationError{Message: err.Error()}
		}

		return merrors.ValidationError{Message: fieldErrors[0].Translate(translator)}
	}

	return nil
}
