// internal/app/system/inputval/inputval.go
//
// Package inputval validates decoded request bodies with struct tags and
// turns failures into apperr validation errors keyed by JSON field name.
package inputval

import (
	"reflect"
	"sort"
	"strings"

	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

const (
	notBlankTag   = "notblank"
	assignmentTag = "assignment_type"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON names instead of Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	_ = validate.RegisterValidation(assignmentTag, assignmentType)

	_ = validate.RegisterTranslation("required", translator,
		func(t ut.Translator) error {
			return t.Add("required", "{0} field is required.", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T("required", fe.Field())
			return msg
		})

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, assignmentTag} {
		_ = validate.RegisterTranslation(tag, translator, noop, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " may not be blank."
	case assignmentTag:
		return fe.Field() + " must be one of: random, manual."
	default:
		return ""
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func assignmentType(fl validator.FieldLevel) bool {
	switch strings.TrimSpace(fl.Field().String()) {
	case "", "random", "manual":
		return true
	}
	return false
}

// Struct validates v. It returns nil or an *apperr.Error of kind
// ErrValidation with one entry per failing field.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation("invalid request: %v", err)
	}
	fields := map[string][]string{}
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fe.Translate(translator))
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	out := apperr.Validation("%s", fields[names[0]][0])
	for _, k := range names {
		out.WithField(k, fields[k])
	}
	return out
}

// IsValidEmail reports whether s is a bare e-mail address.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return validate.Var(s, "email") == nil
}
