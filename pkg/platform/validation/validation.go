// Package validation wraps go-playground/validator with JSON field names,
// english messages and the custom tags request DTOs use. Failures come back
// as validation-coded domain errors carrying per-field messages.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	dErrors "parish/pkg/domain-errors"
)

// Message is the summary message attached to every validation failure.
const Message = "The given data was invalid."

const (
	notBlankTag = "notblank"
	hhmmTag     = "hhmm"
	isoDateTag  = "isodate"
)

var (
	validate   *validator.Validate
	translator ut.Translator
	mu         sync.RWMutex
	messages   = map[string]string{
		notBlankTag: "{0} cannot be blank",
		hhmmTag:     "{0} must be a time in HH:MM format",
		isoDateTag:  "{0} must be a date in YYYY-MM-DD format",
	}
	hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	_ = validate.RegisterValidation(hhmmTag, hhmm)
	_ = validate.RegisterValidation(isoDateTag, isoDate)
	for tag := range messages {
		registerTranslation(tag)
	}
}

// Register adds a custom tag. message may reference the field name as {0}.
func Register(tag string, fn validator.Func, message string) {
	mu.Lock()
	messages[tag] = message
	mu.Unlock()
	_ = validate.RegisterValidation(tag, fn)
	registerTranslation(tag)
}

// OneOf returns a validator.Func accepting only the given string values.
func OneOf[T ~string](values ...T) validator.Func {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[string(v)] = struct{}{}
	}
	return func(fl validator.FieldLevel) bool {
		_, ok := allowed[fl.Field().String()]
		return ok
	}
}

// Struct validates v and returns a CodeValidation error with field messages.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request")
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fieldPath(fe)
		fields[name] = append(fields[name], fe.Translate(translator))
	}
	return dErrors.WithFields(dErrors.CodeValidation, Message, fields)
}

// Field builds a single-field validation error.
func Field(field, message string) error {
	return dErrors.WithFields(dErrors.CodeValidation, Message, map[string][]string{field: {message}})
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.IndexByte(ns, '.'); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func registerTranslation(tag string) {
	registerFn := func(ut.Translator) error { return nil }
	_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustom)
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	mu.RLock()
	msg, ok := messages[fe.Tag()]
	mu.RUnlock()
	if !ok {
		return fe.Field() + " is invalid"
	}
	return strings.ReplaceAll(msg, "{0}", fe.Field())
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func hhmm(fl validator.FieldLevel) bool {
	return hhmmPattern.MatchString(fl.Field().String())
}

func isoDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.DateOnly, fl.Field().String())
	return err == nil
}
