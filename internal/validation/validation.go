package validation

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "This field may not be blank."

	bsDateTag   = "bsdate"
	bsDateText  = "Date must be in YYYY/MM/DD format."
	bsDateRegex = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)

	clockTag   = "clock"
	clockText  = "Time must be in HH:MM or HH:MM:SS format."
	clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)

	weekdayTag  = "weekday"
	weekdayText = "{0} must be a day of the week."
)

// Instantiate the validator for use.
func init() {
	Validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(notBlankTag, notBlankText)
	_ = Validate.RegisterValidation(bsDateTag, regexValidation(bsDateRegex))
	RegisterCustomTranslation(bsDateTag, bsDateText)
	_ = Validate.RegisterValidation(clockTag, regexValidation(clockRegex))
	RegisterCustomTranslation(clockTag, clockText)
	_ = Validate.RegisterValidation(weekdayTag, weekdayValidation)
	RegisterCustomTranslation(weekdayTag, weekdayText)
	RegisterCustomTranslation("required", "This field is required.", true)
	RegisterCustomTranslation("email", "Enter a valid email address.", true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Error carries per-field messages for a rejected input.
type Error struct {
	Fields map[string]string
}

// NewError builds an Error from field/message pairs.
func NewError(field, msg string, more ...string) *Error {
	e := &Error{Fields: map[string]string{field: msg}}
	for i := 0; i+1 < len(more); i += 2 {
		e.Fields[more[i]] = more[i+1]
	}
	return e
}

// Add records msg against field, keeping the first message per field.
func (e *Error) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field has failed.
func (e *Error) Empty() bool { return e == nil || len(e.Fields) == 0 }

// Err returns e as an error, or nil when no field has failed.
func (e *Error) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Struct validates v and converts tag failures into an *Error keyed by the JSON field path.
// Nested fields are keyed by their dotted namespace without the root struct name, e.g. "profile.dob".
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{}
	for _, fe := range verrs {
		out.Add(fieldPath(fe), fe.Translate(Translator))
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Custom Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func regexValidation(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Weekdays lists the days of the week starting on Sunday.
var Weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// NormalizeWeekday returns the Title-case day name for s and whether it is a day of the week.
func NormalizeWeekday(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Weekdays {
		if strings.EqualFold(d, s) {
			return d, true
		}
	}
	return s, false
}

func weekdayValidation(fl validator.FieldLevel) bool {
	_, ok := NormalizeWeekday(fl.Field().String())
	return ok
}
