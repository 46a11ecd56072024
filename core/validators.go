package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/trezcool/portal/core/lifecycle"
)

// Priorities shared by alerts and tickets, lowest first.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

var (
	Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

	// custom validation tags & texts
	priorityTag  = "priority"
	priorityText = "priority must be one of low, medium, high or critical"

	ticketStatusTag  = "ticketstatus"
	ticketStatusText = "status must be one of open, in-progress, resolved or closed"

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewValidator returns a validator and its english translator, with the custom validators registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(priorityTag, priorityValidation)
	RegisterCustomTranslation(validate, translator, priorityTag, priorityText)

	_ = validate.RegisterValidation(ticketStatusTag, ticketStatusValidation)
	RegisterCustomTranslation(validate, translator, ticketStatusTag, ticketStatusText)

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// PriorityRank orders priorities from 1 (low) to 4 (critical); unknown priorities rank 0.
func PriorityRank(p string) int {
	for i, prio := range Priorities {
		if prio == p {
			return i + 1
		}
	}
	return 0
}

// Custom Global Validators

// priorityValidation only allows one of Priorities.
func priorityValidation(fl validator.FieldLevel) bool {
	return PriorityRank(fl.Field().String()) > 0
}

// ticketStatusValidation only allows the states of the ticket lifecycle.
func ticketStatusValidation(fl validator.FieldLevel) bool {
	return lifecycle.Tickets.IsState(fl.Field().String())
}

// notBlankValidation rejects strings made of whitespace only.
func notBlankValidation(fl validator.FieldLevel) bool {
	return CleanString(fl.Field().String()) != ""
}
