package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/examforge/exams-service/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// Setup registers the validator with English translations on Gin's binding
// engine, plus the exam-specific cross-field rules. Call once during
// application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		// Use JSON tag name for field names in error messages.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		// Duplicate order numbers or question IDs within one attach batch
		// would hit the unique indexes anyway; reject them at binding so
		// the caller gets a field error instead of a conflict.
		v.RegisterStructValidation(validateAddQuestions, model.AddQuestionsRequest{})

		// Register English translations.
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		en_translations.RegisterDefaultTranslations(v, trans)
	}
}

func validateAddQuestions(sl govalidator.StructLevel) {
	req := sl.Current().Interface().(model.AddQuestionsRequest)
	orders := make(map[int]bool, len(req.Questions))
	ids := make(map[uuid.UUID]bool, len(req.Questions))
	for _, q := range req.Questions {
		if orders[q.OrderNum] {
			sl.ReportError(req.Questions, "questions", "Questions", "unique_order", "")
		}
		orders[q.OrderNum] = true
		if ids[q.QuestionID] {
			sl.ReportError(req.Questions, "questions", "Questions", "unique_question", "")
		}
		ids[q.QuestionID] = true
	}
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name to human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = messageFor(fe)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// messageFor translates one field error. The custom cross-field tags have
// no registered translation, so they get explicit messages.
func messageFor(fe govalidator.FieldError) string {
	switch fe.Tag() {
	case "unique_order":
		return "question order numbers must be unique"
	case "unique_question":
		return "the same question cannot be attached twice"
	}
	return fe.Translate(trans)
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
