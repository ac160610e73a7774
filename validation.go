package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"earnings/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidatorsOnce sync.Once

// registerValidators configures gin's shared validator: field names are
// reported by their JSON name, the models package adds its custom rules, and
// the JSON decoder refuses fields the request type does not declare.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		if err := models.RegisterValidations(v); err != nil {
			panic(err)
		}
	})
}

// fieldError is one entry of a 422 response's details.
type fieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// describeBindError turns a ShouldBindJSON failure into client-facing details.
func describeBindError(err error) []fieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		return out
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []fieldError{{Field: typeErr.Field, Message: fmt.Sprintf("must be a %s", jsonKind(typeErr.Type))}}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return []fieldError{{Message: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)}}
	}
	if errors.Is(err, io.EOF) {
		return []fieldError{{Message: "request body is required"}}
	}
	if msg := err.Error(); strings.HasPrefix(msg, "json: unknown field ") {
		field := strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
		return []fieldError{{Field: field, Message: "is not an accepted field"}}
	}
	return []fieldError{{Message: err.Error()}}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "amount":
		return fmt.Sprintf("must have at most %d integer digits and %d decimal places", models.AmountIntegerDigits, models.AmountScale)
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return fmt.Sprintf("failed the %q rule", fe.Tag())
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Struct:
		if t.Name() == "Decimal" {
			return "number"
		}
		if t.Name() == "Date" {
			return "YYYY-MM-DD date string"
		}
	}
	return t.Kind().String()
}
