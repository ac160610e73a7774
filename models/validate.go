package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Amounts are stored as numeric(15,2).
const (
	AmountIntegerDigits = 13
	AmountScale         = 2

	// exponents below this are refused before any rescaling happens
	minAmountExponent = -32
)

var amountLimit = decimal.New(1, AmountIntegerDigits)

// RegisterValidations adds the custom rules used by EarningInput's
// `binding` tags to v.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		return err
	}
	return v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		switch d := fl.Field().Interface().(type) {
		case decimal.Decimal:
			return ValidAmount(d)
		case *decimal.Decimal:
			return d != nil && ValidAmount(*d)
		}
		return false
	})
}

// ValidAmount reports whether d fits the amount column. Only the exponent
// and coefficient are inspected, so values like 1e10000000 are rejected
// without being expanded.
func ValidAmount(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > AmountIntegerDigits || exp < minAmountExponent {
		return false
	}
	return d.Abs().LessThan(amountLimit) && d.Truncate(AmountScale).Equal(d)
}

// NewValidator returns a validator that reads `binding` tags the way gin does,
// for code paths that build an EarningInput without an HTTP request.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}
