package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SetupValidator makes gin binding report JSON field names and validate
// decimals by value, the same way domain validation does.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(val reflect.Value) any {
		if d, ok := val.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// ValidationMessage turns binding errors into one line, e.g.
// "markup_percent: must be >= 0; currency: must be one of RUB USD"
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	var b strings.Builder
	for i, fe := range verrs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fe.Field())
		b.WriteString(": ")
		b.WriteString(describe(fe))
	}
	return b.String()
}

var ruleText = map[string]string{
	"required": "is required",
	"uuid":     "must be a UUID",
	"url":      "must be a URL",
	"oneof":    "must be one of %s",
	"len":      "must have length %s",
	"gt":       "must be > %s",
	"gte":      "must be >= %s",
	"min":      "must be >= %s",
	"lte":      "must be <= %s",
	"max":      "must be <= %s",
	"dive":     "has an invalid element",
}

func describe(fe validator.FieldError) string {
	text, ok := ruleText[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if (fe.Tag() == "min" || fe.Tag() == "max") && fe.Kind() == reflect.String {
		text = strings.Replace(text, "%s", "%s characters", 1)
		text = strings.Replace(text, "must be", "length must be", 1)
	}
	if strings.Contains(text, "%s") {
		return fmt.Sprintf(text, fe.Param())
	}
	return text
}
