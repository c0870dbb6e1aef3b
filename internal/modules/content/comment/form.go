package comment

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/idna"
)

// hostProfile is the lookup profile plus DNS label and name length checks.
var hostProfile = idna.New(idna.MapForLookup(), idna.VerifyDNSLength(true), idna.BidiRule())

var fieldLabels = map[string]string{
	"name":    "Name",
	"email":   "E-mail",
	"website": "Website",
	"comment": "Comment",
	"captcha": "Security question",
}

// fields are the sanitized values a submission is validated against.
type fields struct {
	Name    string `form:"name"    validate:"required,max=64"`
	Email   string `form:"email"   validate:"required,max=255,email"`
	Website string `form:"website" validate:"omitempty,max=128,weburl"`
	Comment string `form:"comment" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	_ = v.RegisterValidation("weburl", isWebURL)
	return v
}

// validate returns one message per invalid field, keyed by form field name.
func validateFields(v *validator.Validate, f fields) map[string]string {
	err := v.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fieldMessage(fe.Field(), fe.Tag(), fe.Param())
	}
	return out
}

func fieldMessage(field, tag, param string) string {
	label := fieldLabels[field]
	switch tag {
	case "required":
		return fmt.Sprintf("Please fill in the field %q.", label)
	case "max":
		return fmt.Sprintf("The field %q may not be longer than %s characters.", label, param)
	case "email":
		return "Please enter a valid e-mail address."
	case "weburl":
		return "Please enter a valid URL."
	default:
		return fmt.Sprintf("The field %q is invalid.", label)
	}
}

// isWebURL accepts absolute URLs, bare host names with an optional path,
// mailto links and fragments.
func isWebURL(fl validator.FieldLevel) bool {
	v := strings.TrimSpace(fl.Field().String())
	if v == "" || strings.ContainsAny(v, " \t\r\n<>\"'") {
		return false
	}
	if strings.HasPrefix(v, "#") {
		return true
	}
	if strings.HasPrefix(strings.ToLower(v), "mailto:") {
		_, err := mail.ParseAddress(v[len("mailto:"):])
		return err == nil
	}
	u, err := url.Parse(NormalizeWebsite(v))
	if err != nil || u.Hostname() == "" {
		return false
	}
	_, err = hostProfile.ToASCII(u.Hostname())
	return err == nil
}
