// Package forms holds one explicit input schema per operation. Handlers fill
// a form from the request and the service validates it before doing any work.
package forms

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Registration struct {
	Username        string `json:"username" validate:"required,min=2,max=20"`
	Email           string `json:"email" validate:"required,email,max=120"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// Normalize trims surrounding whitespace from identity fields.
func (f *Registration) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

// Input returns the submitted values safe to echo back. Passwords are never included.
func (f Registration) Input() map[string]string {
	return map[string]string{"username": f.Username, "email": f.Email}
}

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

func (f *Login) Normalize() {
	f.Email = strings.TrimSpace(f.Email)
}

func (f Login) Input() map[string]string {
	return map[string]string{"email": f.Email}
}

// Post is the create and edit form. Tags is the raw comma-separated list.
type Post struct {
	Title   string `json:"title" validate:"required,max=100"`
	Content string `json:"content" validate:"required"`
	Tags    string `json:"tags" validate:"max=500"`
}

func (f *Post) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
}

func (f Post) Input() map[string]string {
	return map[string]string{"title": f.Title, "content": f.Content, "tags": f.Tags}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks form against its struct tags and returns failures keyed by
// JSON field name, e.g. {"username": "required", "password": "min=6"}.
// The map is never nil so callers can add their own failures.
func Validate(form interface{}) map[string]string {
	fields := make(map[string]string)
	err := get().Struct(form)
	if err == nil {
		return fields
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["_"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Field()] = rule
	}
	return fields
}
