package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// NotFoundError reports that a referenced resource does not exist.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// PermissionError reports an authenticated caller acting outside their rights.
type PermissionError struct {
	Detail string
}

func (e *PermissionError) Error() string {
	return e.Detail
}

// ValidationError carries field-keyed messages for a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

var emailRegexp = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

// validator collects the first failure per field.
type validator struct {
	errors map[string]string
}

func newValidator() *validator {
	return &validator{errors: make(map[string]string)}
}

func (v *validator) check(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.errors[key]; !ok {
		v.errors[key] = msg
	}
}

func (v *validator) failed(key string) bool {
	_, ok := v.errors[key]
	return ok
}

func (v *validator) err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.errors}
}

func (v *validator) checkEmail(key, email string) {
	v.check(email != "", key, "This field is required.")
	v.check(emailRegexp.MatchString(email), key, "Enter a valid email address.")
}
