package validator

import (
	"errors"
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrInvalidTarget is returned when ValidateStruct gets anything but a struct pointer.
var ErrInvalidTarget = errors.New("validator: must pass a pointer to struct")

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors collects failed rules in field declaration order.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Message
}

// Fields groups messages by field.
func (e ValidationErrors) Fields() map[string][]string {
	out := make(map[string][]string, len(e))
	for _, fe := range e {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}

// Order returns field names in the order they failed, without duplicates.
func (e ValidationErrors) Order() []string {
	var order []string
	for _, fe := range e {
		if !slices.Contains(order, fe.Field) {
			order = append(order, fe.Field)
		}
	}
	return order
}

// Has reports whether field failed any rule.
func (e ValidationErrors) Has(field string) bool {
	return slices.ContainsFunc(e, func(fe FieldError) bool { return fe.Field == field })
}

// Rule checks one value. It returns an empty string when the value passes.
// label is the human-readable field name used in messages.
type Rule func(label string, value reflect.Value, params []string) string

var (
	registryMu sync.RWMutex
	registry   = map[string]Rule{
		"required": required,
		"email":    email,
		"min":      minRule,
		"max":      maxRule,
		"in":       in,
		"phone":    phone,
	}
)

// RegisterValidator adds or replaces a rule.
func RegisterValidator(name string, rule Rule) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = rule
}

// ValidateStruct validates v, which must be a pointer to a struct.
// It returns ValidationErrors when any rule fails.
func ValidateStruct(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	var errs ValidationErrors
	validateStruct(rv.Elem(), &errs)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateStruct(rv reflect.Value, errs *ValidationErrors) {
	rt := rv.Type()
	for i := range rv.NumField() {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("validate")
		if tag == "-" {
			continue
		}

		field := rv.Field(i)
		if tag == "" {
			if field.Kind() == reflect.Struct {
				validateStruct(field, errs)
			}
			continue
		}

		name := fieldName(sf)
		// Optional pointers are validated only when set.
		if field.Kind() == reflect.Pointer {
			if field.IsNil() {
				if hasRule(tag, "required") {
					*errs = append(*errs, FieldError{Field: name, Message: required(label(name), field, nil)})
				}
				continue
			}
			field = field.Elem()
		}
		validateField(name, field, tag, errs)
	}
}

func validateField(name string, field reflect.Value, tag string, errs *ValidationErrors) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for raw := range strings.SplitSeq(tag, ";") {
		ruleName, paramStr, _ := strings.Cut(strings.TrimSpace(raw), ":")
		if ruleName == "" {
			continue
		}
		rule, ok := registry[ruleName]
		if !ok {
			continue
		}

		var params []string
		if paramStr != "" {
			for p := range strings.SplitSeq(paramStr, ",") {
				params = append(params, strings.TrimSpace(p))
			}
		}

		if msg := rule(label(name), field, params); msg != "" {
			*errs = append(*errs, FieldError{Field: name, Message: msg})
			// Later rules on an empty required field add only noise.
			if ruleName == "required" {
				return
			}
		}
	}
}

func hasRule(tag, name string) bool {
	for raw := range strings.SplitSeq(tag, ";") {
		if r, _, _ := strings.Cut(strings.TrimSpace(raw), ":"); r == name {
			return true
		}
	}
	return false
}

func fieldName(sf reflect.StructField) string {
	if name, _, _ := strings.Cut(sf.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return sf.Name
}

func label(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

func required(label string, v reflect.Value, _ []string) string {
	empty := !v.IsValid() || v.IsZero()
	if v.IsValid() && v.Kind() == reflect.String {
		empty = strings.TrimSpace(v.String()) == ""
	}
	if empty {
		return fmt.Sprintf("The %s field is required.", label)
	}
	return ""
}

func email(label string, v reflect.Value, _ []string) string {
	if v.Kind() != reflect.String || v.String() == "" {
		return ""
	}
	addr, err := mail.ParseAddress(v.String())
	valid := err == nil && addr.Address == v.String()
	if valid {
		_, domain, _ := strings.Cut(addr.Address, "@")
		valid = strings.Contains(domain, ".")
	}
	if !valid {
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	}
	return ""
}

func minRule(label string, v reflect.Value, params []string) string {
	n, ok := intParam(params)
	if !ok {
		return ""
	}
	switch v.Kind() {
	case reflect.String:
		if utf8.RuneCountInString(v.String()) < n {
			return fmt.Sprintf("The %s field must be at least %d characters.", label, n)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Int() < int64(n) {
			return fmt.Sprintf("The %s field must be at least %d.", label, n)
		}
	}
	return ""
}

func maxRule(label string, v reflect.Value, params []string) string {
	n, ok := intParam(params)
	if !ok {
		return ""
	}
	switch v.Kind() {
	case reflect.String:
		if utf8.RuneCountInString(v.String()) > n {
			return fmt.Sprintf("The %s field must not be greater than %d characters.", label, n)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Int() > int64(n) {
			return fmt.Sprintf("The %s field must not be greater than %d.", label, n)
		}
	}
	return ""
}

func in(label string, v reflect.Value, params []string) string {
	if v.Kind() != reflect.String || v.String() == "" {
		return ""
	}
	if !slices.Contains(params, v.String()) {
		return fmt.Sprintf("The selected %s is invalid.", label)
	}
	return ""
}

var phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)

func phone(label string, v reflect.Value, _ []string) string {
	if v.Kind() != reflect.String || v.String() == "" {
		return ""
	}
	digits := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(v.String())
	if !phonePattern.MatchString(digits) {
		return fmt.Sprintf("The %s field format is invalid.", label)
	}
	return ""
}

func intParam(params []string) (int, bool) {
	if len(params) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(params[0])
	return n, err == nil
}
