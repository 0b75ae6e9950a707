package sanitizer

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrInvalidTarget is returned when SanitizeStruct gets anything but a struct pointer.
	ErrInvalidTarget = errors.New("sanitizer: must pass a pointer to struct")
	// ErrUnknownSanitizer is returned for a tag naming an unregistered sanitizer.
	ErrUnknownSanitizer = errors.New("sanitizer: unknown sanitizer")
)

var (
	registryMu sync.RWMutex
	registry   = map[string]func(string) string{
		"trim":        Trim,
		"lower":       ToLower,
		"trim_lower":  TrimToLower,
		"text":        RemoveExtraWhitespace,
		"single_line": SingleLine,
		"no_control":  RemoveControlChars,
		"phone":       KeepDigits,
	}
)

// RegisterSanitizer adds or replaces a named sanitizer.
func RegisterSanitizer(name string, fn func(string) string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// SanitizeStruct applies the `sanitize` tags of v, which must point to a struct.
func SanitizeStruct(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}
	return sanitizeStruct(rv.Elem())
}

func sanitizeStruct(rv reflect.Value) error {
	rt := rv.Type()
	for i := range rv.NumField() {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}
		tag := rt.Field(i).Tag.Get("sanitize")
		if tag == "-" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if err := sanitizeValue(field, tag); err != nil {
				return err
			}
		case reflect.Pointer:
			if field.IsNil() {
				continue
			}
			switch elem := field.Elem(); elem.Kind() {
			case reflect.String:
				if err := sanitizeValue(elem, tag); err != nil {
					return err
				}
			case reflect.Struct:
				if err := sanitizeStruct(elem); err != nil {
					return err
				}
			}
		case reflect.Struct:
			if err := sanitizeStruct(field); err != nil {
				return err
			}
		case reflect.Slice:
			if field.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := range field.Len() {
				if err := sanitizeValue(field.Index(j), tag); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func sanitizeValue(v reflect.Value, tag string) error {
	if tag == "" {
		return nil
	}
	out, err := apply(v.String(), tag)
	if err != nil {
		return err
	}
	v.SetString(out)
	return nil
}

// apply runs the comma-separated sanitizers of tag. "max:N" truncates to N runes.
func apply(value, tag string) (string, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for name := range strings.SplitSeq(tag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if n, ok := strings.CutPrefix(name, "max:"); ok {
			limit, err := strconv.Atoi(n)
			if err != nil {
				return "", fmt.Errorf("%w: %q", ErrUnknownSanitizer, name)
			}
			value = MaxLength(value, limit)
			continue
		}
		fn, ok := registry[name]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownSanitizer, name)
		}
		value = fn(value)
	}
	return value, nil
}
