package validator

import (
	"regexp"
	"slices"
	"strings"
)

var (
	// RideIDRX accepts uuids and the backend's short ride ids.
	RideIDRX = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
)

// Validator collects field errors keyed by field name.
type Validator struct {
	Errors map[string]string
}

func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid returns true if the errors map doesn't contain any entries.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first message for each key.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check adds an error message to the map only if a validation check is not 'ok'.
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// PermittedValue returns true if a specific value is in a list of permitted values.
func PermittedValue[T comparable](value T, permittedValues ...T) bool {
	return slices.Contains(permittedValues, value)
}

// Matches returns true if a string value matches a specific regexp pattern.
func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

// MaxChars reports whether value is at most n runes long after trimming.
func MaxChars(value string, n int) bool {
	return len([]rune(strings.TrimSpace(value))) <= n
}

// Between reports whether lo <= value <= hi.
func Between(value, lo, hi float64) bool {
	return value >= lo && value <= hi
}
