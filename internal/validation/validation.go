package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation errors: " + strings.Join(msgs, "; ")
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

var (
	// save names become directory names, Redis keys and NATS subject tokens
	saveNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
	// football-data division codes: E0, SP1, SC0, EC, ...
	leagueRegex = regexp.MustCompile(`^[A-Z]{1,3}[0-9]?$`)
	seasonRegex = regexp.MustCompile(`^([0-9]{4})-([0-9]{4})$`)
)

// Validator collects field errors
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// Errors returns all validation errors
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Err returns the collected errors, nil when there are none
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v.errors
}

// Required validates that a field is not empty
func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
}

// NonNegative validates that a value is not negative
func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("must not be negative (got %d)", value))
	}
}

// SaveName validates the name of an evolution save
func (v *Validator) SaveName(field, value string) {
	if value == "" {
		v.AddError(field, "is required")
		return
	}
	if !saveNameRegex.MatchString(value) {
		v.AddError(field, "must be 1-64 letters, digits, '_' or '-' and start with a letter or digit")
	}
}

// League validates a football-data league code
func (v *Validator) League(field, value string) {
	if !leagueRegex.MatchString(value) {
		v.AddError(field, fmt.Sprintf("invalid league code %q (expected e.g. E0, SP1, D1)", value))
	}
}

// Season validates a season written as two consecutive years
func (v *Validator) Season(field, value string) {
	m := seasonRegex.FindStringSubmatch(value)
	if m == nil {
		v.AddError(field, fmt.Sprintf("invalid season %q (expected YYYY-YYYY)", value))
		return
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if end != start+1 {
		v.AddError(field, fmt.Sprintf("invalid season %q (years must be consecutive)", value))
	}
}

// Leagues validates every league code of a list
func (v *Validator) Leagues(field string, values []string) {
	if len(values) == 0 {
		v.AddError(field, "at least one league is required")
	}
	for _, value := range values {
		v.League(field, value)
	}
}

// Seasons validates every season of a list
func (v *Validator) Seasons(field string, values []string) {
	if len(values) == 0 {
		v.AddError(field, "at least one season is required")
	}
	for _, value := range values {
		v.Season(field, value)
	}
}

// SanitizeInput trims whitespace and drops control characters
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)
}
