package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrors(t *testing.T) {
	assert.Equal(t, "", ValidationErrors{}.Error())
	assert.False(t, ValidationErrors{}.HasErrors())

	one := ValidationErrors{{Field: "save", Message: "is required"}}
	assert.Equal(t, "save: is required", one.Error())

	two := append(one, ValidationError{Field: "top", Message: "must not be negative"})
	assert.Equal(t, "validation errors: save: is required; top: must not be negative", two.Error())
	assert.True(t, two.HasErrors())
}

func TestValidator_SaveName(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"premier", true},
		{"E0_2019-run2", true},
		{"9lives", true},
		{"", false},
		{"../etc", false},
		{"a/b", false},
		{"my save", false},
		{"dots.are.subject.tokens", false},
		{"-leading", false},
		{strings.Repeat("a", 64), true},
		{strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v := NewValidator()
			v.SaveName("save", tt.value)
			assert.Equal(t, !tt.valid, v.HasErrors(), "%v", v.Errors())
		})
	}
}

func TestValidator_League(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"E0", true},
		{"SP1", true},
		{"EC", true},
		{"SC3", true},
		{"e0", false},
		{"E10", false},
		{"", false},
		{"../E0", false},
	}

	for _, tt := range tests {
		v := NewValidator()
		v.League("league", tt.value)
		assert.Equal(t, !tt.valid, v.HasErrors(), "league %q", tt.value)
	}
}

func TestValidator_Season(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"2019-2020", true},
		{"1999-2000", true},
		{"2019-2021", false},
		{"2019", false},
		{"19-20", false},
		{"2020-2019", false},
	}

	for _, tt := range tests {
		v := NewValidator()
		v.Season("season", tt.value)
		assert.Equal(t, !tt.valid, v.HasErrors(), "season %q", tt.value)
	}
}

func TestValidator_Lists(t *testing.T) {
	v := NewValidator()
	v.Leagues("leagues", []string{"E0", "bad"})
	v.Seasons("seasons", nil)
	v.NonNegative("top", -1)
	v.Required("config", " ")

	require.Len(t, v.Errors(), 4)
	assert.Error(t, v.Err())

	ok := NewValidator()
	ok.Leagues("leagues", []string{"E0", "D1"})
	ok.Seasons("seasons", []string{"2018-2019"})
	ok.NonNegative("top", 0)
	assert.NoError(t, ok.Err())
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "premier", SanitizeInput("  premier\n"))
	assert.Equal(t, "ab", SanitizeInput("a\x00b\x7f"))
	assert.Equal(t, "", SanitizeInput("\t"))
}
