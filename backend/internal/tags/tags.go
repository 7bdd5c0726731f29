// Package tags turns caller-supplied industry names into graph labels.
//
// Labels are part of the query text, not bound parameters, so a Tag can only
// be obtained from a Validator and LabelClause is the only way one reaches a
// query string.
package tags

import (
	stderrors "errors"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-playground/validator/v10"

	apperrors "media-contacts/backend/pkg/errors"
)

// MaxLength is the longest tag accepted
const MaxLength = 64

// Tag is a label name that passed validation
type Tag struct {
	name string
}

// String returns the label name
func (t Tag) String() string {
	return t.name
}

// Validator checks tag strings against the identifier rule
type Validator struct {
	allowDigits bool
	reserved    mapset.Set[string]
	validate    *validator.Validate
}

// Option configures a Validator
type Option func(*Validator)

// WithDigits accepts ASCII digits after the first letter
func WithDigits() Option {
	return func(v *Validator) { v.allowDigits = true }
}

// WithReserved rejects the given labels as tags
func WithReserved(labels ...string) Option {
	return func(v *Validator) { v.reserved.Append(labels...) }
}

// NewValidator creates a validator. Without options only ASCII letters are accepted.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		reserved: mapset.NewSet[string](),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) rule() string {
	if v.allowDigits {
		return "required,alphanum,max=64"
	}
	return "required,alpha,max=64"
}

// Validate reports whether tag may be used as a label
func (v *Validator) Validate(tag string) error {
	if err := v.validate.Var(tag, v.rule()); err != nil {
		return apperrors.NewInvalidTagError(tag, reason(err, v.allowDigits))
	}
	if first := []rune(tag)[0]; !unicode.IsLetter(first) {
		return apperrors.NewInvalidTagError(tag, "must start with a letter")
	}
	if v.reserved.Contains(tag) {
		return apperrors.NewInvalidTagError(tag, "reserved for entity kinds")
	}
	return nil
}

// Parse validates tag and returns it as a Tag
func (v *Validator) Parse(tag string) (Tag, error) {
	if err := v.Validate(tag); err != nil {
		return Tag{}, err
	}
	return Tag{name: tag}, nil
}

// ParseAll validates every entry and stops at the first invalid one.
// Duplicates collapse, first occurrence wins the position.
func (v *Validator) ParseAll(raw []string) ([]Tag, error) {
	seen := mapset.NewThreadUnsafeSet[string]()
	result := make([]Tag, 0, len(raw))
	for _, s := range raw {
		t, err := v.Parse(s)
		if err != nil {
			return nil, err
		}
		if seen.Add(s) {
			result = append(result, t)
		}
	}
	return result, nil
}

// LabelClause renders tags as ":A:B" for use after a node variable.
// It returns "" for no tags.
func LabelClause(tags []Tag) string {
	if len(tags) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range tags {
		b.WriteByte(':')
		b.WriteString(t.name)
	}
	return b.String()
}

// Names returns the label names of tags
func Names(tags []Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.name
	}
	return names
}

func reason(err error, allowDigits bool) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	switch verrs[0].Tag() {
	case "required":
		return "must not be empty"
	case "max":
		return "longer than 64 characters"
	}
	if allowDigits {
		return "only letters and digits are allowed"
	}
	return "only letters are allowed"
}
