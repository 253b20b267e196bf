// Package form turns declarative field descriptors into bound settings
// controls with validation, dependency visibility and debounce/throttle
// behaviour.
package form

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/entrhq/toolbox/pkg/config"
)

// FieldKind selects the control rendered for a field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindToggle   FieldKind = "toggle"
	KindDropdown FieldKind = "dropdown"
	KindSlider   FieldKind = "slider"
	KindColor    FieldKind = "color"
	KindFile     FieldKind = "file"
	KindDate     FieldKind = "date"
	KindTime     FieldKind = "time"
	KindDateTime FieldKind = "datetime"
	KindTextArea FieldKind = "textarea"
)

// Kinds lists every supported kind.
var Kinds = []FieldKind{
	KindText, KindToggle, KindDropdown, KindSlider, KindColor,
	KindFile, KindDate, KindTime, KindDateTime, KindTextArea,
}

// Option is one dropdown choice.
type Option struct {
	Value string
	Label string
}

// Field describes one configuration value and its control.
type Field struct {
	// Name is the configuration key.
	Name        string
	Label       string
	Description string
	Kind        FieldKind
	Default     any

	// Options are the dropdown choices.
	Options []Option

	// Min, Max and Step bound a slider.
	Min, Max, Step float64

	Placeholder string

	// Rows is the textarea height.
	Rows int

	// Format is the display format of date, time and datetime fields.
	Format string

	// FileTypes restricts the extensions offered by a file field.
	FileTypes []string

	Validation *Validation
	DependsOn  *Dependency
	Behavior   Behavior

	// SubSetting fields persist through the registry's sub-setting path.
	SubSetting bool
}

// Group is an ordered set of fields rendered under one title.
type Group struct {
	Title       string
	Description string
	Fields      []Field
}

// Provider is implemented by tools that declare a settings form.
type Provider interface {
	SettingsGroups() []Group
}

// Behavior wraps value changes before they reach UpdateValue.
type Behavior struct {
	// Debounce delays the write until input has been idle this long.
	Debounce time.Duration

	// Throttle writes at most once per interval, dropping values in between.
	Throttle time.Duration
}

// Validation holds the declared rules of a field.
type Validation struct {
	Required  bool
	MinLength int
	MaxLength int

	// Min and Max bound numeric values. Nil means unbounded.
	Min *float64
	Max *float64

	Pattern        string
	PatternMessage string

	// Custom returns a non-nil error whose text is shown to the user.
	Custom func(value any) error
}

// Bound returns a pointer for Validation.Min and Validation.Max.
func Bound(v float64) *float64 {
	return &v
}

// ValidationError is a local, recoverable rule failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

// Validate runs the field's rules in order and stops at the first failure:
// required, length or range, pattern, then the custom check. Empty values
// of optional fields skip every rule after required.
func (f Field) Validate(value any) error {
	fail := func(format string, args ...any) error {
		return &ValidationError{Field: f.Name, Message: fmt.Sprintf(format, args...)}
	}

	if f.Kind == KindDropdown && !isEmpty(value) && len(f.Options) > 0 && !f.hasOption(value) {
		return fail("unknown option %v", value)
	}

	v := f.Validation
	if v == nil {
		return nil
	}

	if isEmpty(value) {
		if v.Required {
			return fail("this field is required")
		}
		return nil
	}

	switch val := value.(type) {
	case string:
		n := utf8.RuneCountInString(val)
		if v.MinLength > 0 && n < v.MinLength {
			return fail("minimum length is %d characters", v.MinLength)
		}
		if v.MaxLength > 0 && n > v.MaxLength {
			return fail("maximum length is %d characters", v.MaxLength)
		}
		if v.Pattern != "" {
			re, err := regexp.Compile(v.Pattern)
			if err != nil {
				return fail("invalid pattern %q", v.Pattern)
			}
			if !re.MatchString(val) {
				if v.PatternMessage != "" {
					return fail("%s", v.PatternMessage)
				}
				return fail("invalid format")
			}
		}
	case bool:
	default:
		if n, ok := config.ToFloat(val); ok {
			if v.Min != nil && n < *v.Min {
				return fail("value must be at least %s", formatNumber(*v.Min))
			}
			if v.Max != nil && n > *v.Max {
				return fail("value must be at most %s", formatNumber(*v.Max))
			}
		}
	}

	if v.Custom != nil {
		if err := v.Custom(value); err != nil {
			return fail("%s", err.Error())
		}
	}
	return nil
}

func (f Field) hasOption(value any) bool {
	s := fmt.Sprint(value)
	for _, opt := range f.Options {
		if opt.Value == s {
			return true
		}
	}
	return false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Coerce converts raw text typed by the user into the field's value type:
// booleans for toggles, numbers for sliders, strings for every other kind.
func Coerce(f Field, raw string) (any, error) {
	switch f.Kind {
	case KindToggle:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, &ValidationError{Field: f.Name, Message: fmt.Sprintf("%q is not a boolean", raw)}
		}
		return b, nil
	case KindSlider:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &ValidationError{Field: f.Name, Message: fmt.Sprintf("%q is not a number", raw)}
		}
		return n, nil
	case KindDropdown:
		trimmed := strings.TrimSpace(raw)
		for _, opt := range f.Options {
			if strings.EqualFold(opt.Label, trimmed) {
				return opt.Value, nil
			}
		}
		return trimmed, nil
	}
	return raw, nil
}
