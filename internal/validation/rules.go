package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the wire format of every date field
const DateLayout = "2006-01-02"

var (
	phoneRe  = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{6,19}$`)
	walletRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// Rule checks one field value and returns a message when it fails
type Rule func(value string) string

type field struct {
	name  string
	rules []Rule
}

func f(name string, rules ...Rule) field {
	return field{name: name, rules: rules}
}

// check runs each field's rules in order, recording the first failure per field
func check(in Input, errs *Errors, fields []field) {
	for _, fl := range fields {
		v := in.Get(fl.name)
		for _, r := range fl.rules {
			if msg := r(v); msg != "" {
				errs.Add(fl.name, msg)
				break
			}
		}
	}
}

// Required fails on blank values
func Required(label string) Rule {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return label + " is required."
		}
		return ""
	}
}

// Length bounds the rune length of the trimmed value
func Length(min, max int) Rule {
	return func(v string) string {
		n := utf8.RuneCountInString(strings.TrimSpace(v))
		if n < min || n > max {
			return fmt.Sprintf("%d–%d characters required.", min, max)
		}
		return ""
	}
}

// MaxLength bounds the rune length of an optional value
func MaxLength(max int) Rule {
	return func(v string) string {
		if utf8.RuneCountInString(strings.TrimSpace(v)) > max {
			return fmt.Sprintf("At most %d characters allowed.", max)
		}
		return ""
	}
}

// Phone accepts loose international numbers
func Phone(v string) string {
	if !phoneRe.MatchString(strings.TrimSpace(v)) {
		return "Enter a valid phone number."
	}
	return ""
}

// Wallet accepts 0x followed by 40 hex characters
func Wallet(v string) string {
	if !walletRe.MatchString(strings.TrimSpace(v)) {
		return "Wallet address must be 0x followed by 40 hex characters."
	}
	return ""
}

// Latitude accepts numbers in [-90, 90]
func Latitude(v string) string {
	return Range(-90, 90, "Latitude must be between -90 and 90.")(v)
}

// Longitude accepts numbers in [-180, 180]
func Longitude(v string) string {
	return Range(-180, 180, "Longitude must be between -180 and 180.")(v)
}

// Range accepts numbers in [lo, hi]
func Range(lo, hi float64, msg string) Rule {
	return func(v string) string {
		n, ok := ParseFloat(v)
		if !ok || n < lo || n > hi {
			return msg
		}
		return ""
	}
}

// Positive accepts numbers strictly greater than zero
func Positive(label string) Rule {
	return func(v string) string {
		n, ok := ParseFloat(v)
		if !ok || n <= 0 {
			return label + " must be greater than 0."
		}
		return ""
	}
}

// PositiveInt accepts whole numbers strictly greater than zero
func PositiveInt(label string) Rule {
	return func(v string) string {
		n, ok := ParseInt(v)
		if !ok || n <= 0 {
			return label + " must be a whole number greater than 0."
		}
		return ""
	}
}

// NonNegative accepts numbers greater than or equal to zero
func NonNegative(label string) Rule {
	return func(v string) string {
		n, ok := ParseFloat(v)
		if !ok || n < 0 {
			return label + " must be 0 or more."
		}
		return ""
	}
}

// Date accepts YYYY-MM-DD
func Date(v string) string {
	if _, ok := ParseDate(v); !ok {
		return "Enter a valid date."
	}
	return ""
}

// NotFuture rejects dates after the day of now
func NotFuture(now func() time.Time, msg string) Rule {
	return func(v string) string {
		d, ok := ParseDate(v)
		if !ok {
			return "Enter a valid date."
		}
		n := now().UTC()
		today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
		if d.After(today) {
			return msg
		}
		return ""
	}
}

// OneOf accepts only the listed options
func OneOf(msg string, options ...string) Rule {
	return func(v string) string {
		v = strings.TrimSpace(v)
		for _, o := range options {
			if v == o {
				return ""
			}
		}
		return msg
	}
}

// Checked accepts checkbox values that mean true
func Checked(msg string) Rule {
	return func(v string) string {
		if !ParseBool(v) {
			return msg
		}
		return ""
	}
}

// Optional skips rules when the value is blank
func Optional(rules ...Rule) Rule {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return ""
		}
		for _, r := range rules {
			if msg := r(v); msg != "" {
				return msg
			}
		}
		return ""
	}
}

// ParseFloat parses a finite number
func ParseFloat(v string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// ParseInt parses a base-10 integer
func ParseInt(v string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(v string) (time.Time, bool) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseBool reports whether a form value means true
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}
