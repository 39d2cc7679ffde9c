package validation

import (
	"strings"
	"time"

	"github.com/bluecarbon/registry/internal/models"
	"github.com/go-playground/validator/v10"
)

// FileInfo describes one uploaded file as seen by the rules
type FileInfo struct {
	Name string
	Size int64
	MIME string
}

// Input is a submitted form: text values and files grouped by field name
type Input struct {
	Values map[string][]string
	Files  map[string][]FileInfo
}

// Get returns the first value of key, trimmed
func (in Input) Get(key string) string {
	vs := in.Values[key]
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[0])
}

// List returns every non-blank value of key. Comma separated values are split,
// so both repeated fields and "a,b" submit the same list.
func (in Input) List(key string) []string {
	var out []string
	for _, v := range in.Values[key] {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Count returns the number of files uploaded under key
func (in Input) Count(key string) int {
	return len(in.Files[key])
}

// Limits holds per-file size ceilings
type Limits struct {
	MaxPhotoBytes    int64
	MaxDocumentBytes int64
}

// Validator checks Local and Organization submissions
type Validator struct {
	limits   Limits
	now      func() time.Time
	validate *validator.Validate
}

// New creates a validator with the given size limits
func New(limits Limits) *Validator {
	return &Validator{
		limits:   limits,
		now:      time.Now,
		validate: validator.New(),
	}
}

// WithClock replaces the clock used for "not in the future" checks
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Email accepts addresses the validator package considers valid
func (v *Validator) Email(value string) string {
	if err := v.validate.Var(strings.TrimSpace(value), "required,email"); err != nil {
		return "Enter a valid email address."
	}
	return ""
}

// Validate dispatches on submission type. Unknown types return nil, ok=false.
func (v *Validator) Validate(submissionType string, in Input) (*Errors, bool) {
	switch submissionType {
	case models.TypeLocal:
		return v.Local(in), true
	case models.TypeOrg:
		return v.Org(in), true
	}
	return nil, false
}
