package checkout

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const dateLayout = "2006-01-02"

// ValidEmail is the loose address check shared by checkout and inquiry forms.
func ValidEmail(s string) bool { return emailRe.MatchString(s) }

// FieldErrors maps a form field to a user-facing message.
type FieldErrors map[string]string

func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidationError is returned when payment is attempted on an incomplete draft.
type ValidationError struct{ Fields FieldErrors }

func (e *ValidationError) Error() string {
	return "checkout: incomplete draft: " + strings.Join(e.Fields.Fields(), ", ")
}

// Validate lists everything that still blocks payment. An empty result means the draft can be paid.
func (s *Session) Validate() FieldErrors {
	errs := FieldErrors{}
	if s.State != StateReady || len(s.lines) == 0 {
		errs["cart"] = "Your trip is empty."
		return errs
	}
	for _, l := range s.lines {
		// a start date that is not a calendar day has not been chosen
		if _, err := time.Parse(dateLayout, l.StartDate); err != nil {
			errs["dates"] = "Select a start date for every tour."
			break
		}
	}
	if s.lead.FullName == "" {
		errs["fullName"] = "Full name is required."
	}
	if s.lead.Email == "" {
		errs["email"] = "Email is required."
	} else if !ValidEmail(s.lead.Email) {
		errs["email"] = "Enter a valid email address."
	}
	if s.lead.Phone == "" {
		errs["phone"] = "Phone is required."
	}
	if !s.terms {
		errs["terms"] = "Please accept the terms and conditions."
	}
	return errs
}
