package models

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	phoneRe = regexp.MustCompile(`^\d{7,11}$`)
	snumRe  = regexp.MustCompile(`^s\d{7}$`)
)

// Profile holds the requester identity submitted on booking confirmation.
// Mod counts booking attempts; it derives a unique email alias per attempt
// so the service does not deduplicate repeated bookings by the same person.
type Profile struct {
	FirstName     string `json:"fname"`
	LastName      string `json:"lname"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	StudentNumber string `json:"snum"`
	Mod           int    `json:"mod"`
}

// ValidPhone reports whether s is a 7-11 digit phone number.
func ValidPhone(s string) bool { return phoneRe.MatchString(s) }

// ValidStudentNumber reports whether s matches the s0000000 format.
func ValidStudentNumber(s string) bool { return snumRe.MatchString(s) }

// ValidEmail reports whether s is a non-empty address under emailDomain.
func ValidEmail(s, emailDomain string) bool {
	return strings.HasSuffix(s, emailDomain) && strings.TrimSuffix(s, emailDomain) != ""
}

// Complete reports whether every identity field needed for a booking is set.
func (p *Profile) Complete() bool {
	return p.FirstName != "" && p.LastName != "" && p.Email != "" &&
		p.Phone != "" && p.StudentNumber != ""
}

// Validate checks field formats. emailDomain is the required email suffix,
// including the leading "@".
func (p *Profile) Validate(emailDomain string) error {
	if !p.Complete() {
		return fmt.Errorf("profile incomplete")
	}
	if !ValidEmail(p.Email, emailDomain) {
		return fmt.Errorf("email %q must end in %s", p.Email, emailDomain)
	}
	if !ValidPhone(p.Phone) {
		return fmt.Errorf("phone %q must be 7-11 digits", p.Phone)
	}
	if !ValidStudentNumber(p.StudentNumber) {
		return fmt.Errorf("student number %q must match s0000000", p.StudentNumber)
	}
	return nil
}

// EmailLocalPart returns everything before the "@" of the profile email.
func (p *Profile) EmailLocalPart() string {
	if i := strings.Index(p.Email, "@"); i >= 0 {
		return p.Email[:i]
	}
	return p.Email
}
