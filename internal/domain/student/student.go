package student

// Package student defines the student profile schema and the display-field
// resolution rules. Profile documents arrive schemaless from the document
// store; every optional sub-record is explicit here, and each display field
// has exactly one documented resolution order, enumerated once instead of
// being re-derived per screen.

import (
	"encoding/json"
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/campusgate/portal-api/internal/ports"
)

// PersonalInfo is the optional personal sub-record.
type PersonalInfo struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Gender      string `json:"gender,omitempty"`
}

// AcademicInfo is the optional academic sub-record.
type AcademicInfo struct {
	Program    string  `json:"program,omitempty"`
	Department string  `json:"department,omitempty"`
	Semester   int     `json:"semester,omitempty"`
	CGPA       float64 `json:"cgpa,omitempty"`
}

// ContactInfo is the optional contact sub-record.
type ContactInfo struct {
	UniversityEmail string `json:"universityEmail,omitempty"`
	PersonalEmail   string `json:"personalEmail,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
}

// GuardianInfo is the optional guardian sub-record.
type GuardianInfo struct {
	Name     string `json:"name,omitempty"`
	Relation string `json:"relation,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// StatusInfo is the optional enrollment-status sub-record.
type StatusInfo struct {
	IsActive   bool   `json:"isActive"`
	EnrolledAt string `json:"enrolledAt,omitempty"`
}

// Profile is the denormalized student document.
type Profile struct {
	StudentID string        `json:"studentId,omitempty"`
	Name      string        `json:"name,omitempty"`
	Email     string        `json:"email,omitempty"`
	Personal  *PersonalInfo `json:"personal,omitempty"`
	Academic  *AcademicInfo `json:"academic,omitempty"`
	Contact   *ContactInfo  `json:"contact,omitempty"`
	Guardian  *GuardianInfo `json:"guardian,omitempty"`
	Status    *StatusInfo   `json:"status,omitempty"`

	raw ports.Document
}

// Field identifies a display field with a documented resolution order.
type Field string

const (
	FieldDisplayName Field = "displayName"
	FieldSignInEmail Field = "signInEmail"
	FieldProgram     Field = "program"
	FieldAvatar      Field = "avatar"
)

// resolutionOrder is the single source of truth for how each display field is
// resolved from a raw profile document: the first expression yielding a
// non-empty string wins.
var resolutionOrder = map[Field][]string{
	FieldDisplayName: {"name", "personal.firstName", "studentId"},
	FieldSignInEmail: {"contact.universityEmail", "email"},
	FieldProgram:     {"academic.program", "academic.department"},
	FieldAvatar:      {"avatarUrl", "personal.photoUrl"},
}

// Resolve evaluates the field's resolution order against a raw document and
// returns the first non-empty string, or "" when nothing matches.
func Resolve(doc ports.Document, f Field) string {
	for _, expr := range resolutionOrder[f] {
		v, err := jmespath.Search(expr, map[string]any(doc))
		if err != nil {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// IsActive reports whether the document's enrollment status is active.
// A missing or malformed status sub-record counts as inactive.
func IsActive(doc ports.Document) bool {
	v, err := jmespath.Search("status.isActive", map[string]any(doc))
	if err != nil {
		return false
	}
	active, ok := v.(bool)
	return ok && active
}

// FromDocument decodes a raw document into a Profile. The raw document is
// retained for display-field resolution and persistence.
func FromDocument(doc ports.Document) (*Profile, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil profile document")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode profile document: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile document: %w", err)
	}

	p.raw = doc
	return &p, nil
}

// FromJSON decodes a persisted profile document.
func FromJSON(data []byte) (*Profile, error) {
	var doc ports.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode cached profile: %w", err)
	}
	return FromDocument(doc)
}

// JSON encodes the profile's raw document for persistence.
func (p *Profile) JSON() ([]byte, error) {
	return json.Marshal(p.raw)
}

// Raw returns the underlying document.
func (p *Profile) Raw() ports.Document { return p.raw }

// DisplayName resolves the profile's display name.
func (p *Profile) DisplayName() string { return Resolve(p.raw, FieldDisplayName) }

// SignInEmail resolves the email used for provider sign-in.
func (p *Profile) SignInEmail() string { return Resolve(p.raw, FieldSignInEmail) }

// Program resolves the academic program label.
func (p *Profile) Program() string { return Resolve(p.raw, FieldProgram) }

// Active reports whether the student's enrollment is active.
func (p *Profile) Active() bool { return p.Status != nil && p.Status.IsActive }
