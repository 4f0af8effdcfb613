package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgate/portal-api/internal/ports"
)

func sampleDocument() ports.Document {
	return ports.Document{
		"studentId": "STU-1042",
		"name":      "Hassan Raza",
		"email":     "hassan.personal@example.com",
		"personal": map[string]any{
			"firstName": "Hassan",
			"lastName":  "Raza",
		},
		"academic": map[string]any{
			"program":    "BS Information Technology",
			"department": "Computing",
			"semester":   float64(5),
			"cgpa":       3.4,
		},
		"contact": map[string]any{
			"universityEmail": "stu1042@university.edu",
			"phone":           "+92-300-0000000",
		},
		"guardian": map[string]any{
			"name":     "Imran Raza",
			"relation": "Father",
		},
		"status": map[string]any{
			"isActive":   true,
			"enrolledAt": "2022-09-01",
		},
	}
}

func TestFromDocument(t *testing.T) {
	p, err := FromDocument(sampleDocument())
	require.NoError(t, err)

	assert.Equal(t, "STU-1042", p.StudentID)
	require.NotNil(t, p.Personal)
	assert.Equal(t, "Hassan", p.Personal.FirstName)
	require.NotNil(t, p.Academic)
	assert.Equal(t, 5, p.Academic.Semester)
	require.NotNil(t, p.Contact)
	assert.Equal(t, "stu1042@university.edu", p.Contact.UniversityEmail)
	require.NotNil(t, p.Guardian)
	assert.Equal(t, "Father", p.Guardian.Relation)
	require.NotNil(t, p.Status)
	assert.True(t, p.Active())
}

func TestFromDocument_MinimalDocument(t *testing.T) {
	p, err := FromDocument(ports.Document{"studentId": "STU-7"})
	require.NoError(t, err)

	assert.Equal(t, "STU-7", p.StudentID)
	assert.Nil(t, p.Personal)
	assert.Nil(t, p.Status)
	assert.False(t, p.Active())
}

func TestFromDocument_Nil(t *testing.T) {
	_, err := FromDocument(nil)
	assert.Error(t, err)
}

func TestResolve_DisplayName(t *testing.T) {
	doc := sampleDocument()
	assert.Equal(t, "Hassan Raza", Resolve(doc, FieldDisplayName))

	// First path empty: falls through to personal.firstName.
	delete(doc, "name")
	assert.Equal(t, "Hassan", Resolve(doc, FieldDisplayName))

	// Then to the student id.
	delete(doc, "personal")
	assert.Equal(t, "STU-1042", Resolve(doc, FieldDisplayName))

	delete(doc, "studentId")
	assert.Equal(t, "", Resolve(doc, FieldDisplayName))
}

func TestResolve_SignInEmail(t *testing.T) {
	doc := sampleDocument()

	// University email wins over the top-level personal email.
	assert.Equal(t, "stu1042@university.edu", Resolve(doc, FieldSignInEmail))

	delete(doc, "contact")
	assert.Equal(t, "hassan.personal@example.com", Resolve(doc, FieldSignInEmail))
}

func TestIsActive(t *testing.T) {
	assert.True(t, IsActive(sampleDocument()))

	doc := sampleDocument()
	doc["status"] = map[string]any{"isActive": false}
	assert.False(t, IsActive(doc))

	// Missing or malformed status counts as inactive.
	delete(doc, "status")
	assert.False(t, IsActive(doc))
	doc["status"] = "active"
	assert.False(t, IsActive(doc))
}

func TestJSONRoundTrip(t *testing.T) {
	p, err := FromDocument(sampleDocument())
	require.NoError(t, err)

	data, err := p.JSON()
	require.NoError(t, err)

	restored, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, p.StudentID, restored.StudentID)
	assert.Equal(t, p.DisplayName(), restored.DisplayName())
	assert.Equal(t, p.SignInEmail(), restored.SignInEmail())
}
