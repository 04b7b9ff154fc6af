package validation

import (
	"testing"

	"go-interview-intake/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() domain.Profile {
	return domain.Profile{
		Transcript:          "hello",
		CandidateName:       "Ada Lovelace",
		ProfessionalSummary: "Engineer.",
		HardSkills:          []string{"Go"},
		SoftSkills:          []string{},
		Tags:                []string{"backend"},
	}
}

func TestProfileValidation(t *testing.T) {
	v := New()
	require.NoError(t, v.Struct(validProfile()))

	p := validProfile()
	p.CandidateName = ""
	err := v.Struct(p)
	require.Error(t, err)
	assert.Equal(t, []string{"Candidate name: is required"}, FormatValidationErrors(err))

	p = validProfile()
	p.CandidateName = "Ada 🚀"
	assert.Equal(t, []string{"Candidate name: must not contain emoji or special symbols"}, FormatValidationErrors(v.Struct(p)))

	p = validProfile()
	p.Tags = []string{"ok", "  "}
	assert.Equal(t, []string{"Tags: items must not be blank"}, FormatValidationErrors(v.Struct(p)))
}

func TestDuplicateSkillsAllowed(t *testing.T) {
	p := validProfile()
	p.HardSkills = []string{"Go", "Go"}
	assert.NoError(t, New().Struct(p))
}

func TestGetFieldLabel(t *testing.T) {
	assert.Equal(t, "Tags[2]", getFieldLabel("tags[2]"))
	assert.Equal(t, "unknown", getFieldLabel("unknown"))
}
