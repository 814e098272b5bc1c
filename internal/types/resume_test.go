package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeData_JSONFieldNames(t *testing.T) {
	data := ResumeData{
		Contact: Contact{Name: "Ada Lovelace", Email: "ada@example.com", LinkedIn: "https://linkedin.com/in/ada"},
		Summary: "Engineer",
		Experience: []Experience{
			{Company: "Analytical Engines", Position: "Programmer", Achievements: []string{"Wrote the first program"}},
		},
		Skills:   Skills{Technical: []string{"Go"}, Tools: []string{"Docker"}},
		Projects: []Project{{Name: "Notes", Technologies: "Go, LaTeX"}},
	}

	jsonBytes, err := json.Marshal(data)
	require.NoError(t, err)
	s := string(jsonBytes)
	assert.Contains(t, s, `"linkedin":"https://linkedin.com/in/ada"`)
	assert.Contains(t, s, `"achievements":["Wrote the first program"]`)
	assert.Contains(t, s, `"technologies":"Go, LaTeX"`)
	assert.NotContains(t, s, `"github"`)
	assert.NotContains(t, s, `"languages"`)
	assert.NotContains(t, s, `"gpa"`)
}

func TestResumeData_Validate(t *testing.T) {
	tests := []struct {
		name    string
		data    ResumeData
		wantErr bool
	}{
		{
			name: "minimal valid",
			data: ResumeData{Contact: Contact{Name: "Ada"}},
		},
		{
			name:    "missing contact name",
			data:    ResumeData{Summary: "x"},
			wantErr: true,
		},
		{
			name: "experience without company",
			data: ResumeData{
				Contact:    Contact{Name: "Ada"},
				Experience: []Experience{{Position: "Engineer"}},
			},
			wantErr: true,
		},
		{
			name: "project without name",
			data: ResumeData{
				Contact:  Contact{Name: "Ada"},
				Projects: []Project{{Description: "thing"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSkills_HasSkills(t *testing.T) {
	assert.False(t, Skills{}.HasSkills())
	assert.True(t, Skills{Languages: []string{"English"}}.HasSkills())
}

func TestEmptyProfile(t *testing.T) {
	p := EmptyProfile("Acme")
	assert.Equal(t, "Acme", p.Name)
	assert.True(t, p.IsEmpty())
	assert.NotNil(t, p.TechStack)

	p.Industry = "Software"
	assert.False(t, p.IsEmpty())

	var nilProfile *ResearchProfile
	assert.True(t, nilProfile.IsEmpty())
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 55, ClampScore(55))
	assert.Equal(t, 100, ClampScore(140))
}

func TestFilesToMap(t *testing.T) {
	m := FilesToMap([]MarkupFile{{Filename: "a.tex", Content: "A"}, {Filename: "b.cls", Content: "B"}})
	assert.Equal(t, map[string]string{"a.tex": "A", "b.cls": "B"}, m)
}
