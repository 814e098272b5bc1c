package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeCreateInput_Title(t *testing.T) {
	in := &ResumeCreateInput{CompanyName: "Acme", RoleTarget: "Backend Engineer"}
	assert.Equal(t, "Backend Engineer at Acme", in.Title())
}

func TestDecodeColumns(t *testing.T) {
	var r OptimizedResume
	err := decodeColumns(&r,
		[]byte(`{"resumeData": {"contact": {"name": "Ada"}}, "companyResearch": {"name": "Acme", "techStack": ["Go"]}}`),
		[]byte(`{"feedback": ["Add metrics"], "improvements": ["Quantify impact"]}`),
		[]byte(`{"resume.tex": "\\documentclass{article}"}`),
		[]byte(`[{"attempt": 1, "score": 62}, {"attempt": 2, "score": 81}]`),
	)
	require.NoError(t, err)

	assert.Equal(t, "Ada", r.Content.ResumeData.Contact.Name)
	assert.Equal(t, []string{"Go"}, r.Content.CompanyResearch.TechStack)
	assert.Equal(t, []string{"Add metrics"}, r.ATSFeedback.Feedback)
	assert.Contains(t, r.LatexSource["resume.tex"], "documentclass")
	require.Len(t, r.ScoreHistory, 2)
	assert.Equal(t, 81, r.ScoreHistory[1].Score)
}

func TestDecodeColumns_Corrupt(t *testing.T) {
	var r OptimizedResume
	err := decodeColumns(&r, []byte(`{`), []byte(`{}`), []byte(`{}`), []byte(`[]`))
	assert.ErrorContains(t, err, "content")
}

func TestSchemaSQL(t *testing.T) {
	assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS optimized_resumes")
	for _, column := range []string{"latex_source", "original_filename", "iteration_count", "score_history", "file_key"} {
		assert.True(t, strings.Contains(schemaSQL, column), column)
	}
}

func TestNonNilMap(t *testing.T) {
	assert.NotNil(t, nonNilMap(nil))
	assert.Equal(t, map[string]string{"a": "b"}, nonNilMap(map[string]string{"a": "b"}))
}
