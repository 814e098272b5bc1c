package schemas_test

import (
	"encoding/json"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/resume-optimizer/schemas"
)

func TestAllSchemaFiles_CompileAsJSONSchema(t *testing.T) {
	names, err := fs.Glob(schemas.Files, "*.schema.json")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{schemas.ResumeData, schemas.ATSResult, schemas.ResearchProfile}, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			content, err := schemas.Load(name)
			require.NoError(t, err)

			var v map[string]any
			require.NoError(t, json.Unmarshal([]byte(content), &v), "schema file should be valid JSON")
			assert.Equal(t, "http://json-schema.org/draft-07/schema#", v["$schema"])

			_, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
			assert.NoError(t, err, "schema should compile")
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := schemas.Load("job_profile.schema.json")
	assert.Error(t, err)
}
