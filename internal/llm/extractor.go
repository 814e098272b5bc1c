package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema describes a structured-extraction task: what the model should read
// and the JSON object it must return.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "CompanyProfile")
	Description string        // Preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "\"string\"", "[\"string\"]"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString(inputText)
	sb.WriteString("\n\n")

	sb.WriteString("Extract and return a JSON object with this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = `"string"`
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		fmt.Fprintf(&sb, "  %q: %s%s", field.Name, typeHint, requiredHint)
		if field.Description != "" {
			fmt.Fprintf(&sb, " // %s", field.Description)
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract REAL information from the sources. If information is missing, use empty arrays/strings.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")

	return sb.String()
}

// CompanyProfileSchema returns the schema that turns gathered research material
// into a company profile for one target role.
func CompanyProfileSchema(company, role string) ExtractionSchema {
	return ExtractionSchema{
		Name: "CompanyProfile",
		Description: fmt.Sprintf(`You are a company research analyst. Extract and synthesize company information from web search results into a structured format.
Analyze the following information about %s and create a structured company profile for a %s position.`, company, role),
		Fields: []SchemaField{
			{Name: "name", Description: "Official company name", Required: true},
			{Name: "website", Description: "Company website URL"},
			{Name: "description", Description: "Concise 2-3 sentence company description", Required: true},
			{Name: "industry", Description: "Primary industry/sector"},
			{Name: "techStack", Type: `["string"]`, Description: "Technologies the company uses"},
			{Name: "culture", Description: "Company culture and values (2-3 sentences)"},
			{Name: "recentNews", Type: `["string"]`, Description: "Recent news items"},
			{Name: "jobRequirements", Type: `["string"]`, Description: "Key requirements and skills for the role", Required: true},
		},
	}
}
