// Package types provides type definitions for structured data used throughout the resume-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"github.com/go-playground/validator/v10"
)

// ResumeData is the canonical structured resume produced and improved by the generator.
type ResumeData struct {
	Contact    Contact      `json:"contact" validate:"required"`
	Summary    string       `json:"summary"`
	Experience []Experience `json:"experience" validate:"dive"`
	Skills     Skills       `json:"skills"`
	Education  []Education  `json:"education" validate:"dive"`
	Projects   []Project    `json:"projects" validate:"dive"`
}

// Contact holds the header information of a resume
type Contact struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	LinkedIn  string `json:"linkedin,omitempty"`
	GitHub    string `json:"github,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
}

// Experience is one position held, achievements in display order
type Experience struct {
	Company      string   `json:"company" validate:"required"`
	Position     string   `json:"position" validate:"required"`
	Location     string   `json:"location"`
	Duration     string   `json:"duration"`
	Achievements []string `json:"achievements"`
}

// Skills groups skills by kind
type Skills struct {
	Technical []string `json:"technical"`
	Tools     []string `json:"tools"`
	Languages []string `json:"languages,omitempty"`
}

// Education is one degree entry
type Education struct {
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	Institution string `json:"institution" validate:"required"`
	Location    string `json:"location"`
	Year        string `json:"year"`
	GPA         string `json:"gpa,omitempty"`
}

// Project is a side or portfolio project. Technologies is a free-form comma separated string.
type Project struct {
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	Technologies string   `json:"technologies"`
	Link         string   `json:"link,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

// Validate checks the required substructures of ResumeData.
func (r *ResumeData) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// HasSkills reports whether any skill group is non-empty
func (s Skills) HasSkills() bool {
	return len(s.Technical) > 0 || len(s.Tools) > 0 || len(s.Languages) > 0
}
