package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// ResumeContent is the content column: the final data and the research it was tailored to
type ResumeContent struct {
	ResumeData      *types.ResumeData      `json:"resumeData"`
	CompanyResearch *types.ResearchProfile `json:"companyResearch"`
}

// ATSFeedback is the ats_feedback column
type ATSFeedback struct {
	Feedback     []string `json:"feedback"`
	Improvements []string `json:"improvements"`
}

// OptimizedResume is one row of optimized_resumes
type OptimizedResume struct {
	ID                 uuid.UUID          `json:"id"`
	UserID             uuid.UUID          `json:"userId"`
	Title              string             `json:"title"`
	Content            ResumeContent      `json:"content"`
	FileKey            string             `json:"-"`
	FileURL            string             `json:"fileUrl,omitempty"`
	ATSScore           int                `json:"atsScore"`
	ATSFeedback        ATSFeedback        `json:"atsFeedback"`
	GenerationAttempts int                `json:"generationAttempts"`
	TemplateUsed       string             `json:"templateUsed"`
	LatexSource        map[string]string  `json:"latexSource,omitempty"`
	CompanyName        string             `json:"companyName"`
	RoleTarget         string             `json:"roleTarget"`
	IterationCount     int                `json:"iterationCount"`
	OriginalFilename   string             `json:"originalFilename,omitempty"`
	ScoreHistory       []types.ScoreEntry `json:"scoreHistory"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// ResumeSummary is the list view of an optimized resume
type ResumeSummary struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	CompanyName  string    `json:"companyName"`
	RoleTarget   string    `json:"roleTarget"`
	ATSScore     int       `json:"atsScore"`
	TemplateUsed string    `json:"templateUsed"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ResumeCreateInput holds the fields written when a run finishes
type ResumeCreateInput struct {
	UserID           uuid.UUID
	CompanyName      string
	RoleTarget       string
	Content          ResumeContent
	FileKey          string
	FileURL          string
	ATSScore         int
	ATSFeedback      ATSFeedback
	Attempts         int
	TemplateUsed     string
	LatexSource      map[string]string
	OriginalFilename string
	ScoreHistory     []types.ScoreEntry
}

// Title is the display title of the resume: "{role} at {company}"
func (in *ResumeCreateInput) Title() string {
	return fmt.Sprintf("%s at %s", in.RoleTarget, in.CompanyName)
}

// DefaultListLimit caps ListResumes when no limit is given
const DefaultListLimit = 50
