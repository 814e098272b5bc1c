package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/storage"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// PersistRequest is everything a finished run stores
type PersistRequest struct {
	UserID           string
	Company          string
	Role             string
	Template         string
	OriginalFilename string
	ResumeData       *types.ResumeData
	Profile          *types.ResearchProfile
	Files            []types.MarkupFile
	Document         []byte
	ATS              *types.ATSResult
	Attempts         int
	ScoreHistory     []types.ScoreEntry
}

// PersistResult identifies the stored resume
type PersistResult struct {
	ResumeID string
	// DownloadReference is a URL or a path the resume can be fetched from
	DownloadReference string
}

// ResumeRepository stores optimized resume rows; *db.DB implements it
type ResumeRepository interface {
	SaveResume(ctx context.Context, in *db.ResumeCreateInput) (*db.OptimizedResume, error)
}

// anonymousUser owns objects stored without a user, as in CLI runs
const anonymousUser = "local"

// StorePersister uploads the PDF to a Store and, when a repository is set, records
// the run in it
type StorePersister struct {
	store storage.Store
	repo  ResumeRepository
	now   func() time.Time
}

// NewStorePersister creates a persister. repo may be nil.
func NewStorePersister(store storage.Store, repo ResumeRepository) *StorePersister {
	return &StorePersister{store: store, repo: repo, now: time.Now}
}

// Persist implements Persister
func (p *StorePersister) Persist(ctx context.Context, req *PersistRequest) (*PersistResult, error) {
	if len(req.Document) == 0 {
		return nil, &PersistenceError{Message: "no document to store"}
	}

	var userID uuid.UUID
	owner := anonymousUser
	if p.repo != nil {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			return nil, &PersistenceError{Message: "a valid user id is required", Cause: err}
		}
		userID = id
		owner = id.String()
	}

	key := storage.ObjectKey(owner, req.Company, req.Role, p.now())
	if err := p.store.Put(ctx, key, req.Document); err != nil {
		return nil, &PersistenceError{Message: "failed to upload PDF", Cause: err}
	}
	url, err := p.store.URL(ctx, key)
	if err != nil {
		p.discard(ctx, key)
		return nil, &PersistenceError{Message: "failed to resolve download URL", Cause: err}
	}

	if p.repo == nil {
		ref := url
		if ref == "" {
			ref = key
		}
		return &PersistResult{ResumeID: uuid.NewString(), DownloadReference: ref}, nil
	}

	ats := req.ATS
	if ats == nil {
		ats = &types.ATSResult{}
	}
	saved, err := p.repo.SaveResume(ctx, &db.ResumeCreateInput{
		UserID:           userID,
		CompanyName:      req.Company,
		RoleTarget:       req.Role,
		Content:          db.ResumeContent{ResumeData: req.ResumeData, CompanyResearch: req.Profile},
		FileKey:          key,
		FileURL:          url,
		ATSScore:         ats.Score,
		ATSFeedback:      db.ATSFeedback{Feedback: ats.Feedback, Improvements: ats.Improvements},
		Attempts:         req.Attempts,
		TemplateUsed:     req.Template,
		LatexSource:      types.FilesToMap(req.Files),
		OriginalFilename: req.OriginalFilename,
		ScoreHistory:     req.ScoreHistory,
	})
	if err != nil {
		p.discard(ctx, key)
		return nil, &PersistenceError{Message: "failed to save resume record", Cause: err}
	}

	ref := url
	if ref == "" {
		ref = fmt.Sprintf("/resumes/%s/pdf", saved.ID)
	}
	return &PersistResult{ResumeID: saved.ID.String(), DownloadReference: ref}, nil
}

// discard removes an uploaded object that no record will point to
func (p *StorePersister) discard(ctx context.Context, key string) {
	if err := p.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.Printf("[persist] failed to remove orphaned object %s: %v", key, err)
	}
}
