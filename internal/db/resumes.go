package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveResume inserts an optimized resume and returns the stored row
func (db *DB) SaveResume(ctx context.Context, in *ResumeCreateInput) (*OptimizedResume, error) {
	if in.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}

	content, err := json.Marshal(in.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content: %w", err)
	}
	feedback, err := json.Marshal(in.ATSFeedback)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feedback: %w", err)
	}
	latex, err := json.Marshal(nonNilMap(in.LatexSource))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal latex source: %w", err)
	}
	history, err := json.Marshal(in.ScoreHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score history: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO optimized_resumes (
			user_id, title, content, file_key, file_url, ats_score, ats_feedback,
			generation_attempts, template_used, latex_source, company_name, role_target,
			iteration_count, original_filename, score_history)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+resumeColumns,
		in.UserID, in.Title(), content, in.FileKey, in.FileURL, in.ATSScore, feedback,
		in.Attempts, in.TemplateUsed, latex, in.CompanyName, in.RoleTarget,
		in.Attempts, in.OriginalFilename, history,
	)
	resume, err := scanResume(row)
	if err != nil {
		return nil, fmt.Errorf("failed to save resume: %w", err)
	}
	return resume, nil
}

// GetResume returns one of userID's resumes, or nil when it does not exist or
// belongs to someone else
func (db *DB) GetResume(ctx context.Context, id, userID uuid.UUID) (*OptimizedResume, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM optimized_resumes WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	resume, err := scanResume(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return resume, nil
}

// ListResumes returns userID's resumes, newest first
func (db *DB) ListResumes(ctx context.Context, userID uuid.UUID, limit int) ([]ResumeSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, company_name, role_target, ats_score, template_used, created_at
		 FROM optimized_resumes WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	summaries := []ResumeSummary{}
	for rows.Next() {
		var s ResumeSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.CompanyName, &s.RoleTarget, &s.ATSScore, &s.TemplateUsed, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	return summaries, nil
}

// DeleteResume removes one of userID's resumes and reports whether it existed
func (db *DB) DeleteResume(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM optimized_resumes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete resume: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const resumeColumns = `id, user_id, title, content, file_key, file_url, ats_score, ats_feedback,
	generation_attempts, template_used, latex_source, company_name, role_target,
	iteration_count, original_filename, score_history, created_at, updated_at`

func scanResume(row pgx.Row) (*OptimizedResume, error) {
	var r OptimizedResume
	var content, feedback, latex, history []byte
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &content, &r.FileKey, &r.FileURL, &r.ATSScore, &feedback,
		&r.GenerationAttempts, &r.TemplateUsed, &latex, &r.CompanyName, &r.RoleTarget,
		&r.IterationCount, &r.OriginalFilename, &history, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeColumns(&r, content, feedback, latex, history); err != nil {
		return nil, err
	}
	return &r, nil
}

func decodeColumns(r *OptimizedResume, content, feedback, latex, history []byte) error {
	if err := json.Unmarshal(content, &r.Content); err != nil {
		return fmt.Errorf("failed to decode content: %w", err)
	}
	if err := json.Unmarshal(feedback, &r.ATSFeedback); err != nil {
		return fmt.Errorf("failed to decode ats feedback: %w", err)
	}
	if err := json.Unmarshal(latex, &r.LatexSource); err != nil {
		return fmt.Errorf("failed to decode latex source: %w", err)
	}
	if err := json.Unmarshal(history, &r.ScoreHistory); err != nil {
		return fmt.Errorf("failed to decode score history: %w", err)
	}
	return nil
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
