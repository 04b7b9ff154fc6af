package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type interviewRepository struct {
	db    *pgxpool.Pool
	table string
}

// NewInterviewRepository writes interview rows over a direct Postgres connection.
func NewInterviewRepository(db *pgxpool.Pool, table string) domain.InterviewRepository {
	if table == "" {
		table = "interviews"
	}
	return &interviewRepository{db: db, table: table}
}

func (r *interviewRepository) Save(ctx context.Context, rec *domain.InterviewRecord) error {
	if r.db == nil {
		return apperror.Configuration("Database is not configured. Please set DATABASE_URL.", nil)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, candidate_name, professional_summary, transcript,
			hard_skills, soft_skills, tags, video_url, cv_url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at`, pgIdent(r.table))

	err := r.db.QueryRow(ctx, query,
		rec.ID, rec.CandidateName, rec.ProfessionalSummary, rec.Transcript,
		pq.Array(rec.HardSkills), pq.Array(rec.SoftSkills), pq.Array(rec.Tags),
		rec.VideoURL, rec.CVURL,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return MapError(r.table, "Database Save Failed", err)
	}
	return nil
}

func (r *interviewRepository) List(ctx context.Context, limit int) ([]domain.InterviewRecord, error) {
	if r.db == nil {
		return nil, apperror.Configuration("Database is not configured. Please set DATABASE_URL.", nil)
	}
	if limit <= 0 {
		limit = 1000
	}
	query := fmt.Sprintf(`
		SELECT id, candidate_name, COALESCE(professional_summary, ''), COALESCE(transcript, ''),
			hard_skills, soft_skills, tags, COALESCE(video_url, ''), COALESCE(cv_url, ''), created_at
		FROM %s ORDER BY created_at DESC LIMIT $1`, pgIdent(r.table))

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, MapError(r.table, "Database Read Failed", err)
	}
	defer rows.Close()

	var out []domain.InterviewRecord
	for rows.Next() {
		var rec domain.InterviewRecord
		var hard, soft, tags []string
		if err := rows.Scan(
			&rec.ID, &rec.CandidateName, &rec.ProfessionalSummary, &rec.Transcript,
			pq.Array(&hard), pq.Array(&soft), pq.Array(&tags),
			&rec.VideoURL, &rec.CVURL, &rec.CreatedAt,
		); err != nil {
			return nil, MapError(r.table, "Database Read Failed", err)
		}
		rec.HardSkills, rec.SoftSkills, rec.Tags = hard, soft, tags
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(r.table, "Database Read Failed", err)
	}
	return out, nil
}

// MapError classifies Postgres failures the same way the PostgREST path does.
func MapError(table, prefix string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01":
			return apperror.Configuration(fmt.Sprintf("Table '%s' does not exist. Please run the SQL setup script.", table), err)
		case "28P01", "28000", "42501":
			return apperror.Auth("Authentication Failed: the database rejected the configured credentials.", err)
		}
		return apperror.Database(fmt.Sprintf("%s: %s", prefix, pgErr.Message), err)
	}
	return apperror.Database(fmt.Sprintf("%s: %v", prefix, err), err)
}

func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
