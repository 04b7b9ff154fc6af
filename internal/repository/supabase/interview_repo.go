package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"
	sb "go-interview-intake/pkg/supabase"

	"github.com/google/uuid"
)

type interviewRepository struct {
	client *sb.Client
	table  string
}

// NewInterviewRepository writes interview rows through PostgREST.
func NewInterviewRepository(client *sb.Client, table string) domain.InterviewRepository {
	if table == "" {
		table = "interviews"
	}
	return &interviewRepository{client: client, table: table}
}

type interviewRow struct {
	CandidateName       string   `json:"candidate_name"`
	ProfessionalSummary string   `json:"professional_summary"`
	Transcript          string   `json:"transcript"`
	HardSkills          []string `json:"hard_skills"`
	SoftSkills          []string `json:"soft_skills"`
	Tags                []string `json:"tags"`
	VideoURL            string   `json:"video_url"`
	CVURL               string   `json:"cv_url"`
}

// rowID accepts uuid or integer primary keys.
type rowID string

func (id *rowID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = rowID(n.String())
	return nil
}

type returnedRow struct {
	ID                  rowID      `json:"id"`
	CandidateName       string     `json:"candidate_name"`
	ProfessionalSummary string     `json:"professional_summary"`
	Transcript          string     `json:"transcript"`
	HardSkills          []string   `json:"hard_skills"`
	SoftSkills          []string   `json:"soft_skills"`
	Tags                []string   `json:"tags"`
	VideoURL            string     `json:"video_url"`
	CVURL               string     `json:"cv_url"`
	CreatedAt           *time.Time `json:"created_at"`
}

func (row returnedRow) record() domain.InterviewRecord {
	rec := domain.InterviewRecord{
		CandidateName:       row.CandidateName,
		ProfessionalSummary: row.ProfessionalSummary,
		Transcript:          row.Transcript,
		HardSkills:          row.HardSkills,
		SoftSkills:          row.SoftSkills,
		Tags:                row.Tags,
		VideoURL:            row.VideoURL,
		CVURL:               row.CVURL,
	}
	if id, err := uuid.Parse(string(row.ID)); err == nil {
		rec.ID = id
	}
	if row.CreatedAt != nil {
		rec.CreatedAt = *row.CreatedAt
	}
	return rec
}

func (r *interviewRepository) Save(ctx context.Context, rec *domain.InterviewRecord) error {
	if err := r.client.CheckCredential(); err != nil {
		return CredentialError(err)
	}
	// The table owns its primary key; rec.ID is only a local correlation id.
	body, err := json.Marshal([]interviewRow{{
		CandidateName:       rec.CandidateName,
		ProfessionalSummary: rec.ProfessionalSummary,
		Transcript:          rec.Transcript,
		HardSkills:          rec.HardSkills,
		SoftSkills:          rec.SoftSkills,
		Tags:                rec.Tags,
		VideoURL:            rec.VideoURL,
		CVURL:               rec.CVURL,
	}})
	if err != nil {
		return apperror.Internal(err)
	}

	resp, err := r.client.Do(ctx, http.MethodPost, "/rest/v1/"+r.table, body, map[string]string{
		"Content-Type": "application/json",
		"Prefer":       "return=representation",
	})
	if err != nil {
		return r.dbError("Database Save Failed", err)
	}

	var rows []returnedRow
	if err := json.Unmarshal(resp, &rows); err == nil && len(rows) > 0 {
		saved := rows[0].record()
		if saved.ID != uuid.Nil {
			rec.ID = saved.ID
		}
		rec.CreatedAt = saved.CreatedAt
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (r *interviewRepository) List(ctx context.Context, limit int) ([]domain.InterviewRecord, error) {
	if err := r.client.CheckCredential(); err != nil {
		return nil, CredentialError(err)
	}
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	resp, err := r.client.Do(ctx, http.MethodGet, "/rest/v1/"+r.table+"?"+q.Encode(), nil, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, r.dbError("Database Read Failed", err)
	}

	var rows []returnedRow
	if err := json.Unmarshal(resp, &rows); err != nil {
		return nil, apperror.Database("Database Read Failed: unexpected response", err)
	}
	out := make([]domain.InterviewRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

func (r *interviewRepository) dbError(prefix string, err error) error {
	var apiErr *sb.APIError
	if !errors.As(err, &apiErr) {
		return apperror.Database(fmt.Sprintf("%s: %v", prefix, err), err)
	}
	switch {
	case apiErr.Code == "42P01" || apiErr.Code == "PGRST205":
		return apperror.Configuration(fmt.Sprintf("Table '%s' does not exist. Please run the SQL setup script.", r.table), err)
	case apiErr.Unauthorized():
		return apperror.Auth("Authentication Failed: Invalid API Key.", err)
	default:
		return apperror.Database(fmt.Sprintf("%s: %s", prefix, apiErr.Message), err)
	}
}
