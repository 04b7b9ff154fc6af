package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// UnknownCandidate is used when the candidate never states a name.
	UnknownCandidate = "Unknown Candidate"
	// DefaultRecordingType is assumed when the recorder declares no media type.
	DefaultRecordingType = "video/webm"
)

// Recording is the captured audio/video blob. It is never mutated after capture.
type Recording struct {
	Data       []byte    `json:"-"`
	MediaType  string    `json:"media_type"`
	CapturedAt time.Time `json:"captured_at"`
}

func (r Recording) Empty() bool { return len(r.Data) == 0 }

func (r Recording) Size() int { return len(r.Data) }

// Type returns the declared media type, or DefaultRecordingType.
func (r Recording) Type() string {
	if strings.TrimSpace(r.MediaType) == "" {
		return DefaultRecordingType
	}
	return r.MediaType
}

// Profile is the structured extraction result the candidate edits.
type Profile struct {
	Transcript          string   `json:"transcript"`
	CandidateName       string   `json:"candidateName" validate:"required,max=200,no_emoji"`
	ProfessionalSummary string   `json:"professionalSummary" validate:"max=2000"`
	HardSkills          []string `json:"hardSkills" validate:"no_blank_items,dive,max=100"`
	SoftSkills          []string `json:"softSkills" validate:"no_blank_items,dive,max=100"`
	Tags                []string `json:"tags" validate:"no_blank_items,dive,max=60"`
}

// Clone returns a deep copy so snapshots never share backing arrays.
func (p Profile) Clone() Profile {
	p.HardSkills = cloneList(p.HardSkills)
	p.SoftSkills = cloneList(p.SoftSkills)
	p.Tags = cloneList(p.Tags)
	return p
}

// Normalize makes every field present: nil lists become empty and a blank
// name becomes UnknownCandidate.
func (p Profile) Normalize() Profile {
	p = p.Clone()
	if strings.TrimSpace(p.CandidateName) == "" {
		p.CandidateName = UnknownCandidate
	}
	return p
}

func cloneList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ArtifactKind selects the object name prefix and content type of an upload.
type ArtifactKind string

const (
	ArtifactVideo    ArtifactKind = "videos"
	ArtifactDocument ArtifactKind = "documents"
)

func (k ArtifactKind) ContentType(videoType string) string {
	if k == ArtifactDocument {
		return "application/pdf"
	}
	if videoType == "" {
		return DefaultRecordingType
	}
	return videoType
}

func (k ArtifactKind) Extension(videoType string) string {
	if k == ArtifactDocument {
		return "pdf"
	}
	if strings.Contains(videoType, "mp4") {
		return "mp4"
	}
	return "webm"
}

// ObjectName builds a collision-resistant storage name:
// "{kind}_{unixMillis}_{random}.{ext}".
func (k ArtifactKind) ObjectName(contentType string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s.%s", k, at.UnixMilli(), suffix, k.Extension(contentType))
}

// Photo is a still frame rendered from a Recording.
type Photo struct {
	JPEG      []byte  `json:"-"`
	DataURL   string  `json:"-"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Timestamp float64 `json:"timestamp"`
}

// Document is a synthesized CV.
type Document struct {
	Data     []byte   `json:"-"`
	Pages    int      `json:"pages"`
	Sections []string `json:"sections"`
}

// InterviewRecord is the durable row written once per successful session.
type InterviewRecord struct {
	ID                  uuid.UUID `json:"id"`
	CandidateName       string    `json:"candidate_name"`
	ProfessionalSummary string    `json:"professional_summary"`
	Transcript          string    `json:"transcript"`
	HardSkills          []string  `json:"hard_skills"`
	SoftSkills          []string  `json:"soft_skills"`
	Tags                []string  `json:"tags"`
	VideoURL            string    `json:"video_url"`
	CVURL               string    `json:"cv_url"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewInterviewRecord builds the row for a submitted profile and its artifacts.
func NewInterviewRecord(p Profile, videoURL, cvURL string) *InterviewRecord {
	p = p.Clone()
	return &InterviewRecord{
		ID:                  uuid.New(),
		CandidateName:       p.CandidateName,
		ProfessionalSummary: p.ProfessionalSummary,
		Transcript:          p.Transcript,
		HardSkills:          p.HardSkills,
		SoftSkills:          p.SoftSkills,
		Tags:                p.Tags,
		VideoURL:            videoURL,
		CVURL:               cvURL,
	}
}

// PersistedInterview holds the durable references of a completed save.
type PersistedInterview struct {
	RecordID    uuid.UUID `json:"record_id"`
	VideoURL    string    `json:"video_url"`
	DocumentURL string    `json:"document_url"`
}

// Analyzer turns a Recording into a complete Profile, or fails without one.
type Analyzer interface {
	Analyze(ctx context.Context, rec Recording) (*Profile, error)
}

// FrameCapturer renders a still photo from a Recording at (about) timestamp seconds.
type FrameCapturer interface {
	Capture(ctx context.Context, rec Recording, timestamp float64) (*Photo, error)
}

// DocumentSynthesizer lays out a CV. It performs no I/O.
type DocumentSynthesizer interface {
	Synthesize(p Profile, photo *Photo) (*Document, error)
}

// ArtifactStore uploads binaries and returns a publicly resolvable URL.
type ArtifactStore interface {
	Upload(ctx context.Context, data []byte, kind ArtifactKind, contentType string) (string, error)
}

type InterviewRepository interface {
	Save(ctx context.Context, rec *InterviewRecord) error
	List(ctx context.Context, limit int) ([]InterviewRecord, error)
}

type PersistenceUsecase interface {
	UploadArtifact(ctx context.Context, data []byte, kind ArtifactKind, contentType string) (string, error)
	SaveRecord(ctx context.Context, p Profile, videoURL, documentURL string) (*InterviewRecord, error)
	Persist(ctx context.Context, p Profile, rec Recording, doc *Document) (*PersistedInterview, error)
}

type ExportUsecase interface {
	ExportInterviews(ctx context.Context, limit int) ([]byte, string, error)
}
