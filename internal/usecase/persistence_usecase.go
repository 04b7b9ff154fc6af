package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"
	"go-interview-intake/pkg/logger"
	"go-interview-intake/pkg/security"

	"golang.org/x/sync/errgroup"
)

type persistenceUsecase struct {
	store domain.ArtifactStore
	repo  domain.InterviewRepository
	log   *slog.Logger
}

func NewPersistenceUsecase(store domain.ArtifactStore, repo domain.InterviewRepository, log *slog.Logger) domain.PersistenceUsecase {
	return &persistenceUsecase{store: store, repo: repo, log: logger.Or(log)}
}

func (u *persistenceUsecase) UploadArtifact(ctx context.Context, data []byte, kind domain.ArtifactKind, contentType string) (string, error) {
	var err error
	switch kind {
	case domain.ArtifactDocument:
		err = security.ValidateDocument(data)
	case domain.ArtifactVideo:
		err = security.ValidateRecording(data)
	default:
		err = fmt.Errorf("unknown artifact kind %q", kind)
	}
	if err != nil {
		return "", apperror.Validation(fmt.Sprintf("%s Upload Failed: %v", kind, err), err)
	}
	return u.store.Upload(ctx, data, kind, contentType)
}

func (u *persistenceUsecase) SaveRecord(ctx context.Context, p domain.Profile, videoURL, documentURL string) (*domain.InterviewRecord, error) {
	rec := domain.NewInterviewRecord(p, videoURL, documentURL)
	if err := u.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Persist uploads the recording and the document concurrently and writes the
// record only when both uploads succeeded. Uploads that did succeed are not
// rolled back.
func (u *persistenceUsecase) Persist(ctx context.Context, p domain.Profile, rec domain.Recording, doc *domain.Document) (*domain.PersistedInterview, error) {
	if doc == nil {
		return nil, apperror.Validation("documents Upload Failed: no document to upload", nil)
	}

	var (
		g                errgroup.Group
		videoURL, docURL string
		videoErr, docErr error
	)
	g.Go(func() error {
		videoURL, videoErr = u.UploadArtifact(ctx, rec.Data, domain.ArtifactVideo, rec.Type())
		return videoErr
	})
	g.Go(func() error {
		docURL, docErr = u.UploadArtifact(ctx, doc.Data, domain.ArtifactDocument, "application/pdf")
		return docErr
	})
	_ = g.Wait()

	if err := combineUploadErrors(videoErr, docErr); err != nil {
		if videoURL != "" || docURL != "" {
			u.log.Warn("persist: partial upload left orphaned artifact", "video_url", videoURL, "document_url", docURL)
		}
		return nil, err
	}

	saved, err := u.SaveRecord(ctx, p, videoURL, docURL)
	if err != nil {
		u.log.Warn("persist: record write failed after uploads", "error", err, "kind", apperror.KindOf(err))
		return nil, err
	}
	return &domain.PersistedInterview{RecordID: saved.ID, VideoURL: videoURL, DocumentURL: docURL}, nil
}

// combineUploadErrors folds upload failures into one UploadError. The
// underlying errors stay in the chain, so IsKind still finds a
// ConfigurationError or AuthError behind it.
func combineUploadErrors(errs ...error) error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	msgs := make([]string, len(failed))
	for i, err := range failed {
		msgs[i] = err.Error()
	}
	return apperror.Upload(strings.Join(msgs, "; "), errors.Join(failed...))
}
