package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"
	"go-interview-intake/pkg/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ObjectPutter is the slice of the S3 API the repository needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type artifactRepository struct {
	client       ObjectPutter
	cfg          storage.S3ClientConfig
	cacheSeconds int
	now          func() time.Time
}

func NewArtifactRepository(client ObjectPutter, cfg storage.S3ClientConfig, cacheSeconds int) domain.ArtifactStore {
	if cacheSeconds <= 0 {
		cacheSeconds = 3600
	}
	return &artifactRepository{client: client, cfg: cfg, cacheSeconds: cacheSeconds, now: time.Now}
}

func (r *artifactRepository) Upload(ctx context.Context, data []byte, kind domain.ArtifactKind, contentType string) (string, error) {
	if err := r.cfg.Validate(); err != nil {
		return "", apperror.Configuration("Storage is not configured: "+err.Error(), err)
	}
	contentType = kind.ContentType(contentType)
	key := kind.ObjectName(contentType, r.now())

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=" + strconv.Itoa(r.cacheSeconds)),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		return "", r.uploadError(kind, err)
	}
	return r.cfg.PublicURL(key), nil
}

func (r *artifactRepository) uploadError(kind domain.ArtifactKind, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return apperror.Upload(fmt.Sprintf("%s Upload Failed: %v", kind, err), err)
	}
	switch apiErr.ErrorCode() {
	case "NoSuchBucket":
		return apperror.Configuration(fmt.Sprintf("Storage bucket '%s' does not exist. Please create it first.", r.cfg.Bucket), err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "Forbidden":
		return apperror.Auth("Authentication Failed: storage rejected the configured credentials.", err)
	}
	msg := apiErr.ErrorMessage()
	if strings.TrimSpace(msg) == "" {
		msg = apiErr.ErrorCode()
	}
	return apperror.Upload(fmt.Sprintf("%s Upload Failed: %s", kind, msg), err)
}
