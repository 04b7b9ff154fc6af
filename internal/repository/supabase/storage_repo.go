package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-interview-intake/internal/domain"
	"go-interview-intake/pkg/apperror"
	sb "go-interview-intake/pkg/supabase"
)

type storageRepository struct {
	client       *sb.Client
	bucket       string
	cacheSeconds int
	now          func() time.Time
}

// NewStorageRepository uploads every artifact kind into one bucket,
// distinguished by object name prefix.
func NewStorageRepository(client *sb.Client, bucket string, cacheSeconds int) domain.ArtifactStore {
	if bucket == "" {
		bucket = "videos"
	}
	if cacheSeconds <= 0 {
		cacheSeconds = 3600
	}
	return &storageRepository{client: client, bucket: bucket, cacheSeconds: cacheSeconds, now: time.Now}
}

func (r *storageRepository) Upload(ctx context.Context, data []byte, kind domain.ArtifactKind, contentType string) (string, error) {
	if err := r.client.CheckCredential(); err != nil {
		return "", CredentialError(err)
	}
	contentType = kind.ContentType(contentType)
	name := kind.ObjectName(contentType, r.now())

	_, err := r.client.Do(ctx, http.MethodPost, fmt.Sprintf("/storage/v1/object/%s/%s", r.bucket, name), data, map[string]string{
		"Content-Type":  contentType,
		"Cache-Control": "max-age=" + strconv.Itoa(r.cacheSeconds),
		"x-upsert":      "false",
	})
	if err != nil {
		return "", r.uploadError(kind, err)
	}
	return r.client.PublicObjectURL(r.bucket, name), nil
}

func (r *storageRepository) uploadError(kind domain.ArtifactKind, err error) error {
	var apiErr *sb.APIError
	if !errors.As(err, &apiErr) {
		return apperror.Upload(fmt.Sprintf("%s Upload Failed: %v", kind, err), err)
	}
	switch {
	case strings.Contains(strings.ToLower(apiErr.Message), "bucket not found"),
		strings.EqualFold(apiErr.Code, "Bucket not found"), strings.EqualFold(apiErr.Code, "NoSuchBucket"):
		return apperror.Configuration(fmt.Sprintf("Storage bucket '%s' does not exist. Please run the SQL setup script.", r.bucket), err)
	case apiErr.Unauthorized():
		return apperror.Auth("Authentication Failed: Invalid API Key. Please check your Supabase credentials.", err)
	default:
		return apperror.Upload(fmt.Sprintf("%s Upload Failed: %s", kind, apiErr.Message), err)
	}
}

// CredentialError maps a failed key check to a ConfigurationError.
func CredentialError(err error) error {
	if errors.Is(err, sb.ErrCredentialMalformed) {
		return apperror.Configuration("Configuration Error: You are using a Personal Access Token or an unrecognised key. Please use the project 'anon' public key found in Supabase Project Settings > API.", err)
	}
	return apperror.Configuration("Supabase API Key is missing. Please set SUPABASE_KEY.", err)
}
