// Package blob resolves profile picture references stored in R2 into
// short-lived download URLs.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ProfilePicturePrefix is the key prefix for all profile pictures.
const ProfilePicturePrefix = "profile-pictures/"

// Picture file extensions by MIME type.
var pictureExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Errors
var (
	ErrInvalidKey      = errors.New("invalid object key")
	ErrUnsupportedType = errors.New("unsupported content type")
)

// PresignedURL is a time-limited GET URL for an object.
type PresignedURL struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ServiceConfig holds configuration for the blob service.
type ServiceConfig struct {
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	URLExpiry       time.Duration // Default: 15 minutes
}

// Service presigns R2 object downloads.
type Service struct {
	presignClient *s3.PresignClient
	bucketName    string
	urlExpiry     time.Duration
	timeNow       func() time.Time
}

// NewService creates a blob service for an R2 (S3-compatible) bucket.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 15 * time.Minute
	}

	client := s3.New(s3.Options{
		Region: "auto", // R2 uses auto region
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true, // R2 requires path-style addressing
	})

	return &Service{
		presignClient: s3.NewPresignClient(client),
		bucketName:    cfg.BucketName,
		urlExpiry:     cfg.URLExpiry,
		timeNow:       time.Now,
	}, nil
}

// ValidateKey checks that key names a profile picture object.
func ValidateKey(key string) error {
	rest, ok := strings.CutPrefix(key, ProfilePicturePrefix)
	if !ok || rest == "" {
		return fmt.Errorf("%w: must start with %q", ErrInvalidKey, ProfilePicturePrefix)
	}
	for _, part := range strings.Split(rest, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: bad path segment", ErrInvalidKey)
		}
		if sanitizePathComponent(part) != part {
			return fmt.Errorf("%w: disallowed characters", ErrInvalidKey)
		}
	}
	return nil
}

// ProfilePictureKey returns a new object key for a picture owned by profileID.
// Pattern: profile-pictures/{profileID}/{uuid}.{ext}
func ProfilePictureKey(profileID, contentType string) (string, error) {
	ext, ok := pictureExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	owner := sanitizePathComponent(profileID)
	if owner == "" {
		return "", fmt.Errorf("%w: empty profile id", ErrInvalidKey)
	}
	return ProfilePicturePrefix + owner + "/" + uuid.NewString() + ext, nil
}

// sanitizePathComponent keeps alphanumerics, hyphens, underscores and dots.
func sanitizePathComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PresignGet returns a time-limited download URL for key.
func (s *Service) PresignGet(ctx context.Context, key string) (*PresignedURL, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign request: %w", err)
	}

	return &PresignedURL{
		URL:       req.URL,
		Key:       key,
		ExpiresAt: s.timeNow().Add(s.urlExpiry),
	}, nil
}
