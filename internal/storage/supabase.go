package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// defaultSignedURLExpiry applies when URL is called with zero expiry on a
// private bucket.
const defaultSignedURLExpiry = 15 * time.Minute

// SupabaseStorage implements BlobStore against Supabase Storage's
// S3-compatible endpoint. Supabase only supports path-style addressing.
type SupabaseStorage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	publicURL     string
	logger        *slog.Logger
}

// NewSupabaseStorage builds an S3 client for https://<ref>.supabase.co/storage/v1/s3.
func NewSupabaseStorage(cfg SupabaseConfig, logger *slog.Logger) (*SupabaseStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("supabase bucket is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.ProjectRef == "" {
			return nil, fmt.Errorf("supabase project ref is required")
		}
		endpoint = fmt.Sprintf("https://%s.supabase.co/storage/v1/s3", cfg.ProjectRef)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
		// Supabase rejects the SDK's default flexible-checksum trailers.
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" && cfg.PublicBucket && cfg.ProjectRef != "" {
		publicURL = fmt.Sprintf("https://%s.supabase.co/storage/v1/object/public/%s", cfg.ProjectRef, cfg.Bucket)
	}

	logger.Info("initialized supabase storage",
		"bucket", cfg.Bucket,
		"endpoint", endpoint,
		"public_url", publicURL,
	)

	return &SupabaseStorage{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		publicURL:     publicURL,
		logger:        logger,
	}, nil
}

func (s *SupabaseStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if err := validateKey(key); err != nil {
		return opError("Put", key, err)
	}

	if !opts.Overwrite {
		exists, err := s.Exists(ctx, key)
		if err != nil {
			return opError("Put", key, fmt.Errorf("failed to check existence: %w", err))
		}
		if exists {
			return opError("Put", key, ErrKeyExists)
		}
	}

	// The S3 client needs a known length for SigV4 payload hashing on
	// non-seekable bodies, so uploads are buffered up to MaxSize.
	body, err := readLimited(data, opts.MaxSize)
	if err != nil {
		return opError("Put", key, err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = DetectContentType("", key, body)
	}

	result, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return opError("Put", key, wrapS3Error(err))
	}

	s.logger.Debug("stored object in supabase",
		"key", key,
		"etag", aws.ToString(result.ETag),
		"size", len(body),
	)
	return nil
}

func (s *SupabaseStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return nil, ObjectInfo{}, opError("Get", key, err)
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ObjectInfo{}, opError("Get", key, wrapS3Error(err))
	}

	return result.Body, ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(result.ContentLength),
		ContentType:  aws.ToString(result.ContentType),
		LastModified: aws.ToTime(result.LastModified),
		ETag:         aws.ToString(result.ETag),
	}, nil
}

func (s *SupabaseStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return opError("Delete", key, err)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = wrapS3Error(err)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return opError("Delete", key, err)
	}

	s.logger.Debug("deleted object from supabase", "key", key)
	return nil
}

func (s *SupabaseStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := validateKey(key); err != nil {
		return "", opError("URL", key, err)
	}

	if s.publicURL != "" && expires == 0 {
		return s.publicURL + "/" + key, nil
	}

	if expires == 0 {
		expires = defaultSignedURLExpiry
	}

	request, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", opError("URL", key, fmt.Errorf("failed to generate presigned URL: %w", err))
	}
	return request.URL, nil
}

func (s *SupabaseStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, opError("Exists", key, err)
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = wrapS3Error(err)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, opError("Exists", key, err)
	}
	return true, nil
}

// readLimited reads all of r, failing with ErrTooLarge past max (0 = no limit).
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max > 0 {
		r = io.LimitReader(r, max+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if max > 0 && int64(len(body)) > max {
		return nil, ErrTooLarge
	}
	return body, nil
}

// wrapS3Error maps SDK errors onto the package sentinels.
func wrapS3Error(err error) error {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return ErrNotFound
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return ErrNotFound
		case "AccessDenied", "Forbidden":
			return ErrAccessDenied
		}
	}

	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		switch httpErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusForbidden:
			return ErrAccessDenied
		}
	}

	return fmt.Errorf("supabase storage operation failed: %w", err)
}

var _ BlobStore = (*SupabaseStorage)(nil)
