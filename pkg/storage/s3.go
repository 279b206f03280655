package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/noah-isme/vapor-share-api/pkg/config"
)

// s3API is the subset of the S3 client used by S3Store.
type s3API interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*presignedRequest, error)
}

type presignedRequest struct {
	URL string
}

type presignClientAdapter struct {
	client *s3.PresignClient
}

func (p presignClientAdapter) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*presignedRequest, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &presignedRequest{URL: req.URL}, nil
}

// S3Store keeps blobs in an S3-compatible bucket. Download URLs are either presigned for
// the retention window or built from a public base URL.
type S3Store struct {
	bucket        string
	publicBaseURL string
	urlTTL        time.Duration

	client    s3API
	uploader  s3Uploader
	presigner s3Presigner
}

// NewS3Store loads AWS configuration and returns an S3-backed BlobStore.
func NewS3Store(ctx context.Context, cfg config.S3Config, urlTTL time.Duration, httpClient *http.Client) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if httpClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(httpClient))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	// Presigned URLs cannot outlive seven days.
	if urlTTL <= 0 || urlTTL > 7*24*time.Hour {
		urlTTL = 7 * 24 * time.Hour
	}

	return &S3Store{
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		urlTTL:        urlTTL,
		client:        client,
		uploader:      manager.NewUploader(client),
		presigner:     presignClientAdapter{client: s3.NewPresignClient(client)},
	}, nil
}

// Provider implements BlobStore.
func (s *S3Store) Provider() string { return config.BlobProviderS3 }

// Put streams the body with the multipart upload manager.
func (s *S3Store) Put(ctx context.Context, in PutInput) (Object, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(in.Key),
		Body:   in.Body,
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}
	if in.Filename != "" {
		input.ContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", in.Filename))
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return Object{}, fmt.Errorf("s3 upload %s: %w", in.Key, err)
	}

	downloadURL, err := s.url(ctx, in.Key)
	if err != nil {
		_ = s.Delete(ctx, in.Key)
		return Object{}, err
	}
	return Object{ID: in.Key, URL: downloadURL}, nil
}

// Delete removes the object. S3 does not report absent keys on delete; a NoSuchKey from
// compatible stores is treated as success.
func (s *S3Store) Delete(ctx context.Context, objectID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectID),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil
		}
		return fmt.Errorf("s3 delete %s: %w", objectID, err)
	}
	return nil
}

func (s *S3Store) url(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		segments := strings.Split(key, "/")
		for i, seg := range segments {
			segments[i] = url.PathEscape(seg)
		}
		return s.publicBaseURL + "/" + strings.Join(segments, "/"), nil
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return req.URL, nil
}
