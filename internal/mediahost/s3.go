package mediahost

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/viewtube/viewtube/internal/config"
)

// s3API is the subset of the S3 client used by S3Host. Narrowed to an
// interface so tests can substitute a fake without a live object store.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Host stores media objects in an S3-compatible bucket. The object key
// doubles as the asset's PublicID.
type S3Host struct {
	client        s3API
	bucket        string
	publicBaseURL string
}

// NewS3Host builds an S3 client from static credentials in the media config.
// A non-empty S3Endpoint switches to a MinIO-style custom endpoint.
func NewS3Host(ctx context.Context, cfg config.MediaConfig) (*S3Host, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			// MinIO requires path-style addressing.
			o.UsePathStyle = true
		}
	})

	return &S3Host{
		client:        client,
		bucket:        cfg.S3Bucket,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload writes the content to the bucket under a date-partitioned random key
// and returns the public URL plus the key as PublicID.
func (h *S3Host) Upload(ctx context.Context, folder, filename string, content io.Reader, contentType string) (*Asset, error) {
	// Derive the extension from the validated MIME type; the client-supplied
	// filename is only a fallback for types outside the image allow-list.
	ext, ok := MimeToExtension[contentType]
	if !ok {
		ext = path.Ext(filename)
	}

	now := time.Now().UTC()
	key := path.Join(folder, now.Format("2006/01"), uuid.NewString()+ext)

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        content,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("putting object %s: %w", key, err)
	}

	return &Asset{
		URL:      h.publicBaseURL + "/" + key,
		PublicID: key,
	}, nil
}

// Delete removes an object by its PublicID (object key).
func (h *S3Host) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}

	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s: %w", publicID, err)
	}

	return nil
}
