package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobConfig holds construction parameters for the attachment bucket.
type BlobConfig struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; S3-compatible endpoint such as MinIO
	AccessKeyID     string // optional, falls back to the default credentials chain
	SecretAccessKey string
	PathStyle       bool
	PublicBaseURL   string // optional; prefix for returned object URLs
}

// UploadedFile describes an object after upload.
type UploadedFile struct {
	URL  string
	Name string
	Type string
	Size int64
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Blobs uploads attachments to an S3-compatible bucket.
type Blobs struct {
	client  objectPutter
	bucket  string
	baseURL string
}

// NewBlobs creates an S3 blob store from cfg.
func NewBlobs(ctx context.Context, cfg BlobConfig) (*Blobs, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newBlobs(client, cfg.Bucket, publicBase(cfg, region)), nil
}

func newBlobs(client objectPutter, bucket, baseURL string) *Blobs {
	return &Blobs{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func publicBase(cfg BlobConfig, region string) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL
	}
	if cfg.Endpoint != "" {
		if u, err := url.Parse(cfg.Endpoint); err == nil {
			u.Path = path.Join(u.Path, cfg.Bucket)
			return u.String()
		}
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

// Upload stores the object under key and returns its public location.
func (b *Blobs) Upload(ctx context.Context, key, name, contentType string, size int64, r io.Reader) (UploadedFile, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return UploadedFile{}, fmt.Errorf("upload %s: %w", key, err)
	}
	return UploadedFile{
		URL:  b.objectURL(key),
		Name: name,
		Type: contentType,
		Size: size,
	}, nil
}

func (b *Blobs) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.baseURL + "/" + strings.Join(segments, "/")
}
