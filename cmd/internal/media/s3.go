package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

// Indirection points for tests (no network in unit tests).
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
)

// S3Config holds object storage settings.
//
// PublicBaseURL is the externally reachable prefix for stored objects, for
// example "https://media.example.com" or a MinIO endpoint with the bucket
// path. Object URLs are PublicBaseURL + "/" + key.
type S3Config struct {
	Bucket        string `env:"VIDTUBE_S3_BUCKET"`
	Region        string `env:"VIDTUBE_S3_REGION" envDefault:"us-east-1"`
	BaseEndpoint  string `env:"VIDTUBE_S3_BASE_ENDPOINT"`
	AccessKey     string `env:"VIDTUBE_S3_ACCESS_KEY"`
	SecretKey     string `env:"VIDTUBE_S3_SECRET_KEY"`
	PublicBaseURL string `env:"VIDTUBE_S3_PUBLIC_BASE_URL"`
	KeyPrefix     string `env:"VIDTUBE_S3_KEY_PREFIX" envDefault:"uploads"`
}

// S3ConfigFromEnv parses S3 settings from the process environment.
func S3ConfigFromEnv() (S3Config, error) {
	var cfg S3Config
	if err := env.Parse(&cfg); err != nil {
		return S3Config{}, fmt.Errorf("media: parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports whether the config is complete enough to upload.
func (c S3Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("media: VIDTUBE_S3_BUCKET is required")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		return fmt.Errorf("media: VIDTUBE_S3_PUBLIC_BASE_URL is required")
	}
	return nil
}

// S3Uploader stores files in an S3-compatible bucket.
type S3Uploader struct {
	client *s3.Client
	cfg    S3Config
	now    func() time.Time
}

// NewS3Uploader constructs the uploader. When BaseEndpoint is set the client
// targets it directly (MinIO or another S3-compatible service).
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			// MinIO and most S3-compatible services require path-style
			// addressing.
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{client: client, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Upload stores localPath in the bucket and returns the object's public URL.
// The local file is removed on every path, including failures.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	localPath = strings.TrimSpace(localPath)
	if localPath == "" {
		return "", ErrNoFile
	}
	defer os.Remove(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoFile
		}
		return "", fmt.Errorf("%w: open %s: %v", ErrUpload, filepath.Base(localPath), err)
	}
	defer f.Close()

	key := u.storageKey(localPath)
	contentType := contentTypeFor(localPath)

	_, err = putObject(u.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object: %v", ErrUpload, err)
	}

	return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + key, nil
}

// storageKey builds a date-partitioned random object key that keeps the
// original file extension: <prefix>/<yyyy>/<mm>/<dd>/<uuid><ext>.
func (u *S3Uploader) storageKey(localPath string) string {
	d := u.now()
	ext := strings.ToLower(filepath.Ext(localPath))
	name := uuid.NewString() + ext
	return path.Join(u.cfg.KeyPrefix, fmt.Sprintf("%04d/%02d/%02d", d.Year(), d.Month(), d.Day()), name)
}

func contentTypeFor(localPath string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(localPath))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
