// Package s3 implements a handler for s3://bucket/key locators on AWS S3 or
// any S3-compatible service.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"

	"github.com/marmos91/dittoio/internal/bytesize"
	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/handler"
)

// Name is the handler name recorded on transfers.
const Name = "s3"

// Scheme is the locator scheme served by this handler.
const Scheme = "s3"

// Config holds the S3 client settings.
type Config struct {
	// Region is the AWS region (optional, uses SDK default if empty).
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ForcePathStyle forces path-style addressing (required for Localstack/MinIO).
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// AccessKeyID and SecretAccessKey set static credentials. When empty the
	// default credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`

	// MaxRetries overrides the SDK retry count when positive.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// MaxSize rejects objects larger than this. Zero disables the limit.
	MaxSize bytesize.ByteSize `mapstructure:"max_size" yaml:"max_size,omitempty"`
}

// API is the subset of the S3 client used by the handler.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Handler transfers objects to and from S3.
type Handler struct {
	client  API
	local   billy.Filesystem
	maxSize bytesize.ByteSize
}

var _ handler.Writer = (*Handler)(nil)

// New returns a handler using an existing client. A nil local filesystem
// selects the host filesystem.
func New(client API, local billy.Filesystem) *Handler {
	if local == nil {
		local = handler.LocalFS()
	}
	return &Handler{client: client, local: local}
}

// NewFromConfig builds an S3 client from cfg and returns a handler on it.
func NewFromConfig(ctx context.Context, cfg Config) (*Handler, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	h := New(client, nil)
	h.SetMaxSize(cfg.MaxSize)
	return h, nil
}

// SetMaxSize limits the size of downloaded objects. Zero disables the limit.
func (h *Handler) SetMaxSize(max bytesize.ByteSize) { h.maxSize = max }

func (h *Handler) Name() string { return Name }

// StageRead downloads the object named by source into destination.
func (h *Handler) StageRead(ctx context.Context, source, destination string) error {
	bucket, key, err := ParseLocator(source)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return fmt.Errorf("%w: %s", handler.ErrSourceNotFound, source)
		}
		return fmt.Errorf("s3 get object: %w", err)
	}
	defer resp.Body.Close()

	if err := handler.CheckSize(aws.ToInt64(resp.ContentLength), h.maxSize); err != nil {
		return fmt.Errorf("s3 get object %s: %w", source, err)
	}

	body := handler.LimitReader(resp.Body, h.maxSize)
	n, err := handler.WriteAtomic(ctx, h.local, filepath.Clean(destination), body)
	if err != nil {
		return err
	}

	logger.DebugCtx(ctx, "Downloaded object",
		logger.Handler(Name),
		logger.Bucket(bucket),
		logger.Key(key),
		logger.Destination(destination),
		logger.Size(n),
		logger.DurationMs(time.Since(start)))
	return nil
}

// StageWrite uploads the local file source to the object named by destination.
func (h *Handler) StageWrite(ctx context.Context, source, destination string) error {
	bucket, key, err := ParseLocator(destination)
	if err != nil {
		return err
	}

	start := time.Now()
	f, info, err := handler.OpenSource(h.local, filepath.Clean(source))
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectReader(f); err == nil {
		contentType = mt.String()
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", source, err)
	}

	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}

	logger.DebugCtx(ctx, "Uploaded object",
		logger.Handler(Name),
		logger.Path(source),
		logger.Bucket(bucket),
		logger.Key(key),
		logger.Size(info.Size()),
		logger.DurationMs(time.Since(start)))
	return nil
}

// ParseLocator splits "s3://bucket/key" into its bucket and key.
func ParseLocator(locator string) (bucket, key string, err error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", handler.ErrInvalidLocator, err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return "", "", fmt.Errorf("%w: %q", handler.ErrUnsupportedScheme, u.Scheme)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: want s3://bucket/key, got %q", handler.ErrInvalidLocator, locator)
	}
	return bucket, key, nil
}

func isNotFoundError(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "NoSuchKey") ||
		strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "StatusCode: 404")
}
