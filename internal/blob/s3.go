// Package blob archives exported journals to an S3-compatible bucket
// (AWS S3 or MinIO).
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OCAP2/dockyard/internal/config"
	"github.com/OCAP2/dockyard/internal/storage"
)

var (
	ErrNoBucket = errors.New("s3 bucket required")
	ErrNoExport = errors.New("backend has no exported file")
)

// Option adjusts client construction.
type Option func(*s3.Options)

// WithHTTPClient routes requests through c.
func WithHTTPClient(c *http.Client) Option {
	return func(o *s3.Options) { o.HTTPClient = c }
}

// Info describes an uploaded journal.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	Metadata     map[string]string
	LastModified time.Time
}

// Uploader puts exported journals into a single bucket under a key prefix.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an uploader from the journal upload settings. Static
// credentials are used when both keys are set, otherwise the default
// AWS credential chain applies.
func New(ctx context.Context, cfg config.S3Config, opts ...Option) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, opt := range opts {
			opt(o)
		}
	})
	return &Uploader{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Key is the object key for an export of the given session.
func (u *Uploader) Key(sessionUUID, filePath string) string {
	name := filepath.Base(filePath)
	if sessionUUID == "" {
		return u.prefix + name
	}
	return u.prefix + path.Join(sessionUUID, name)
}

// Upload puts the file at filePath and tags it with the session metadata.
func (u *Uploader) Upload(ctx context.Context, filePath string, meta storage.UploadMetadata) (Info, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return Info{}, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	key := u.Key(meta.SessionUUID, filePath)
	ct := contentType(filePath)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &key,
		Body:        f,
		ContentType: &ct,
		Metadata:    metadata(meta),
	})
	if err != nil {
		return Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return u.Head(ctx, key)
}

// UploadExport uploads a backend's export when it has one.
func (u *Uploader) UploadExport(ctx context.Context, b storage.Uploadable) (Info, error) {
	p := b.GetExportedFilePath()
	if p == "" {
		return Info{}, ErrNoExport
	}
	return u.Upload(ctx, p, b.GetExportMetadata())
}

// Head fetches object metadata.
func (u *Uploader) Head(ctx context.Context, key string) (Info, error) {
	out, err := u.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &u.bucket, Key: &key})
	if err != nil {
		return Info{}, fmt.Errorf("head %s: %w", key, err)
	}
	info := Info{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         strings.Trim(aws.ToString(out.ETag), "\""),
		Metadata:     out.Metadata,
		LastModified: aws.ToTime(out.LastModified),
	}
	return info, nil
}

func metadata(m storage.UploadMetadata) map[string]string {
	return map[string]string{
		"session-name": m.SessionName,
		"session-uuid": m.SessionUUID,
		"duration":     strconv.FormatFloat(m.Duration, 'f', 3, 64),
		"module-count": strconv.Itoa(m.ModuleCount),
		"event-count":  strconv.Itoa(m.EventCount),
	}
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".gz":
		return "application/gzip"
	case ".json":
		return "application/json"
	case ".db", ".sqlite":
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}
