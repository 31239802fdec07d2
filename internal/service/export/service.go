// Package export uploads JSON snapshots of the inventory to S3-compatible
// object storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/pkg/config"
)

// ErrNotConfigured is returned when no export bucket is set.
var ErrNotConfigured = errors.New("export storage not configured")

var (
	loadAWSConfig         = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AssetLister supplies the records to export.
type AssetLister interface {
	List(ctx context.Context) ([]domain.Asset, error)
}

// Result describes an uploaded snapshot.
type Result struct {
	Bucket     string    `json:"bucket"`
	Key        string    `json:"key"`
	Count      int       `json:"count"`
	ExportedAt time.Time `json:"exportedAt"`
}

type snapshot struct {
	ExportedAt time.Time      `json:"exportedAt"`
	Count      int            `json:"count"`
	Assets     []domain.Asset `json:"assets"`
}

// Service writes inventory snapshots to a bucket.
type Service struct {
	assets AssetLister
	client ObjectPutter
	bucket string
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// New builds a Service from configuration. When no bucket is configured the
// returned Service reports ErrNotConfigured on every export.
func New(ctx context.Context, cfg config.APIConfig, assets AssetLister, logger *slog.Logger) (Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc := Service{
		assets: assets,
		bucket: cfg.ExportBucket,
		prefix: cfg.ExportPrefix,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	if cfg.ExportBucket == "" {
		return svc, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.ExportRegion)}
	if cfg.ExportAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.ExportAccessKey, cfg.ExportSecretKey, ""),
		))
	}
	awsCfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return Service{}, fmt.Errorf("load aws config: %w", err)
	}
	svc.client = newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.ExportEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.ExportEndpoint)
			o.UsePathStyle = true
		}
	})
	return svc, nil
}

// NewWithClient builds a Service around an existing client.
func NewWithClient(client ObjectPutter, bucket, prefix string, assets AssetLister, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{
		assets: assets,
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether exports can be performed.
func (s Service) Enabled() bool {
	return s.client != nil && s.bucket != ""
}

// Export uploads the current inventory as a single JSON object.
func (s Service) Export(ctx context.Context) (Result, error) {
	if !s.Enabled() {
		return Result{}, ErrNotConfigured
	}
	assets, err := s.assets.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list assets: %w", err)
	}

	at := s.now()
	body, err := json.Marshal(snapshot{ExportedAt: at, Count: len(assets), Assets: assets})
	if err != nil {
		return Result{}, fmt.Errorf("encode snapshot: %w", err)
	}

	key := path.Join(s.prefix, at.Format("2006/01/02"), "assets-"+at.Format("20060102T150405Z")+".json")
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return Result{}, fmt.Errorf("put object: %w", err)
	}

	s.logger.Info("inventory exported", "bucket", s.bucket, "key", key, "count", len(assets))
	return Result{Bucket: s.bucket, Key: key, Count: len(assets), ExportedAt: at}, nil
}
