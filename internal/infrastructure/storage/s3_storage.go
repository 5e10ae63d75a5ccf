// Package storage uploads finished reports to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/salesreport/internal/application/report"
	"github.com/erp/salesreport/internal/infrastructure/config"
	"github.com/erp/salesreport/internal/infrastructure/export"
	"go.uber.org/zap"
)

// ContentType is sent with every uploaded report
const ContentType = "text/csv; charset=utf-8"

// ObjectAPI is the subset of the S3 client used by S3Sink
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Sink writes the report CSV as an object under <prefix>/.
// It works against AWS S3 as well as MinIO-style endpoints.
type S3Sink struct {
	client    ObjectAPI
	bucket    string
	prefix    string
	delimiter rune
	logger    *zap.Logger
}

// S3SinkOption is a functional option for configuring S3Sink
type S3SinkOption func(*S3Sink)

// WithLogger sets a custom logger for S3Sink
func WithLogger(logger *zap.Logger) S3SinkOption {
	return func(s *S3Sink) {
		s.logger = logger
	}
}

// WithDelimiter sets the CSV field delimiter
func WithDelimiter(d rune) S3SinkOption {
	return func(s *S3Sink) {
		s.delimiter = d
	}
}

// WithClient replaces the SDK client, mostly for tests
func WithClient(client ObjectAPI) S3SinkOption {
	return func(s *S3Sink) {
		s.client = client
	}
}

// NewS3Sink creates an S3Sink from configuration. Static credentials are
// used when both keys are set; otherwise the SDK default chain applies.
func NewS3Sink(ctx context.Context, cfg *config.StorageConfig, opts ...S3SinkOption) (*S3Sink, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, errors.New("storage access key id and secret access key must be set together")
	}

	sink := &S3Sink{
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		delimiter: export.DefaultDelimiter,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(sink)
	}
	if sink.client != nil {
		return sink, nil
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	sink.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return sink, nil
}

// Name implements report.Sink
func (s *S3Sink) Name() string {
	return "s3"
}

// Key returns the object key for the report window
func (s *S3Sink) Key(r *report.Report) string {
	name := export.FileName(r.Window)
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Write uploads the report, replacing any earlier object for the same window.
func (s *S3Sink) Write(ctx context.Context, r *report.Report) (report.Artifact, error) {
	var buf bytes.Buffer
	if err := export.EncodeCSV(&buf, r.Rows, s.delimiter); err != nil {
		return report.Artifact{}, err
	}

	key := s.Key(r)
	metadata := map[string]string{
		"run-id":      r.RunID.String(),
		"order-count": fmt.Sprint(r.OrderCount),
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(ContentType),
		Metadata:      metadata,
	})
	if err != nil {
		return report.Artifact{}, fmt.Errorf("failed to upload object: %w", err)
	}

	location := "s3://" + s.bucket + "/" + key
	s.logger.Info("Report uploaded",
		zap.String("location", location),
		zap.Int("rows", len(r.Rows)),
		zap.Int("bytes", buf.Len()),
	)
	return report.Artifact{Sink: s.Name(), Location: location}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *S3Sink) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// lost a race with another writer
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

var _ report.Sink = (*S3Sink)(nil)
