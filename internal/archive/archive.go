// Package archive uploads each published result set to S3 as a JSON array.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vista360/internal/model"
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes result sets under bucket/prefix.
type Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// Config holds S3 construction parameters.
type Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // optional, for S3-compatible stores such as MinIO
}

// New builds an Archiver from the default AWS credential chain.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, eris.New("archive: s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, eris.Wrap(err, "archive: load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient wraps an existing S3 client.
func NewWithClient(client PutObjectAPI, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a result-set version.
func (a *Archiver) Key(version string) string {
	return path.Join(a.prefix, version+".json")
}

// Archive uploads results as <prefix>/<version>.json and returns the key.
func (a *Archiver) Archive(ctx context.Context, set *model.PublishedSet, results []model.AnalyzedProfile) (string, error) {
	if results == nil {
		results = []model.AnalyzedProfile{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "", eris.Wrap(err, "archive: marshal results")
	}

	key := a.Key(set.Version)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"version":      set.Version,
			"published-at": set.PublishedAt.UTC().Format("2006-01-02T15:04:05Z"),
		},
	})
	if err != nil {
		return "", eris.Wrapf(err, "archive: put s3://%s/%s", a.bucket, key)
	}
	zap.L().Info("result set archived",
		zap.String("version", set.Version),
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int("count", len(results)),
	)
	return key, nil
}
