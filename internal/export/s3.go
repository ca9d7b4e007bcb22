package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"transport-register/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Exporter uploads a CSV snapshot and hands back a pre-signed download URL
type S3Exporter struct {
	s3Client *s3.Client
	bucket   string
	expiry   time.Duration
	now      func() time.Time
}

// NewS3Exporter creates an S3 exporter. Static keys are optional; without
// them the default AWS credential chain is used. endpoint targets
// S3-compatible storage.
func NewS3Exporter(ctx context.Context, region, bucket, accessKey, secretKey, endpoint string, expiry time.Duration) (*S3Exporter, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Exporter{
		s3Client: client,
		bucket:   bucket,
		expiry:   expiry,
		now:      time.Now,
	}, nil
}

// Export uploads registrations as CSV to exports/{timestamp}.csv
func (e *S3Exporter) Export(ctx context.Context, regs []models.Registration) (*Result, error) {
	body, err := BuildCSV(regs)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	key := fmt.Sprintf("exports/registrations-%s.csv", now.Format("20060102-150405"))

	_, err = e.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(e.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(body),
		ContentType:        aws.String("text/csv; charset=utf-8"),
		ContentDisposition: aws.String(`attachment; filename="registrations.csv"`),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}

	presignClient := s3.NewPresignClient(e.s3Client)
	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = e.expiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &Result{
		Sink:      "s3",
		URL:       request.URL,
		Rows:      len(regs),
		ExpiresAt: now.Add(e.expiry),
	}, nil
}
