package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// Sink receives the full record set of a session.
type Sink interface {
	Write(ctx context.Context, records []Record) error
}

// FileSink writes records to a JSON file, replacing it atomically.
type FileSink struct {
	Path string
}

func (s FileSink) Write(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".shapes-*.json")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// WriterSink encodes records to W.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Write(ctx context.Context, records []Record) error {
	return Encode(s.W, records)
}

// S3Sink uploads records as one JSON object.
type S3Sink struct {
	Bucket   string
	Key      string
	uploader s3manageriface.UploaderAPI
}

// NewS3Sink uses the default AWS credential chain. An empty region falls
// back to the environment and shared config.
func NewS3Sink(bucket, key, region string) (*S3Sink, error) {
	if bucket == "" || key == "" {
		return nil, errors.New("s3 sink needs a bucket and a key")
	}

	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return &S3Sink{Bucket: bucket, Key: key, uploader: s3manager.NewUploader(sess)}, nil
}

func (s *S3Sink) Write(ctx context.Context, records []Record) error {
	var buf bytes.Buffer
	if err := Encode(&buf, records); err != nil {
		return err
	}

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.Key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", s.Bucket, s.Key, err)
	}
	return nil
}

// MultiSink writes to every sink in order and joins their errors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, records []Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
