// Package target moves a rendered export file to its final destination:
// a local path or an s3://bucket/key object.
package target

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader is the subset of *s3.Client used for uploads.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Saver persists export files. The S3 client is created on first use so
// local-only runs never load AWS credentials.
type Saver struct {
	Uploader    Uploader
	NewUploader func(ctx context.Context) (Uploader, error)
}

// NewSaver returns a Saver backed by the default AWS credential chain.
func NewSaver() *Saver {
	return &Saver{NewUploader: defaultUploader}
}

func defaultUploader(ctx context.Context) (Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Save moves src to dest and removes src once it has been stored.
func (s *Saver) Save(ctx context.Context, src, dest string) error {
	if bucket, key, ok := ParseS3(dest); ok {
		return s.upload(ctx, src, bucket, key)
	}
	return move(src, dest)
}

// ParseS3 splits s3://bucket/key. ok is false for anything else.
func ParseS3(dest string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(dest, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func (s *Saver) upload(ctx context.Context, src, bucket, key string) error {
	if s.Uploader == nil {
		if s.NewUploader == nil {
			return errors.New("no s3 uploader configured")
		}
		u, err := s.NewUploader(ctx)
		if err != nil {
			return err
		}
		s.Uploader = u
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening export file: %w", err)
	}
	defer f.Close()

	if _, err := s.Uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("uploading to s3://%s/%s: %w", bucket, key, err)
	}
	f.Close()
	_ = os.Remove(src)
	return nil
}

// move renames src to dest, copying when the rename crosses devices.
func move(src, dest string) error {
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating target directory: %w", err)
		}
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := copyFile(src, dest); err != nil {
		return err
	}
	_ = os.Remove(src)
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening export file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating target file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying to %s: %w", dest, err)
	}
	return out.Close()
}
