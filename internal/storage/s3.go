package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"audioscribe/internal/config"
	"audioscribe/internal/model"
)

const blobKeyPrefix = "blobs/"

// S3API is the subset of the S3 client used by S3BlobStore.
type S3API interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// S3BlobStore stores blobs in Amazon S3 or an S3-compatible service.
// The original filename travels as object metadata.
type S3BlobStore struct {
	client S3API
	bucket string
}

// NewS3BlobStore builds an S3 client from cfg.
func NewS3BlobStore(ctx context.Context, cfg config.BlobConfig) (*S3BlobStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewS3BlobStoreWithClient(awss3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket), nil
}

// NewS3BlobStoreWithClient wraps an existing client.
func NewS3BlobStoreWithClient(client S3API, bucket string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket}
}

// Put uploads r under a generated id. The body is spooled to a temp file so
// the SDK gets a seekable stream with a known length and the digest is
// known before the upload.
func (s *S3BlobStore) Put(ctx context.Context, r io.Reader, filename string) (model.StoredBlob, error) {
	var zero model.StoredBlob
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}

	spool, err := os.CreateTemp("", "audioscribe-s3-*")
	if err != nil {
		return zero, err
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(spool, h), r)
	if err != nil {
		return zero, err
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return zero, err
	}

	blob := model.StoredBlob{
		ID:        uuid.NewString(),
		Filename:  filename,
		Size:      n,
		SHA256:    hex.EncodeToString(h.Sum(nil)),
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(blobKeyPrefix + blob.ID),
		Body:          spool,
		ContentLength: aws.Int64(n),
		ContentType:   aws.String("audio/wav"),
		Metadata: map[string]string{
			"filename": filename,
			"sha256":   blob.SHA256,
		},
	})
	if err != nil {
		return zero, fmt.Errorf("s3 put object: %w", err)
	}
	return blob, nil
}

// Open returns the object body for id.
func (s *S3BlobStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobKeyPrefix + id),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, id)
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	return out.Body, nil
}
