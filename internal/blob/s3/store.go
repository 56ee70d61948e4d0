// Package s3 stores visitor photos in an Amazon S3 bucket. References are the
// virtual-hosted object URLs https://<bucket>.s3.<region>.amazonaws.com/<key>.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cheya01/facial-recog-poc-server/internal/blob"
	"github.com/cheya01/facial-recog-poc-server/internal/platform/config"
)

const hostSuffix = ".amazonaws.com/"

// API is the subset of the S3 client the store needs.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store is an S3-backed blob store.
type Store struct {
	client API
	bucket string
	region string
}

// New builds an S3 client from static credentials when given, otherwise from
// the default AWS credential chain.
func New(ctx context.Context, cfg config.Blob) (*Store, error) {
	if cfg.BucketName == "" || cfg.BucketRegion == "" {
		return nil, errors.New("s3 blob store requires BUCKET_NAME and BUCKET_REGION")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.BucketRegion)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.BucketRegion), nil
}

// NewWithClient wires an existing client.
func NewWithClient(client API, bucket, region string) *Store {
	return &Store{client: client, bucket: bucket, region: region}
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	key, err := keyFromRef(ref)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", blob.ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s%s%s", s.bucket, s.region, hostSuffix, url.PathEscape(key))
}

// keyFromRef extracts the object key from a stored URL.
func keyFromRef(ref string) (string, error) {
	_, escaped, ok := strings.Cut(ref, hostSuffix)
	if !ok || escaped == "" {
		return "", fmt.Errorf("%w: invalid s3 url format", blob.ErrBlobNotFound)
	}
	key, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("%w: invalid s3 key encoding", blob.ErrBlobNotFound)
	}
	return key, nil
}
