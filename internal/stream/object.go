package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	apperrors "github.com/agbru/mpsearch/internal/errors"
)

// ObjectConfig holds the connection settings for S3-compatible storage.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	// Insecure disables TLS.
	Insecure bool
}

// NewObjectClient builds a MinIO client from cfg.
func NewObjectClient(cfg ObjectConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, apperrors.NewConfigError("an s3 endpoint is required for %s locations", ObjectScheme)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: !cfg.Insecure,
	})
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to create s3 client")
	}
	return client, nil
}

// ParseObjectURL splits "s3://bucket/key/with/slashes" into bucket and key.
func ParseObjectURL(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, ObjectScheme)
	if !ok {
		return "", "", apperrors.ValidationError{Field: "path", Message: fmt.Sprintf("%q is not an %s location", location, ObjectScheme)}
	}
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", apperrors.ValidationError{Field: "path", Message: fmt.Sprintf("%q must name a bucket and a key", location)}
	}
	return bucket, key, nil
}

// ObjectSource serves a single object from S3-compatible storage.
type ObjectSource struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

// NewObjectSource stats the object to learn its size. A missing bucket or
// key yields apperrors.StreamNotFoundError.
func NewObjectSource(ctx context.Context, client *minio.Client, bucket, key string) (*ObjectSource, error) {
	info, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" || errResp.Code == "NotFound" {
			return nil, apperrors.StreamNotFoundError{Path: ObjectScheme + bucket + "/" + key, Cause: err}
		}
		return nil, err
	}
	return &ObjectSource{client: client, bucket: bucket, key: key, size: info.Size}, nil
}

// Name returns the s3:// location.
func (o *ObjectSource) Name() string { return ObjectScheme + o.bucket + "/" + o.key }

// Size returns the object size.
func (o *ObjectSource) Size() int64 { return o.size }

// Open returns a seekable object reader. Each Seek issues a ranged GET.
func (o *ObjectSource) Open(ctx context.Context) (Stream, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}
