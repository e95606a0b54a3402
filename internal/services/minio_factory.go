package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/damacus/iron-dav/internal/models"
	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultEndpoint is used when no endpoint is configured
const DefaultEndpoint = "s3.amazonaws.com"

// ObjectInfo is the driver-neutral view of one listed or fetched object
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// UploadInfo is returned after a successful write
type UploadInfo struct {
	ETag string
	Size int64
}

// ListObjectsOptions selects one level ("/" delimiter) or a deep listing (empty delimiter)
type ListObjectsOptions struct {
	Prefix    string
	Delimiter string
	// MaxKeys caps objects plus prefixes; 0 means unlimited
	MaxKeys int
}

// ListObjectsResult keeps backend order for both objects and common prefixes
type ListObjectsResult struct {
	Objects     []ObjectInfo
	Prefixes    []string
	IsTruncated bool
}

// KeyCount mirrors the S3 KeyCount field
func (r ListObjectsResult) KeyCount() int {
	return len(r.Objects) + len(r.Prefixes)
}

// ObjectClient is the narrow object-store surface the gateway needs
type ObjectClient interface {
	GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, ObjectInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string) (ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string) error
	ListObjects(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error)
}

// AdminClient reads bucket usage for quota properties
type AdminClient interface {
	BucketQuota(ctx context.Context, bucketName string) (models.Quota, error)
}

// ClientFactory creates clients bound to one set of credentials
type ClientFactory interface {
	NewClient(creds Credentials) (ObjectClient, error)
	NewAdminClient(creds Credentials) (AdminClient, error)
}

// WrappedMinioClient adapts minio.Client to ObjectClient
type WrappedMinioClient struct {
	client *minio.Client
}

func (c *WrappedMinioClient) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := c.client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, minioError(err)
	}
	// GetObject is lazy; Stat issues the request
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, ObjectInfo{}, minioError(err)
	}
	return obj, fromMinioInfo(info), nil
}

func (c *WrappedMinioClient) StatObject(ctx context.Context, bucketName, objectName string) (ObjectInfo, error) {
	info, err := c.client.StatObject(ctx, bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, minioError(err)
	}
	return fromMinioInfo(info), nil
}

func (c *WrappedMinioClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (UploadInfo, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if objectSize < 0 {
		// minio-go buffers a whole part; its default for unknown sizes is 528 MiB
		opts.PartSize = uploadPartSize
	}
	info, err := c.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
	if err != nil {
		return UploadInfo{}, minioError(err)
	}
	return UploadInfo{ETag: info.ETag, Size: info.Size}, nil
}

func (c *WrappedMinioClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	if err := c.client.RemoveObject(ctx, bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return minioError(err)
	}
	return nil
}

func (c *WrappedMinioClient) ListObjects(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error) {
	// Cancelling stops the lister goroutine when we stop reading early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recursive := opts.Delimiter == ""
	minioOpts := minio.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: recursive,
		MaxKeys:   opts.MaxKeys,
	}

	var result ListObjectsResult
	for obj := range c.client.ListObjects(ctx, bucketName, minioOpts) {
		if obj.Err != nil {
			return ListObjectsResult{}, minioError(obj.Err)
		}
		if opts.MaxKeys > 0 && result.KeyCount() >= opts.MaxKeys {
			result.IsTruncated = true
			break
		}

		// Common prefixes come back as bare keys ending in the delimiter
		if !recursive && strings.HasSuffix(obj.Key, "/") && obj.Key != opts.Prefix {
			result.Prefixes = append(result.Prefixes, obj.Key)
			continue
		}
		result.Objects = append(result.Objects, fromMinioInfo(obj))
	}

	return result, nil
}

func fromMinioInfo(info minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		ETag:         info.ETag,
	}
}

// minioError folds minio error responses into the service taxonomy
func minioError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Message)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %s", ErrAuthenticationRequired, resp.Message)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrBackend, err)
}

// WrappedAdminClient adapts madmin.AdminClient to AdminClient
type WrappedAdminClient struct {
	client *madmin.AdminClient
}

func (c *WrappedAdminClient) BucketQuota(ctx context.Context, bucketName string) (models.Quota, error) {
	usage, err := c.client.DataUsageInfo(ctx)
	if err != nil {
		return models.Quota{}, fmt.Errorf("%w: data usage: %v", ErrBackend, err)
	}
	quota := models.Quota{UsedBytes: usage.BucketSizes[bucketName]}

	bq, err := c.client.GetBucketQuota(ctx, bucketName)
	if err != nil {
		return models.Quota{}, fmt.Errorf("%w: bucket quota: %v", ErrBackend, err)
	}
	limit := bq.Size
	if limit > 0 {
		quota.Limited = true
		if limit > quota.UsedBytes {
			quota.AvailableBytes = limit - quota.UsedBytes
		}
	}
	return quota, nil
}

// RealMinioFactory is the production implementation
type RealMinioFactory struct {
	cfg BackendConfig
}

// NewMinioFactory builds a factory for one endpoint configuration
func NewMinioFactory(cfg BackendConfig) *RealMinioFactory {
	return &RealMinioFactory{cfg: cfg}
}

// shouldUseSSL determines if SSL should be used based on the endpoint.
// Returns false for localhost, 127.0.0.1, and docker service names.
func shouldUseSSL(endpoint string) bool {
	// Local development endpoints
	if endpoint == "localhost:9000" || endpoint == "127.0.0.1:9000" {
		return false
	}
	// Docker service names (minio:9000, minio1:9000, minio2:9000, etc.)
	// Only match simple hostnames without dots (not domain names like minio.example.com)
	if strings.HasPrefix(endpoint, "minio") && !strings.Contains(strings.Split(endpoint, ":")[0], ".") && strings.Contains(endpoint, ":9000") {
		return false
	}
	return true
}

// splitEndpoint turns the configured endpoint into host[:port] and a TLS flag.
// An explicit scheme wins over the host heuristic.
func splitEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return DefaultEndpoint, true, nil
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), shouldUseSSL(endpoint), nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

func (f *RealMinioFactory) bucketLookup() minio.BucketLookupType {
	if f.cfg.PathStyle {
		return minio.BucketLookupPath
	}
	return minio.BucketLookupAuto
}

func (f *RealMinioFactory) NewAdminClient(creds Credentials) (AdminClient, error) {
	host, secure, err := splitEndpoint(f.cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	client, err := madmin.NewWithOptions(host, &madmin.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}
	return &WrappedAdminClient{client: client}, nil
}

func (f *RealMinioFactory) NewClient(creds Credentials) (ObjectClient, error) {
	host, secure, err := splitEndpoint(f.cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
		Secure:       secure,
		Region:       f.cfg.Region,
		BucketLookup: f.bucketLookup(),
	})
	if err != nil {
		return nil, err
	}
	return &WrappedMinioClient{client: client}, nil
}
