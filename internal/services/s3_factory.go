package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// uploadPartSize bounds memory held per in-flight PUT of unknown length
const uploadPartSize = 8 * 1024 * 1024

// AWSFactory builds aws-sdk-go-v2 S3 clients. The shared aws.Config is loaded
// once; each client only swaps in its own credentials.
type AWSFactory struct {
	cfg  BackendConfig
	base aws.Config
}

// NewAWSFactory loads the default AWS config (env, shared files) for the region.
// No network call is made.
func NewAWSFactory(ctx context.Context, cfg BackendConfig) (*AWSFactory, error) {
	base, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &AWSFactory{cfg: cfg, base: base}, nil
}

// baseEndpoint returns a URL for BaseEndpoint, or "" for the AWS default
func (f *AWSFactory) baseEndpoint() string {
	ep := f.cfg.Endpoint
	if ep == "" || strings.Contains(ep, "://") {
		return ep
	}
	if shouldUseSSL(ep) {
		return "https://" + ep
	}
	return "http://" + ep
}

func (f *AWSFactory) NewClient(creds Credentials) (ObjectClient, error) {
	awsCfg := f.base.Copy()
	// Empty credentials keep the default chain (fixed mode without keys)
	if creds.AccessKey != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, ""),
		)
	}

	endpoint := f.baseEndpoint()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = f.cfg.PathStyle
	})
	return &WrappedS3Client{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = uploadPartSize
		}),
	}, nil
}

// NewAdminClient is unavailable: quota comes from the MinIO admin API only
func (f *AWSFactory) NewAdminClient(Credentials) (AdminClient, error) {
	return nil, fmt.Errorf("%w: admin API requires the minio driver", ErrNotImplemented)
}

// WrappedS3Client adapts s3.Client to ObjectClient
type WrappedS3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
}

func (c *WrappedS3Client) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, ObjectInfo, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return nil, ObjectInfo{}, s3Error(err)
	}
	return out.Body, ObjectInfo{
		Key:          objectName,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         trimETag(aws.ToString(out.ETag)),
	}, nil
}

func (c *WrappedS3Client) StatObject(ctx context.Context, bucketName, objectName string) (ObjectInfo, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return ObjectInfo{}, s3Error(err)
	}
	return ObjectInfo{
		Key:          objectName,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         trimETag(aws.ToString(out.ETag)),
	}, nil
}

func (c *WrappedS3Client) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (UploadInfo, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectName),
		Body:   reader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	out, err := c.uploader.Upload(ctx, input)
	if err != nil {
		return UploadInfo{}, s3Error(err)
	}
	return UploadInfo{ETag: trimETag(aws.ToString(out.ETag)), Size: objectSize}, nil
}

func (c *WrappedS3Client) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return s3Error(err)
	}
	return nil
}

func (c *WrappedS3Client) ListObjects(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucketName),
		Prefix: aws.String(opts.Prefix),
	}
	if opts.Delimiter != "" {
		input.Delimiter = aws.String(opts.Delimiter)
	}
	if opts.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(int32(opts.MaxKeys))
	}

	var result ListObjectsResult
	paginator := s3.NewListObjectsV2Paginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return ListObjectsResult{}, s3Error(err)
		}
		for _, obj := range page.Contents {
			result.Objects = append(result.Objects, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         trimETag(aws.ToString(obj.ETag)),
			})
		}
		for _, p := range page.CommonPrefixes {
			result.Prefixes = append(result.Prefixes, aws.ToString(p.Prefix))
		}
		if opts.MaxKeys > 0 && result.KeyCount() >= opts.MaxKeys {
			result.IsTruncated = aws.ToBool(page.IsTruncated)
			break
		}
	}
	return result, nil
}

func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// s3Error folds SDK errors into the service taxonomy
func s3Error(err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %s", ErrAuthenticationRequired, apiErr.ErrorMessage())
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrBackend, err)
}
