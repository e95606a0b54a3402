package services

import (
	"context"
	"io"

	"github.com/damacus/iron-dav/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockObjectClient implements ObjectClient and AdminClient for testing
type MockObjectClient struct {
	mock.Mock
}

func (m *MockObjectClient) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName)
	if args.Get(0) == nil {
		return nil, args.Get(1).(ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(ObjectInfo), args.Error(2)
}

func (m *MockObjectClient) StatObject(ctx context.Context, bucketName, objectName string) (ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName)
	return args.Get(0).(ObjectInfo), args.Error(1)
}

func (m *MockObjectClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, contentType)
	return args.Get(0).(UploadInfo), args.Error(1)
}

func (m *MockObjectClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	args := m.Called(ctx, bucketName, objectName)
	return args.Error(0)
}

func (m *MockObjectClient) ListObjects(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error) {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(ListObjectsResult), args.Error(1)
}

func (m *MockObjectClient) BucketQuota(ctx context.Context, bucketName string) (models.Quota, error) {
	args := m.Called(ctx, bucketName)
	return args.Get(0).(models.Quota), args.Error(1)
}

// MockClientFactory implements ClientFactory for testing
type MockClientFactory struct {
	mock.Mock
}

func (m *MockClientFactory) NewClient(creds Credentials) (ObjectClient, error) {
	args := m.Called(creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ObjectClient), args.Error(1)
}

func (m *MockClientFactory) NewAdminClient(creds Credentials) (AdminClient, error) {
	args := m.Called(creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(AdminClient), args.Error(1)
}
