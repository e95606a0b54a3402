package handlers

import (
	"context"
	"io"

	"github.com/damacus/iron-dav/internal/models"
	"github.com/damacus/iron-dav/internal/services"
	"github.com/stretchr/testify/mock"
)

// MockObjectClient implements services.ObjectClient and services.AdminClient for testing
type MockObjectClient struct {
	mock.Mock
}

func (m *MockObjectClient) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, services.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName)
	if args.Get(0) == nil {
		return nil, args.Get(1).(services.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(services.ObjectInfo), args.Error(2)
}

func (m *MockObjectClient) StatObject(ctx context.Context, bucketName, objectName string) (services.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName)
	return args.Get(0).(services.ObjectInfo), args.Error(1)
}

func (m *MockObjectClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (services.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, contentType)
	return args.Get(0).(services.UploadInfo), args.Error(1)
}

func (m *MockObjectClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	args := m.Called(ctx, bucketName, objectName)
	return args.Error(0)
}

func (m *MockObjectClient) ListObjects(ctx context.Context, bucketName string, opts services.ListObjectsOptions) (services.ListObjectsResult, error) {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(services.ListObjectsResult), args.Error(1)
}

func (m *MockObjectClient) BucketQuota(ctx context.Context, bucketName string) (models.Quota, error) {
	args := m.Called(ctx, bucketName)
	return args.Get(0).(models.Quota), args.Error(1)
}

// MockProvider implements services.ClientProvider for testing
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Resolve(creds *services.Credentials) (services.ObjectClient, error) {
	args := m.Called(creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(services.ObjectClient), args.Error(1)
}

func (m *MockProvider) ResolveAdmin(creds *services.Credentials) (services.AdminClient, error) {
	args := m.Called(creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(services.AdminClient), args.Error(1)
}

// staticFactory hands out one client and records the credentials it saw
type staticFactory struct {
	client services.ObjectClient
	seen   []services.Credentials
}

func (f *staticFactory) NewClient(creds services.Credentials) (services.ObjectClient, error) {
	f.seen = append(f.seen, creds)
	return f.client, nil
}

func (f *staticFactory) NewAdminClient(services.Credentials) (services.AdminClient, error) {
	return nil, services.ErrNotImplemented
}
