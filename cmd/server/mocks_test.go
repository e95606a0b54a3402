package main

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/damacus/iron-dav/internal/models"
	"github.com/damacus/iron-dav/internal/services"
)

type fakeObject struct {
	data        []byte
	contentType string
	modified    time.Time
	etag        string
}

// fakeStore is an in-memory object store shared by every client it hands out
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]string
	buckets map[string]map[string]fakeObject
}

func newFakeStore(users map[string]string, buckets ...string) *fakeStore {
	s := &fakeStore{users: users, buckets: map[string]map[string]fakeObject{}}
	for _, b := range buckets {
		s.buckets[b] = map[string]fakeObject{}
	}
	return s
}

// fakeFactory implements services.ClientFactory over a fakeStore
type fakeFactory struct {
	store *fakeStore
}

func (f *fakeFactory) NewClient(creds services.Credentials) (services.ObjectClient, error) {
	return &fakeClient{store: f.store, creds: creds}, nil
}

func (f *fakeFactory) NewAdminClient(creds services.Credentials) (services.AdminClient, error) {
	return &fakeClient{store: f.store, creds: creds}, nil
}

// fakeClient checks its credentials on every call, like a real store would
type fakeClient struct {
	store *fakeStore
	creds services.Credentials
}

func (c *fakeClient) bucket(name string) (map[string]fakeObject, error) {
	if secret, ok := c.store.users[c.creds.AccessKey]; !ok || secret != c.creds.SecretKey {
		return nil, services.ErrAuthenticationRequired
	}
	b, ok := c.store.buckets[name]
	if !ok {
		return nil, services.ErrNotFound
	}
	return b, nil
}

func (c *fakeClient) info(key string, obj fakeObject) services.ObjectInfo {
	return services.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
		ETag:         obj.etag,
	}
}

func (c *fakeClient) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, services.ObjectInfo, error) {
	info, err := c.StatObject(ctx, bucketName, objectName)
	if err != nil {
		return nil, services.ObjectInfo{}, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	data := c.store.buckets[bucketName][objectName].data
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

func (c *fakeClient) StatObject(ctx context.Context, bucketName, objectName string) (services.ObjectInfo, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	b, err := c.bucket(bucketName)
	if err != nil {
		return services.ObjectInfo{}, err
	}
	obj, ok := b[objectName]
	if !ok {
		return services.ObjectInfo{}, services.ErrNotFound
	}
	return c.info(objectName, obj), nil
}

func (c *fakeClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (services.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return services.UploadInfo{}, services.ErrBackend
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	b, err := c.bucket(bucketName)
	if err != nil {
		return services.UploadInfo{}, err
	}
	sum := md5.Sum(data)
	obj := fakeObject{data: data, contentType: contentType, modified: time.Now().UTC(), etag: hex.EncodeToString(sum[:])}
	b[objectName] = obj
	return services.UploadInfo{ETag: obj.etag, Size: int64(len(data))}, nil
}

func (c *fakeClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	b, err := c.bucket(bucketName)
	if err != nil {
		return err
	}
	delete(b, objectName)
	return nil
}

func (c *fakeClient) ListObjects(ctx context.Context, bucketName string, opts services.ListObjectsOptions) (services.ListObjectsResult, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	b, err := c.bucket(bucketName)
	if err != nil {
		return services.ListObjectsResult{}, err
	}

	keys := make([]string, 0, len(b))
	for k := range b {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var res services.ListObjectsResult
	seen := map[string]bool{}
	for _, k := range keys {
		if opts.MaxKeys > 0 && res.KeyCount() >= opts.MaxKeys {
			res.IsTruncated = true
			break
		}
		rest := k[len(opts.Prefix):]
		if opts.Delimiter != "" {
			if i := strings.Index(rest, opts.Delimiter); i >= 0 {
				p := opts.Prefix + rest[:i+len(opts.Delimiter)]
				if !seen[p] {
					seen[p] = true
					res.Prefixes = append(res.Prefixes, p)
				}
				continue
			}
		}
		res.Objects = append(res.Objects, c.info(k, b[k]))
	}
	return res, nil
}

func (c *fakeClient) BucketQuota(ctx context.Context, bucketName string) (models.Quota, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	b, err := c.bucket(bucketName)
	if err != nil {
		return models.Quota{}, err
	}
	var used uint64
	for _, obj := range b {
		used += uint64(len(obj.data))
	}
	return models.Quota{UsedBytes: used, AvailableBytes: 1<<30 - used, Limited: true}, nil
}
