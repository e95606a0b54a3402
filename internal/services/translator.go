package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/damacus/iron-dav/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultContentType is reported when the backend stored none
	DefaultContentType = "application/octet-stream"
	// DefaultDeleteConcurrency bounds parallel removals in DeleteTree
	DefaultDeleteConcurrency = 8
)

// CollectionPrefix normalises a key to the listing prefix of a folder.
// The bucket root stays empty.
func CollectionPrefix(key string) string {
	if key == "" || strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}

// ObjectTranslator runs backend calls for one request and turns the results
// into models.ResourceMetadata
type ObjectTranslator struct {
	client            ObjectClient
	deleteConcurrency int
}

func NewObjectTranslator(client ObjectClient, deleteConcurrency int) *ObjectTranslator {
	if deleteConcurrency <= 0 {
		deleteConcurrency = DefaultDeleteConcurrency
	}
	return &ObjectTranslator{client: client, deleteConcurrency: deleteConcurrency}
}

// IsCollection reports whether key denotes a folder. The bucket root always
// does; otherwise at least one key must exist under key + "/". Backend errors
// count as "not a collection".
func (t *ObjectTranslator) IsCollection(ctx context.Context, bucket, key string) bool {
	if key == "" {
		return true
	}
	res, err := t.client.ListObjects(ctx, bucket, ListObjectsOptions{
		Prefix:    CollectionPrefix(key),
		Delimiter: "/",
		MaxKeys:   1,
	})
	if err != nil {
		slog.DebugContext(ctx, "collection lookup failed", "bucket", bucket, "key", key, "err", err)
		return false
	}
	return res.KeyCount() > 0
}

// Fetch opens the object body. The caller closes the reader.
func (t *ObjectTranslator) Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, models.ResourceMetadata, error) {
	body, info, err := t.client.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, models.ResourceMetadata{}, err
	}
	return body, resourceFromInfo(info), nil
}

// Put streams body into key and returns the backend ETag
func (t *ObjectTranslator) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (string, error) {
	info, err := t.client.PutObject(ctx, bucket, key, body, size, contentType)
	if err != nil {
		return "", err
	}
	return info.ETag, nil
}

// Delete removes one key; a missing key is not an error
func (t *ObjectTranslator) Delete(ctx context.Context, bucket, key string) error {
	err := t.client.RemoveObject(ctx, bucket, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// DeleteTree removes every key under prefix using a deep listing
func (t *ObjectTranslator) DeleteTree(ctx context.Context, bucket, prefix string) error {
	res, err := t.client.ListObjects(ctx, bucket, ListObjectsOptions{Prefix: prefix})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.deleteConcurrency)
	for _, obj := range res.Objects {
		g.Go(func() error {
			if err := t.Delete(gctx, bucket, obj.Key); err != nil {
				return fmt.Errorf("delete %s: %w", obj.Key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// PrefixExists reports whether any object lives under prefix
func (t *ObjectTranslator) PrefixExists(ctx context.Context, bucket, prefix string) (bool, error) {
	res, err := t.client.ListObjects(ctx, bucket, ListObjectsOptions{Prefix: prefix, MaxKeys: 1})
	if err != nil {
		return false, err
	}
	return res.KeyCount() > 0, nil
}

// MakeCollection writes the zero-byte folder marker for key
func (t *ObjectTranslator) MakeCollection(ctx context.Context, bucket, key string) error {
	_, err := t.client.PutObject(ctx, bucket, CollectionPrefix(key), strings.NewReader(""), 0, "")
	return err
}

// List returns the folder at prefix with its children. An empty delimiter
// lists every descendant.
func (t *ObjectTranslator) List(ctx context.Context, bucket, prefix, delimiter string) (models.CollectionListing, error) {
	res, err := t.client.ListObjects(ctx, bucket, ListObjectsOptions{Prefix: prefix, Delimiter: delimiter})
	if err != nil {
		return models.CollectionListing{}, err
	}

	self := models.ResourceMetadata{
		Key:          prefix,
		Name:         models.BaseName(prefix),
		IsCollection: true,
	}
	if prefix == "" {
		self.Name = bucket
	}

	children := make([]models.ResourceMetadata, 0, res.KeyCount())
	for _, p := range res.Prefixes {
		children = append(children, models.ResourceMetadata{
			Key:          p,
			Name:         models.BaseName(p),
			IsCollection: true,
		})
	}
	for _, obj := range res.Objects {
		if obj.Key == prefix {
			// the folder's own marker
			self.LastModified = obj.LastModified
			continue
		}
		child := resourceFromInfo(obj)
		// listings carry no content type; leave it out instead of defaulting
		child.ContentType = obj.ContentType
		child.IsCollection = strings.HasSuffix(obj.Key, "/")
		children = append(children, child)
	}
	slices.SortStableFunc(children, func(a, b models.ResourceMetadata) int {
		return strings.Compare(a.Key, b.Key)
	})

	return models.CollectionListing{Self: self, Children: children}, nil
}

// MetadataSingle answers PROPFIND for a resource with a HEAD-style request
func (t *ObjectTranslator) MetadataSingle(ctx context.Context, bucket, key string) (models.ResourceMetadata, error) {
	info, err := t.client.StatObject(ctx, bucket, key)
	if err != nil {
		return models.ResourceMetadata{}, err
	}
	return resourceFromInfo(info), nil
}

func resourceFromInfo(info ObjectInfo) models.ResourceMetadata {
	contentType := info.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	return models.ResourceMetadata{
		Key:          info.Key,
		Name:         models.BaseName(info.Key),
		Size:         info.Size,
		ContentType:  contentType,
		LastModified: info.LastModified,
		ETag:         info.ETag,
	}
}
