// Package models contains data structures used across handlers
package models

import (
	"path"
	"strings"
	"time"
)

// ResourceMetadata describes one file or folder as seen through WebDAV
type ResourceMetadata struct {
	// Key is the full object key (folders keep their trailing slash)
	Key          string
	Name         string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
	IsCollection bool
}

// Quota carries RFC 4331 values for a bucket root
type Quota struct {
	UsedBytes      uint64
	AvailableBytes uint64
	// Limited is false when the bucket has no hard quota configured
	Limited bool
}

// CollectionListing is a folder plus its direct children in backend order
type CollectionListing struct {
	Self     ResourceMetadata
	Children []ResourceMetadata
	Quota    *Quota
	// SelfOnly is set for Depth: 0 requests
	SelfOnly bool
}

// Folders returns the children that are collections, in listing order
func (l CollectionListing) Folders() []ResourceMetadata {
	var out []ResourceMetadata
	for _, c := range l.Children {
		if c.IsCollection {
			out = append(out, c)
		}
	}
	return out
}

// Files returns the children that are plain resources, in listing order
func (l CollectionListing) Files() []ResourceMetadata {
	var out []ResourceMetadata
	for _, c := range l.Children {
		if !c.IsCollection {
			out = append(out, c)
		}
	}
	return out
}

// MetadataView is either a single resource or a collection listing.
// Exactly one of the two fields is set.
type MetadataView struct {
	Single     *ResourceMetadata
	Collection *CollectionListing
}

// SingleView wraps a resource
func SingleView(m ResourceMetadata) MetadataView {
	return MetadataView{Single: &m}
}

// CollectionView wraps a listing
func CollectionView(l CollectionListing) MetadataView {
	return MetadataView{Collection: &l}
}

// IsCollection reports whether the view holds a listing
func (v MetadataView) IsCollection() bool {
	return v.Collection != nil
}

// BaseName returns the last path segment of a key, ignoring a trailing slash
func BaseName(key string) string {
	key = strings.TrimSuffix(key, "/")
	if key == "" {
		return ""
	}
	return path.Base(key)
}
