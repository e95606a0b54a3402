// Package propfind renders WebDAV multistatus documents from object metadata.
package propfind

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"time"

	"github.com/damacus/iron-dav/internal/models"
)

const (
	// StatusOK is the only propstat status this package emits
	StatusOK = "HTTP/1.1 200 OK"
	// LastModifiedPlaceholder stands in for a missing backend timestamp
	LastModifiedPlaceholder = "Thu, 01 Jan 1970 00:00:00 GMT"
)

type multistatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	Responses []response `xml:"response"`
}

type response struct {
	Href     string   `xml:"href"`
	Propstat propstat `xml:"propstat"`
}

type propstat struct {
	Prop   prop   `xml:"prop"`
	Status string `xml:"status"`
}

type prop struct {
	DisplayName    string       `xml:"displayname"`
	ContentLength  *int64       `xml:"getcontentlength,omitempty"`
	ContentType    string       `xml:"getcontenttype,omitempty"`
	ETag           string       `xml:"getetag,omitempty"`
	LastModified   string       `xml:"getlastmodified,omitempty"`
	ResourceType   resourceType `xml:"resourcetype"`
	QuotaUsed      *uint64      `xml:"quota-used-bytes,omitempty"`
	QuotaAvailable *uint64      `xml:"quota-available-bytes,omitempty"`
}

type resourceType struct {
	Collection *struct{} `xml:"collection,omitempty"`
}

// Href joins bucket and key without escaping. Keys are assumed URL-safe.
func Href(bucket, key string) string {
	return "/" + bucket + "/" + key
}

func httpDate(t time.Time) string {
	if t.IsZero() {
		return LastModifiedPlaceholder
	}
	return t.UTC().Format(http.TimeFormat)
}

func fileResponse(href string, m models.ResourceMetadata) response {
	size := m.Size
	p := prop{
		DisplayName:   m.Name,
		ContentLength: &size,
		ContentType:   m.ContentType,
		LastModified:  httpDate(m.LastModified),
	}
	if m.ETag != "" {
		p.ETag = strconv.Quote(m.ETag)
	}
	return response{Href: href, Propstat: propstat{Prop: p, Status: StatusOK}}
}

func folderResponse(href string, m models.ResourceMetadata, quota *models.Quota) response {
	p := prop{
		DisplayName:  m.Name,
		ResourceType: resourceType{Collection: &struct{}{}},
	}
	if !m.LastModified.IsZero() {
		p.LastModified = httpDate(m.LastModified)
	}
	if quota != nil {
		used := quota.UsedBytes
		p.QuotaUsed = &used
		if quota.Limited {
			available := quota.AvailableBytes
			p.QuotaAvailable = &available
		}
	}
	return response{Href: href, Propstat: propstat{Prop: p, Status: StatusOK}}
}

// Render builds the multistatus document for the resource or collection at
// bucket/key. Collections list folders before files; each group keeps the
// listing order. Render never fails.
func Render(bucket, key string, view models.MetadataView) string {
	doc := multistatus{}

	switch {
	case view.Collection != nil:
		l := view.Collection
		self := l.Self
		if self.Name == "" {
			self.Name = models.BaseName(key)
		}
		doc.Responses = append(doc.Responses, folderResponse(Href(bucket, key), self, l.Quota))
		if !l.SelfOnly {
			for _, f := range l.Folders() {
				doc.Responses = append(doc.Responses, folderResponse(Href(bucket, f.Key), f, nil))
			}
			for _, f := range l.Files() {
				doc.Responses = append(doc.Responses, fileResponse(Href(bucket, f.Key), f))
			}
		}
	case view.Single != nil:
		m := *view.Single
		m.Name = models.BaseName(key)
		doc.Responses = append(doc.Responses, fileResponse(Href(bucket, key), m))
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		// unreachable for these types; keep the document well-formed anyway
		return xml.Header + `<multistatus xmlns="DAV:"></multistatus>`
	}
	return xml.Header + string(out)
}
